package webAuth

import (
	"slices"
	"sync/atomic"
	"time"
)

// MetricID identifies an engine counter.
type MetricID uint16

// Engine counters. MetricDecodeLatency is a histogram, not a counter.
const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricLogout
	MetricSessionIssued
	MetricSessionInvalid
	MetricSessionRevoked
	MetricPermissionLookup
	MetricAccessDenied
	MetricTOTPRequired
	MetricTOTPSuccess
	MetricTOTPFailure
	MetricTOTPReplayDetected
	MetricTOTPEnabled
	MetricTOTPDisabled
	MetricPasswordResetRequest
	MetricPasswordResetRateLimited
	MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure
	MetricPasswordRehash
	MetricDecodeLatency
	metricIDCount
)

// decodeBucketBounds are the inclusive upper bounds of the decode latency
// buckets. A final implicit bucket holds everything slower.
var decodeBucketBounds = [...]time.Duration{
	100 * time.Microsecond,
	250 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	2500 * time.Microsecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
}

const histBucketCount = len(decodeBucketBounds) + 1

// counter sits on its own cache line so hot counters do not contend.
type counter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free engine counters and the session decode latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counter
	decode        [histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram buckets
// are per-bucket counts, not cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a metrics set honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to id. Unknown ids and the histogram id are ignored.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricDecodeLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d into the decode latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricDecodeLatency {
		return
	}
	m.decode[bucketIndex(d)].Add(1)
}

// Value returns the current value of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies all counters, and the histogram when latency recording is on.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := range metricIDCount {
		if id != MetricDecodeLatency {
			s.Counters[id] = m.counters[id].Load()
		}
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = m.decode[i].Load()
		}
		s.Histograms[MetricDecodeLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	i, _ := slices.BinarySearch(decodeBucketBounds[:], d)
	return i
}
