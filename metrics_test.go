package webAuth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricSessionIssued)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricSessionIssued); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		50 * time.Microsecond,
		200 * time.Microsecond,
		400 * time.Microsecond,
		time.Millisecond,
		2 * time.Millisecond,
		5 * time.Millisecond,
		8 * time.Millisecond,
		40 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricDecodeLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricDecodeLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("expected no histogram for a counter metric")
	}
	if _, ok := snap.Counters[MetricDecodeLatency]; ok {
		t.Fatal("expected latency metric to be excluded from counters")
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)
	m.Inc(MetricLoginFailure)
	m.Observe(MetricDecodeLatency, 80*time.Microsecond)

	snap := m.Snapshot()

	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected MetricLoginSuccess=1 got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 2 {
		t.Fatalf("expected MetricLoginFailure=2 got %d", snap.Counters[MetricLoginFailure])
	}
	if snap.Histograms[MetricDecodeLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricDecodeLatency][0])
	}
}

func TestEngineCountsLoginOutcomes(t *testing.T) {
	h := newTestHarness(t, func(cfg *Config) {
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true
	})
	h.addUser(t, "alice@example.com", "correct-password", RoleUser)

	ctx := context.Background()
	res, err := h.engine.Login(ctx, "alice@example.com", "correct-password")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := h.engine.Login(ctx, "alice@example.com", "wrong-password"); err == nil {
		t.Fatal("expected wrong password to fail")
	}
	if _, err := h.engine.DecodeSession(ctx, res.Token); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	snap := h.engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 || snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("unexpected login counters: %+v", snap.Counters)
	}
	if snap.Counters[MetricSessionIssued] != 1 {
		t.Fatalf("expected one issued session, got %d", snap.Counters[MetricSessionIssued])
	}
	var observed uint64
	for _, v := range snap.Histograms[MetricDecodeLatency] {
		observed += v
	}
	if observed != 1 {
		t.Fatalf("expected one decode latency sample, got %d", observed)
	}
}

func TestDecodeLatencyBucketBounds(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{100 * time.Microsecond, 0},
		{101 * time.Microsecond, 1},
		{time.Millisecond, 3},
		{10 * time.Millisecond, 6},
		{11 * time.Millisecond, 7},
		{time.Hour, 7},
	}
	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tc.d, got, tc.want)
		}
	}
}

func TestMetricsIncIgnoresHistogramID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricDecodeLatency)
	m.Observe(MetricDecodeLatency, 300*time.Microsecond)

	snap := m.Snapshot()
	if _, ok := snap.Counters[MetricDecodeLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
	if got := snap.Histograms[MetricDecodeLatency][2]; got != 1 {
		t.Fatalf("expected one observation in the 0.5ms bucket, got %d", got)
	}
}
