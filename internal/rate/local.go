package rate

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const localSweepThreshold = 10_000

// Local enforces a [Policy] with per-key token buckets held in memory.
//
// Each bucket holds MaxAttempts tokens and refills fully over Window, so the
// budget recovers gradually instead of at a window edge.
type Local struct {
	policy  Policy
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	now     func() time.Time
}

// NewLocal creates an in-process [Limiter].
func NewLocal(policy Policy) *Local {
	return &Local{
		policy:  policy,
		buckets: make(map[string]*rate.Limiter),
		now:     time.Now,
	}
}

func (l *Local) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	if len(l.buckets) >= localSweepThreshold {
		l.sweepLocked()
	}
	every := l.policy.Window / time.Duration(l.policy.MaxAttempts)
	b := rate.NewLimiter(rate.Every(every), l.policy.MaxAttempts)
	l.buckets[key] = b
	return b
}

// sweepLocked drops buckets that have fully refilled; they carry no state.
func (l *Local) sweepLocked() {
	now := l.now()
	for key, b := range l.buckets {
		if b.TokensAt(now) >= float64(l.policy.MaxAttempts) {
			delete(l.buckets, key)
		}
	}
}

// Check returns ErrRateLimited when key has no attempts left.
func (l *Local) Check(_ context.Context, key string) error {
	if !l.policy.enabled() {
		return nil
	}
	if l.bucket(key).TokensAt(l.now()) < 1 {
		return ErrRateLimited
	}
	return nil
}

// Hit consumes one attempt if any remain.
func (l *Local) Hit(_ context.Context, key string) error {
	if !l.policy.enabled() {
		return nil
	}
	l.bucket(key).AllowN(l.now(), 1)
	return nil
}

// Allow consumes one attempt and fails when none remain.
func (l *Local) Allow(_ context.Context, key string) error {
	if !l.policy.enabled() {
		return nil
	}
	if !l.bucket(key).AllowN(l.now(), 1) {
		return ErrRateLimited
	}
	return nil
}

// Reset forgets key.
func (l *Local) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
	return nil
}
