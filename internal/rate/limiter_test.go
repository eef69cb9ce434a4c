package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func exerciseFailureBudget(t *testing.T, l Limiter) {
	t.Helper()
	ctx := context.Background()
	key := LoginUserKey("alice@example.com")

	for i := 0; i < 3; i++ {
		if err := l.Check(ctx, key); err != nil {
			t.Fatalf("attempt %d unexpectedly limited: %v", i+1, err)
		}
		if err := l.Hit(ctx, key); err != nil {
			t.Fatalf("hit %d: %v", i+1, err)
		}
	}
	if err := l.Check(ctx, key); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after budget, got %v", err)
	}
	if err := l.Check(ctx, LoginUserKey("bob@example.com")); err != nil {
		t.Fatalf("other keys must be independent: %v", err)
	}

	if err := l.Reset(ctx, key); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.Check(ctx, key); err != nil {
		t.Fatalf("expected reset to clear budget: %v", err)
	}
}

func exerciseRequestBudget(t *testing.T, l Limiter) {
	t.Helper()
	ctx := context.Background()
	key := ResetRequestKey("alice@example.com")

	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, key); err != nil {
			t.Fatalf("request %d unexpectedly limited: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, key); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected fourth request to be limited, got %v", err)
	}
}

func TestRedisLimiterFailureBudget(t *testing.T) {
	_, rdb := newTestRedis(t)
	exerciseFailureBudget(t, NewRedis(rdb, Policy{MaxAttempts: 3, Window: time.Minute}))
}

func TestRedisLimiterRequestBudget(t *testing.T) {
	_, rdb := newTestRedis(t)
	exerciseRequestBudget(t, NewRedis(rdb, Policy{MaxAttempts: 3, Window: time.Minute}))
}

func TestRedisLimiterWindowExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedis(rdb, Policy{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	if err := l.Hit(ctx, "k"); err != nil {
		t.Fatalf("hit: %v", err)
	}
	if err := l.Check(ctx, "k"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limit, got %v", err)
	}
	mr.FastForward(time.Minute + time.Second)
	if err := l.Check(ctx, "k"); err != nil {
		t.Fatalf("expected window to expire: %v", err)
	}
}

func TestRedisLimiterUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedis(rdb, Policy{MaxAttempts: 1, Window: time.Minute})
	mr.Close()

	if err := l.Check(context.Background(), "k"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestLocalLimiterFailureBudget(t *testing.T) {
	exerciseFailureBudget(t, NewLocal(Policy{MaxAttempts: 3, Window: time.Hour}))
}

func TestLocalLimiterRequestBudget(t *testing.T) {
	exerciseRequestBudget(t, NewLocal(Policy{MaxAttempts: 3, Window: time.Hour}))
}

func TestLocalLimiterRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocal(Policy{MaxAttempts: 2, Window: time.Minute})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_ = l.Hit(ctx, "k")
	_ = l.Hit(ctx, "k")
	if err := l.Check(ctx, "k"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limit, got %v", err)
	}

	now = now.Add(31 * time.Second)
	if err := l.Check(ctx, "k"); err != nil {
		t.Fatalf("expected one attempt to refill: %v", err)
	}
}

func TestDisabledPolicyNeverLimits(t *testing.T) {
	l := NewLocal(Policy{})
	for i := 0; i < 10; i++ {
		if err := l.Allow(context.Background(), "k"); err != nil {
			t.Fatalf("disabled policy limited: %v", err)
		}
	}
}
