package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Policy is an attempt budget: at most MaxAttempts hits per Window.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

func (p Policy) enabled() bool {
	return p.MaxAttempts > 0 && p.Window > 0
}

// Limiter counts hits per key.
//
// Check fails once a key has used up its budget; Hit records one attempt; Allow
// records one attempt and fails when that attempt exceeds the budget; Reset
// forgets the key.
type Limiter interface {
	Check(ctx context.Context, key string) error
	Hit(ctx context.Context, key string) error
	Allow(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// LoginUserKey is the key for failed logins of an identifier.
func LoginUserKey(identifier string) string { return "wal:u:" + identifier }

// LoginIPKey is the key for failed logins from an IP.
func LoginIPKey(ip string) string { return "wal:i:" + ip }

// ResetRequestKey is the key for password reset requests of an identifier.
func ResetRequestKey(identifier string) string { return "war:" + identifier }

// Redis enforces a [Policy] with Redis fixed-window counters.
type Redis struct {
	redis  redis.UniversalClient
	policy Policy
}

// NewRedis creates a Redis-backed [Limiter].
func NewRedis(redisClient redis.UniversalClient, policy Policy) *Redis {
	return &Redis{
		redis:  redisClient,
		policy: policy,
	}
}

// Check returns ErrRateLimited when key already reached MaxAttempts in the current window.
func (l *Redis) Check(ctx context.Context, key string) error {
	if !l.policy.enabled() {
		return nil
	}
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.policy.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Hit records a failed attempt.
func (l *Redis) Hit(ctx context.Context, key string) error {
	if !l.policy.enabled() {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, key)
	return err
}

// Allow records an attempt and rejects it when it exceeds the budget.
func (l *Redis) Allow(ctx context.Context, key string) error {
	if !l.policy.enabled() {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, key)
	if err != nil {
		return err
	}
	if count > int64(l.policy.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter. Called after a successful login.
func (l *Redis) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Redis) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.policy.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
