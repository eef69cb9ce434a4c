package rate

import "errors"

var (
	// ErrRateLimited is returned when a key has exhausted its attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable is returned when the Redis backend cannot be reached.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
