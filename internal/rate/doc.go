// Package rate throttles repeated authentication attempts.
//
// # Window semantics
//
// [Redis] keeps fixed-window counters: INCR + EXPIRE on first hit. [Local] keeps an
// in-process token bucket per key (golang.org/x/time/rate) for deployments without
// Redis. Both implement [Limiter].
//
// Key prefixes:
//   - wal:u: failed logins per identifier
//   - wal:i: failed logins per IP
//   - war: password reset requests per identifier
//
// # What this package must NOT do
//
//   - Decide what counts as a failure (callers record hits).
//   - Be imported outside the webAuth module.
package rate
