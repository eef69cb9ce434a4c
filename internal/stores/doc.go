// Package stores provides short-lived Redis records for authentication flows.
//
// The only record today is the TOTP replay marker: one key per (user, time-step)
// pair, created with SETNX and expiring once the step can no longer verify.
//
// # What this package must NOT do
//
//   - Import webAuth or any sibling internal package.
//   - Store TOTP secrets or codes.
package stores
