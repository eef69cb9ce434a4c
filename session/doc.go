// Package session holds the stateless [Session] model, the session cookie helpers, and
// an optional Redis-backed revocation list.
//
// # Statelessness
//
// A [Session] lives only inside a signed token. It is never persisted and never
// mutated; role or permission changes take effect on the next issuance.
//
// # Revocation
//
// [RevocationList] is an opt-in extension: it remembers revoked token ids until
// their natural expiry and per-user "not before" cut-offs. Without it, a token stays
// valid until it expires.
//
// # What this package must NOT do
//
//   - Import webAuth or jwt (no upward imports).
//   - Sign, verify, or parse tokens.
//   - Perform application-level authorization decisions.
package session
