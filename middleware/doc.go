// Package middleware exposes net/http adapters for the webAuth route guard and
// handler-level role and permission checks.
//
// # Guards
//
//   - [Guard] runs Engine.Decide for every request and applies the decision.
//   - [RequireRole] rejects sessions whose role is not listed with 403.
//   - [RequirePermission] rejects sessions lacking a permission with 403.
//
// Guard reads the session cookie, deletes it when it no longer decodes, answers
// redirects with 307 and stores the session in the request context for
// downstream handlers.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself; every decision is delegated to the Engine.
//
// # What this package must NOT do
//
//   - Parse or create session tokens directly (delegates to Engine).
//   - Access Redis or the credential store (Engine handles I/O).
package middleware
