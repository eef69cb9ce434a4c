// Package webAuth provides cookie-session authentication and role-based
// authorization for server-rendered web applications.
//
// Sessions are stateless signed tokens carried in an HttpOnly cookie. An
// [Engine] is assembled once through [Builder.Build] and is safe to call from
// multiple goroutines afterwards.
//
// # Architecture boundaries
//
// webAuth is the public surface. It exposes [Engine], [Builder], [Config], the
// [CredentialStore] port and value types ([User], [Session], [Decision]).
// Token encoding lives in jwt/, password hashing in password/, roles and route
// classification in permission/, cookies and the revocation list in session/.
// Throttling, audit dispatch and the TOTP replay guard live under internal/.
//
// # What this package must NOT do
//
//   - Persist sessions. Revocation is an opt-in Redis hook, not a session store.
//   - Log plaintext passwords, reset tokens or TOTP secrets.
//   - Import a store package. Stores import webAuth, never the other way round.
//
// # Route guard
//
// [Engine.Decide] classifies a request path against [Config].Routes and returns
// a [Decision]. middleware/ applies decisions to net/http and middleware/ginguard
// to Gin.
package webAuth
