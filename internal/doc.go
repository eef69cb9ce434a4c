// Package internal contains helper utilities that are private to webAuth.
//
// # Sub-packages
//
//   - appconfig: file/env configuration loading for the server binary
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - httpapi: JSON handlers for the authentication flows
//   - rate: failed-attempt throttling (Redis fixed window, local token bucket)
//   - server: process wiring for cmd/webauth-server
//   - stores: Redis-backed TOTP replay guard
//
// # What this package must NOT do
//
//   - Export types that appear in the public webAuth API.
//   - Log or return stored token digests to callers.
package internal
