// Package jwt encodes [session.Session] values into signed, self-contained tokens and
// decodes them back with strict validation.
//
// # Validation
//
// The signature is verified before any claim is trusted. The signing algorithm is
// pinned by configuration, expiry is mandatory, and issuer/audience are enforced when
// configured. Optional key ids allow rotating secrets without invalidating every
// outstanding token at once.
//
// # Failure reasons
//
// [Manager.Decode] returns a [*DecodeError] whose [Reason] tells malformed, tampered,
// and expired tokens apart for diagnostics. Callers are expected to collapse all
// reasons into a single "invalid token" outcome before anything reaches a client.
package jwt
