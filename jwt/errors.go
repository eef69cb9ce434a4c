package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Reason classifies why a token was rejected.
type Reason uint8

const (
	// ReasonMalformed covers empty, truncated, or non-JWT input.
	ReasonMalformed Reason = iota + 1
	// ReasonSignature covers bad signatures, wrong algorithms, and unknown keys.
	ReasonSignature
	// ReasonExpired covers tokens past their expiry.
	ReasonExpired
	// ReasonClaims covers structurally valid tokens with unacceptable claims.
	ReasonClaims
)

func (r Reason) String() string {
	switch r {
	case ReasonMalformed:
		return "malformed"
	case ReasonSignature:
		return "signature"
	case ReasonExpired:
		return "expired"
	case ReasonClaims:
		return "claims"
	default:
		return "unknown"
	}
}

// DecodeError reports a rejected token.
type DecodeError struct {
	Reason Reason
	Err    error
}

func (e *DecodeError) Error() string {
	return "session token " + e.Reason.String() + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the rejection reason from err, or 0 when err is not a decode failure.
func ReasonOf(err error) Reason {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason
	}
	return 0
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	default:
		return ReasonClaims
	}
}
