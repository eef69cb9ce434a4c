package webAuth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation is returned when request input fails validation. The concrete
	// error is a *ValidationError carrying per-field messages.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidOrExpired is the common cause of rejected reset tokens and TOTP codes.
	ErrInvalidOrExpired = errors.New("invalid or expired")
	// ErrPasswordResetInvalid is returned when a reset token is unknown, expired, or used.
	ErrPasswordResetInvalid = fmt.Errorf("password reset token: %w", ErrInvalidOrExpired)
	// ErrTOTPInvalid is returned when a TOTP code does not verify.
	ErrTOTPInvalid = fmt.Errorf("totp code: %w", ErrInvalidOrExpired)
	// ErrTokenInvalid is returned for any malformed, unsigned, tampered, expired, or revoked session token.
	ErrTokenInvalid = errors.New("session token invalid")
	// ErrUserNotFound is returned when an operation targets a user that does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned when registering an email that is already in use.
	ErrAccountExists = errors.New("account already exists")
	// ErrRegistrationDisabled is returned when self-service registration is turned off.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrTOTPRequired is returned by Login when the account has two-factor enabled.
	ErrTOTPRequired = errors.New("totp required")
	// ErrTOTPNotEnabled is returned when verifying TOTP for an account without it.
	ErrTOTPNotEnabled = errors.New("totp not enabled")
	// ErrTOTPAlreadyEnabled is returned when enrolling an account that already has TOTP.
	ErrTOTPAlreadyEnabled = errors.New("totp already enabled")
	// ErrTOTPFeatureDisabled is returned when TOTP operations are turned off by config.
	ErrTOTPFeatureDisabled = errors.New("totp feature disabled")
	// ErrPasswordResetDisabled is returned when password reset is turned off by config.
	ErrPasswordResetDisabled = errors.New("password reset disabled")
	// ErrLoginRateLimited is returned when too many failed logins were recorded.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrPasswordResetRateLimited is returned when too many reset requests were made.
	ErrPasswordResetRateLimited = errors.New("password reset rate limited")
	// ErrPermissionDenied is returned by authorization helpers that deny access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrStoreUnavailable wraps failures of the credential store or Redis.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned when a nil or unbuilt Engine is used.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrRecordNotFound is returned by CredentialStore implementations when the
	// requested user or reset token does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrConflict is returned by CredentialStore implementations when a
	// conditional update matched nothing because the row was in the wrong state.
	ErrConflict = errors.New("conflicting update")
)

// ValidationError lists field-level validation failures.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func storeError(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
