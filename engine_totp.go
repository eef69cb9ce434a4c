package webAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/webAuth/internal/stores"
)

// BeginTOTPEnrollment generates a secret and provisioning URI for userID.
// Nothing is stored: the caller keeps the secret until ConfirmTOTPEnrollment.
func (e *Engine) BeginTOTPEnrollment(ctx context.Context, userID string) (*TOTPEnrollment, error) {
	if err := e.totpReady(); err != nil {
		return nil, err
	}
	user, err := e.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	enrollment, err := e.totp.Generate(user.Email)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventTOTPSetupRequested, true, user.ID, "", nil, nil)
	return &enrollment, nil
}

// ConfirmTOTPEnrollment enables two-factor for userID if code is valid for
// secret. A wrong code returns ErrTOTPInvalid and leaves the account unchanged.
// Concurrent confirmations commit at most once; the losers get
// ErrTOTPAlreadyEnabled.
func (e *Engine) ConfirmTOTPEnrollment(ctx context.Context, userID, secret, code string) error {
	if err := e.totpReady(); err != nil {
		return err
	}
	user, err := e.lookupUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled {
		return ErrTOTPAlreadyEnabled
	}

	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrTOTPInvalid
	}
	ok := false
	if e.validate.Struct(totpCodeInput{Code: code}) == nil {
		ok, _, _ = e.totp.Verify(secret, code, e.now())
	}
	if !ok {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPFailure, false, user.ID, "", ErrTOTPInvalid, nil)
		return ErrTOTPInvalid
	}

	if err := e.store.CommitTwoFactor(ctx, user.ID, secret); err != nil {
		switch {
		case errors.Is(err, ErrConflict):
			return ErrTOTPAlreadyEnabled
		case errors.Is(err, ErrRecordNotFound):
			return ErrUserNotFound
		}
		e.logger.ErrorContext(ctx, "commit two-factor failed", "user_id", user.ID, "err", err)
		return storeError(err)
	}

	e.metricInc(MetricTOTPEnabled)
	e.emitAudit(ctx, auditEventTOTPEnabled, true, user.ID, "", nil, nil)
	return nil
}

// VerifyTOTP checks code against the enrolled secret of userID.
func (e *Engine) VerifyTOTP(ctx context.Context, userID, code string) error {
	if err := e.totpReady(); err != nil {
		return err
	}
	user, err := e.lookupUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTOTPNotEnabled
	}
	return e.checkTOTPCode(ctx, user, code)
}

// DisableTOTP turns two-factor off for userID and forgets the secret. It does
// not ask for a current code; callers that want step-up verification call
// VerifyTOTP first.
func (e *Engine) DisableTOTP(ctx context.Context, userID string) error {
	if err := e.totpReady(); err != nil {
		return err
	}
	if _, err := e.store.UpdateUser(ctx, userID, UserUpdate{
		TwoFactor: &TwoFactorState{Enabled: false},
	}); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrUserNotFound
		}
		e.logger.ErrorContext(ctx, "disable two-factor failed", "user_id", userID, "err", err)
		return storeError(err)
	}

	e.metricInc(MetricTOTPDisabled)
	e.emitAudit(ctx, auditEventTOTPDisabled, true, userID, "", nil, nil)
	return nil
}

func (e *Engine) totpReady() error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.config.TOTP.Enabled || e.totp == nil {
		return ErrTOTPFeatureDisabled
	}
	return nil
}

// checkTOTPCode verifies code for an enrolled user and, when replay protection
// is on, consumes the matched time step.
func (e *Engine) checkTOTPCode(ctx context.Context, user User, code string) error {
	if e.validate.Struct(totpCodeInput{Code: code}) != nil {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPFailure, false, user.ID, "", ErrTOTPInvalid, nil)
		return ErrTOTPInvalid
	}
	ok, counter, err := e.totp.Verify(user.TwoFactorSecret, code, e.now())
	if err != nil {
		e.logger.WarnContext(ctx, "totp verification error", "user_id", user.ID, "err", err)
	}
	if err != nil || !ok {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPFailure, false, user.ID, "", ErrTOTPInvalid, nil)
		return ErrTOTPInvalid
	}

	if e.totpReplay != nil {
		if err := e.totpReplay.Mark(ctx, user.ID, counter, e.totp.replayWindow()); err != nil {
			if errors.Is(err, stores.ErrTOTPCounterUsed) {
				e.metricInc(MetricTOTPReplayDetected)
				e.emitAudit(ctx, auditEventTOTPFailure, false, user.ID, "", ErrTOTPInvalid, func() map[string]string {
					return map[string]string{"reason": "replay"}
				})
				return ErrTOTPInvalid
			}
			e.logger.ErrorContext(ctx, "totp replay guard unavailable", "user_id", user.ID, "err", err)
			return storeError(err)
		}
	}

	e.metricInc(MetricTOTPSuccess)
	e.emitAudit(ctx, auditEventTOTPSuccess, true, user.ID, "", nil, nil)
	return nil
}
