package webAuth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/webAuth/internal"
	"github.com/MrEthical07/webAuth/internal/rate"
)

// RequestPasswordReset issues a single-use reset token for email and returns it
// so the caller can deliver it. Any earlier pending token is replaced.
//
// Unknown emails return ErrUserNotFound; HTTP layers that do not want to reveal
// account existence should answer the same way in both cases.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if !e.config.PasswordReset.Enabled {
		return "", ErrPasswordResetDisabled
	}

	email = normalizeEmail(email)
	if err := e.validate.Struct(emailInput{Email: email}); err != nil {
		return "", err
	}

	if err := e.resetLimiter.Allow(ctx, rate.ResetRequestKey(email)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricPasswordResetRateLimited)
			e.emitAudit(ctx, auditEventPasswordResetThrottled, false, "", "", ErrPasswordResetRateLimited, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return "", ErrPasswordResetRateLimited
		}
		e.logger.ErrorContext(ctx, "reset throttle unavailable", "err", err)
		return "", storeError(err)
	}

	user, err := e.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", "", ErrUserNotFound, nil)
			return "", ErrUserNotFound
		}
		e.logger.ErrorContext(ctx, "user lookup failed", "err", err)
		return "", storeError(err)
	}

	token, digest, err := internal.NewResetToken()
	if err != nil {
		return "", err
	}
	expiresAt := e.now().UTC().Add(e.config.PasswordReset.TokenTTL)
	if _, err := e.store.UpdateUser(ctx, user.ID, UserUpdate{
		ResetToken: &ResetToken{Hash: digest, ExpiresAt: expiresAt},
	}); err != nil {
		e.logger.ErrorContext(ctx, "store reset token failed", "user_id", user.ID, "err", err)
		return "", storeError(err)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, "", nil, nil)
	return token, nil
}

// ConfirmPasswordReset sets newPassword on the account holding token and
// consumes the token. A token is accepted at most once, even under concurrent
// confirmations; unknown, expired and used tokens return ErrPasswordResetInvalid.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !e.config.PasswordReset.Enabled {
		return ErrPasswordResetDisabled
	}

	if err := e.validate.Struct(newPasswordInput{Password: newPassword}); err != nil {
		return err
	}
	if err := internal.ValidResetToken(token); err != nil {
		return e.resetFailed(ctx, ErrPasswordResetInvalid)
	}

	digest, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	now := e.now().UTC()
	user, err := e.store.ConsumeResetToken(ctx, internal.HashToken(token), now, digest)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return e.resetFailed(ctx, ErrPasswordResetInvalid)
		}
		e.logger.ErrorContext(ctx, "consume reset token failed", "err", err)
		return storeError(err)
	}

	if e.config.PasswordReset.RevokeSessions && e.revocations != nil {
		cutoff := now.Truncate(time.Second).Add(time.Second)
		if err := e.revocations.RevokeUserBefore(ctx, user.ID, cutoff, e.config.Session.TTL); err != nil {
			e.logger.ErrorContext(ctx, "revoke sessions after reset failed", "user_id", user.ID, "err", err)
		} else {
			e.metricInc(MetricSessionRevoked)
		}
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, user.ID, "", nil, nil)
	return nil
}

func (e *Engine) resetFailed(ctx context.Context, cause error) error {
	e.metricInc(MetricPasswordResetConfirmFailure)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", "", cause, nil)
	return cause
}
