package webAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/webAuth/internal/rate"
)

// Login authenticates email and password and issues a session.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials. Accounts
// with two-factor enabled return ErrTOTPRequired; use [Engine.LoginWithTOTP].
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return e.login(ctx, email, password, "")
}

// LoginWithTOTP is Login with a second factor. The code is ignored for accounts
// without two-factor.
func (e *Engine) LoginWithTOTP(ctx context.Context, email, password, code string) (*LoginResult, error) {
	return e.login(ctx, email, password, code)
}

func (e *Engine) login(ctx context.Context, email, password, code string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if err := e.validate.Struct(credentialsInput{Email: email, Password: password}); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, nil)
		return nil, err
	}

	if err := e.checkLoginThrottle(ctx, email); err != nil {
		return nil, err
	}

	user, err := e.store.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			e.logger.ErrorContext(ctx, "user lookup failed", "err", err)
			return nil, storeError(err)
		}
		_, _ = e.hasher.Verify(password, e.dummyHash)
		return nil, e.loginFailed(ctx, email, "", ErrInvalidCredentials)
	}

	ok, err := e.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		e.logger.WarnContext(ctx, "stored password hash rejected", "user_id", user.ID, "err", err)
	}
	if !ok {
		return nil, e.loginFailed(ctx, email, user.ID, ErrInvalidCredentials)
	}

	if user.TwoFactorEnabled {
		if e.totp == nil {
			return nil, ErrTOTPFeatureDisabled
		}
		if strings.TrimSpace(code) == "" {
			e.metricInc(MetricTOTPRequired)
			e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", ErrTOTPRequired, nil)
			return nil, ErrTOTPRequired
		}
		if err := e.checkTOTPCode(ctx, user, code); err != nil {
			if errors.Is(err, ErrTOTPInvalid) {
				return nil, e.loginFailed(ctx, email, user.ID, err)
			}
			return nil, err
		}
	}

	e.resetLoginThrottle(ctx, email)
	e.upgradePasswordHash(ctx, user, password)

	result, err := e.issueFor(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, result.Session.ID, nil, nil)
	return result, nil
}

func (e *Engine) checkLoginThrottle(ctx context.Context, email string) error {
	keys := []string{rate.LoginUserKey(email)}
	if ip := clientIPFromContext(ctx); e.config.Security.EnableIPThrottle && ip != "" {
		keys = append(keys, rate.LoginIPKey(ip))
	}
	for _, key := range keys {
		if err := e.loginLimiter.Check(ctx, key); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
					return map[string]string{"identifier": email}
				})
				return ErrLoginRateLimited
			}
			e.logger.ErrorContext(ctx, "login throttle unavailable", "err", err)
			return storeError(err)
		}
	}
	return nil
}

// loginFailed records a failed attempt against the throttle and returns cause.
func (e *Engine) loginFailed(ctx context.Context, email, userID string, cause error) error {
	if err := e.loginLimiter.Hit(ctx, rate.LoginUserKey(email)); err != nil {
		e.logger.WarnContext(ctx, "login throttle hit failed", "err", err)
	}
	if ip := clientIPFromContext(ctx); e.config.Security.EnableIPThrottle && ip != "" {
		if err := e.loginLimiter.Hit(ctx, rate.LoginIPKey(ip)); err != nil {
			e.logger.WarnContext(ctx, "login throttle hit failed", "err", err)
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", cause, nil)
	return cause
}

func (e *Engine) resetLoginThrottle(ctx context.Context, email string) {
	if err := e.loginLimiter.Reset(ctx, rate.LoginUserKey(email)); err != nil {
		e.logger.WarnContext(ctx, "login throttle reset failed", "err", err)
	}
}

// upgradePasswordHash re-hashes with the primary algorithm when the stored
// digest is weaker. Failures are logged and never fail the login.
func (e *Engine) upgradePasswordHash(ctx context.Context, user User, password string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	upgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	digest, err := e.hasher.Hash(password)
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID, "err", err)
		return
	}
	if _, err := e.store.UpdateUser(ctx, user.ID, UserUpdate{PasswordHash: &digest}); err != nil {
		e.logger.WarnContext(ctx, "password rehash not stored", "user_id", user.ID, "err", err)
		return
	}
	e.metricInc(MetricPasswordRehash)
}

// Register creates an account with Config.Account.DefaultRole and signs it in.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.config.Account.AllowRegistration {
		return nil, ErrRegistrationDisabled
	}

	in := registerInput{
		Email:    normalizeEmail(req.Email),
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
	}
	if err := e.validate.Struct(in); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	digest, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := e.store.CreateUser(ctx, NewUser{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: digest,
		Role:         e.config.Account.DefaultRole,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrAccountExists, nil)
			return nil, ErrAccountExists
		}
		e.logger.ErrorContext(ctx, "create user failed", "err", err)
		return nil, storeError(err)
	}

	result, err := e.issueFor(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, result.Session.ID, nil, nil)
	return result, nil
}

// Logout ends the session carried by token. It is idempotent: invalid or
// already revoked tokens return nil. Without a revocation list the token stays
// cryptographically valid until it expires; callers still delete the cookie.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if err := e.ready(); err != nil {
		return err
	}
	s, err := e.DecodeSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return nil
		}
		return err
	}

	if e.revocations != nil {
		if err := e.revocations.Revoke(ctx, s, e.now()); err != nil {
			e.logger.ErrorContext(ctx, "session revoke failed", "user_id", s.UserID, "err", err)
			return storeError(err)
		}
		e.metricInc(MetricSessionRevoked)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, s.UserID, s.ID, nil, nil)
	return nil
}

// Profile returns the stored account behind s with secrets removed.
func (e *Engine) Profile(ctx context.Context, s Session) (User, error) {
	if err := e.ready(); err != nil {
		return User{}, err
	}
	user, err := e.lookupUser(ctx, s.UserID)
	if err != nil {
		return User{}, err
	}
	user.PasswordHash = ""
	user.TwoFactorSecret = ""
	user.ResetTokenHash = ""
	return user, nil
}
