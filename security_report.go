package webAuth

import (
	"net/http"
	"time"
)

// SecurityReport summarizes the security-relevant settings an Engine runs with.
type SecurityReport struct {
	ProductionMode          bool
	SigningAlgorithm        string
	KeyRotationEnabled      bool
	SessionTTL              time.Duration
	CookieSecure            bool
	SameSite                string
	Password                PasswordConfigReport
	TOTPEnabled             bool
	TOTPReplayProtection    bool
	RevocationEnabled       bool
	LoginRateLimitingActive bool
	IPThrottleActive        bool
	PasswordResetActive     bool
	ResetRateLimitingActive bool
	RegistrationOpen        bool
	DefaultRole             string
}

// PasswordConfigReport lists the hashing cost parameters.
type PasswordConfigReport struct {
	Algorithm   string
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	BcryptCost  int
	MinLength   int
}

// SecurityReport returns the effective security settings of e.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cookie := e.CookieConfig()
	sameSite := "lax"
	switch e.config.Session.SameSite {
	case http.SameSiteStrictMode:
		sameSite = "strict"
	case http.SameSiteNoneMode:
		sameSite = "none"
	}

	return SecurityReport{
		ProductionMode:     e.config.Security.ProductionMode,
		SigningAlgorithm:   e.config.JWT.SigningMethod,
		KeyRotationEnabled: len(e.config.JWT.VerifyKeys) > 0,
		SessionTTL:         e.config.Session.TTL,
		CookieSecure:       cookie.Secure,
		SameSite:           sameSite,
		Password: PasswordConfigReport{
			Algorithm:   e.config.Password.Algorithm,
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
			BcryptCost:  e.config.Password.BcryptCost,
			MinLength:   e.config.Password.MinLength,
		},
		TOTPEnabled:             e.config.TOTP.Enabled,
		TOTPReplayProtection:    e.totpReplay != nil,
		RevocationEnabled:       e.revocations != nil,
		LoginRateLimitingActive: e.config.Security.MaxLoginAttempts > 0 && e.config.Security.LoginCooldownDuration > 0,
		IPThrottleActive:        e.config.Security.EnableIPThrottle,
		PasswordResetActive:     e.config.PasswordReset.Enabled,
		ResetRateLimitingActive: e.config.PasswordReset.MaxRequests > 0,
		RegistrationOpen:        e.config.Account.AllowRegistration,
		DefaultRole:             e.config.Account.DefaultRole.String(),
	}
}

// Warnings lists settings that weaken the deployment, in a stable order.
func (r SecurityReport) Warnings() []string {
	var out []string
	if !r.ProductionMode {
		out = append(out, "production mode is off: session cookies are not marked Secure")
	}
	if !r.RevocationEnabled {
		out = append(out, "revocation is off: logged-out tokens stay valid until they expire")
	}
	if r.TOTPEnabled && !r.TOTPReplayProtection {
		out = append(out, "TOTP replay protection is off: a code can be reused within its window")
	}
	if !r.LoginRateLimitingActive {
		out = append(out, "login rate limiting is off")
	}
	if r.PasswordResetActive && !r.ResetRateLimitingActive {
		out = append(out, "password reset requests are not rate limited")
	}
	return out
}
