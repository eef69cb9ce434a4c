package webAuth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/webAuth/internal/audit"
	"github.com/MrEthical07/webAuth/internal/rate"
	"github.com/MrEthical07/webAuth/internal/stores"
	"github.com/MrEthical07/webAuth/jwt"
	"github.com/MrEthical07/webAuth/password"
	"github.com/MrEthical07/webAuth/permission"
	"github.com/MrEthical07/webAuth/session"
	"github.com/google/uuid"
)

// Engine runs the authentication flows and authorization decisions.
//
// Engine instances are immutable after [Builder.Build] and safe for concurrent use.
type Engine struct {
	config       Config
	store        CredentialStore
	hasher       password.Hasher
	codec        *jwt.Manager
	totp         *totpManager
	validate     *inputValidator
	loginLimiter rate.Limiter
	resetLimiter rate.Limiter
	revocations  *session.RevocationList
	totpReplay   *stores.TOTPReplayStore
	audit        *audit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
	dummyHash    string
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.codec == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return nil
}

/*
====================================
COOKIES
====================================
*/

// CookieConfig returns the session cookie attributes derived from Config.
func (e *Engine) CookieConfig() session.CookieConfig {
	return session.CookieConfig{
		Name:     e.config.Session.CookieName,
		Path:     e.config.Session.CookiePath,
		Domain:   e.config.Session.CookieDomain,
		Secure:   e.config.Security.ProductionMode,
		SameSite: e.config.Session.SameSite,
	}
}

// SessionCookie wraps token in the session cookie.
func (e *Engine) SessionCookie(token string) *http.Cookie {
	return session.NewCookie(e.CookieConfig(), token, e.config.Session.TTL, e.now())
}

// ExpiredSessionCookie returns a cookie that deletes the session cookie.
func (e *Engine) ExpiredSessionCookie() *http.Cookie {
	return session.ExpiredCookie(e.CookieConfig())
}

// SessionToken extracts the session token from r, or "".
func (e *Engine) SessionToken(r *http.Request) string {
	return session.TokenFromRequest(r, e.CookieConfig())
}

/*
====================================
SESSIONS
====================================
*/

func (e *Engine) issueFor(ctx context.Context, user User) (*LoginResult, error) {
	perms, err := e.store.FindPermissionsForUser(ctx, user.ID)
	if err != nil {
		e.logger.ErrorContext(ctx, "permission lookup failed", "user_id", user.ID, "err", err)
		return nil, storeError(err)
	}
	e.metricInc(MetricPermissionLookup)

	issuedAt := e.now().UTC().Truncate(time.Second)
	s := Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		Permissions: permission.NewSet(perms...),
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(e.config.Session.TTL),
	}

	token, err := e.codec.Issue(s)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricSessionIssued)

	return &LoginResult{Token: token, Session: s}, nil
}

// DecodeSession verifies token and returns its session.
//
// Every malformed, tampered, expired or revoked token yields ErrTokenInvalid. A
// revocation list that cannot be reached yields a wrapped ErrStoreUnavailable.
func (e *Engine) DecodeSession(ctx context.Context, token string) (Session, error) {
	if err := e.ready(); err != nil {
		return Session{}, err
	}
	if token == "" {
		return Session{}, ErrTokenInvalid
	}

	start := time.Now()
	s, err := e.codec.Decode(token)
	if e.metrics != nil && e.config.Metrics.EnableLatencyHistograms {
		e.metrics.Observe(MetricDecodeLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricSessionInvalid)
		e.logger.DebugContext(ctx, "session token rejected", "reason", jwt.ReasonOf(err).String())
		e.emitAudit(ctx, auditEventSessionInvalid, false, "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{"reason": jwt.ReasonOf(err).String()}
		})
		return Session{}, ErrTokenInvalid
	}

	if e.revocations != nil {
		revoked, err := e.revocations.IsRevoked(ctx, s)
		if err != nil {
			e.logger.ErrorContext(ctx, "revocation check failed", "user_id", s.UserID, "err", err)
			return Session{}, storeError(err)
		}
		if revoked {
			e.metricInc(MetricSessionInvalid)
			return Session{}, ErrTokenInvalid
		}
	}

	return s, nil
}

func (e *Engine) lookupUser(ctx context.Context, id string) (User, error) {
	user, err := e.store.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		e.logger.ErrorContext(ctx, "user lookup failed", "user_id", id, "err", err)
		return User{}, storeError(err)
	}
	return user, nil
}
