// Package httpapi exposes the engine's account flows as JSON endpoints.
//
// Mount Routes behind middleware.Guard so authenticated endpoints find the
// session in the request context.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/webAuth"
	"github.com/MrEthical07/webAuth/middleware"
)

const maxBodyBytes = 1 << 20

// ResetNotifier delivers password reset tokens out of band, usually by email.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, token string) error
}

// ResetNotifierFunc adapts a function to ResetNotifier.
type ResetNotifierFunc func(ctx context.Context, email, token string) error

func (f ResetNotifierFunc) NotifyPasswordReset(ctx context.Context, email, token string) error {
	return f(ctx, email, token)
}

// Handler serves the account API.
type Handler struct {
	engine   *webAuth.Engine
	notifier ResetNotifier
	logger   *slog.Logger
}

// New returns a Handler. A nil notifier makes forgot-password requests
// succeed without delivering anything.
func New(engine *webAuth.Engine, notifier ResetNotifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, notifier: notifier, logger: logger}
}

// Routes registers every endpoint under /api.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", h.login)
	mux.HandleFunc("POST /api/register", h.register)
	mux.HandleFunc("POST /api/logout", h.logout)
	mux.HandleFunc("POST /api/password/forgot", h.forgotPassword)
	mux.HandleFunc("POST /api/password/reset", h.resetPassword)
	mux.HandleFunc("GET /api/profile", h.authenticated(h.profile))
	mux.HandleFunc("POST /api/2fa/setup", h.authenticated(h.setupTOTP))
	mux.HandleFunc("POST /api/2fa/confirm", h.authenticated(h.confirmTOTP))
	mux.HandleFunc("POST /api/2fa/disable", h.authenticated(h.disableTOTP))
	return mux
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s webAuth.Session)

func (h *Handler) authenticated(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
			return
		}
		next(w, r, *s)
	}
}

type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) startSession(w http.ResponseWriter, status int, res *webAuth.LoginResult) {
	http.SetCookie(w, h.engine.SessionCookie(res.Token))
	writeJSON(w, status, sessionResponse{
		UserID:    res.Session.UserID,
		Email:     res.Session.Email,
		Role:      res.Session.Role.String(),
		ExpiresAt: res.Session.ExpiresAt,
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// fail maps engine errors onto HTTP responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *webAuth.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Message: "invalid input", Fields: verr.Fields})
	case errors.Is(err, webAuth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, webAuth.ErrTOTPRequired):
		writeError(w, http.StatusUnauthorized, "totp_required", "two-factor code required")
	case errors.Is(err, webAuth.ErrTOTPInvalid):
		writeError(w, http.StatusUnauthorized, "totp_invalid", "invalid two-factor code")
	case errors.Is(err, webAuth.ErrPasswordResetInvalid):
		writeError(w, http.StatusBadRequest, "reset_invalid", "reset link is invalid or expired")
	case errors.Is(err, webAuth.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "sign in required")
	case errors.Is(err, webAuth.ErrLoginRateLimited), errors.Is(err, webAuth.ErrPasswordResetRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts, try again later")
	case errors.Is(err, webAuth.ErrAccountExists):
		writeError(w, http.StatusConflict, "account_exists", "an account with this email already exists")
	case errors.Is(err, webAuth.ErrTOTPAlreadyEnabled):
		writeError(w, http.StatusConflict, "totp_already_enabled", "two-factor is already enabled")
	case errors.Is(err, webAuth.ErrTOTPNotEnabled):
		writeError(w, http.StatusConflict, "totp_not_enabled", "two-factor is not enabled")
	case errors.Is(err, webAuth.ErrRegistrationDisabled),
		errors.Is(err, webAuth.ErrPasswordResetDisabled),
		errors.Is(err, webAuth.ErrTOTPFeatureDisabled):
		writeError(w, http.StatusForbidden, "disabled", "this feature is disabled")
	case errors.Is(err, webAuth.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "forbidden", "permission denied")
	case errors.Is(err, webAuth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, webAuth.ErrStoreUnavailable):
		h.logger.ErrorContext(r.Context(), "store unavailable", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
