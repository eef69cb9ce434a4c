package session

import (
	"net/http"
	"time"
)

// DefaultCookieName is the cookie that carries the session token.
const DefaultCookieName = "session"

// CookieConfig describes how the session cookie is emitted.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// NewCookie returns the session cookie for token, valid for ttl from now.
// The cookie is always HttpOnly.
func NewCookie(cfg CookieConfig, token string, ttl time.Duration, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     cookieName(cfg),
		Value:    token,
		Path:     cookiePath(cfg),
		Domain:   cfg.Domain,
		Expires:  now.Add(ttl).UTC(),
		MaxAge:   int(ttl / time.Second),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: sameSite(cfg),
	}
}

// ExpiredCookie returns a cookie that instructs the client to delete the session.
func ExpiredCookie(cfg CookieConfig) *http.Cookie {
	return &http.Cookie{
		Name:     cookieName(cfg),
		Value:    "",
		Path:     cookiePath(cfg),
		Domain:   cfg.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: sameSite(cfg),
	}
}

// TokenFromRequest returns the session token carried by r, or "" when absent.
func TokenFromRequest(r *http.Request, cfg CookieConfig) string {
	c, err := r.Cookie(cookieName(cfg))
	if err != nil {
		return ""
	}
	return c.Value
}

func cookieName(cfg CookieConfig) string {
	if cfg.Name == "" {
		return DefaultCookieName
	}
	return cfg.Name
}

func cookiePath(cfg CookieConfig) string {
	if cfg.Path == "" {
		return "/"
	}
	return cfg.Path
}

func sameSite(cfg CookieConfig) http.SameSite {
	if cfg.SameSite == 0 {
		return http.SameSiteLaxMode
	}
	return cfg.SameSite
}
