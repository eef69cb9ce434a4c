package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/MrEthical07/webAuth"
)

type sessionContextKey struct{}

// SessionFromContext returns the session stored by Guard.
func SessionFromContext(ctx context.Context) (*webAuth.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*webAuth.Session)
	return s, ok && s != nil
}

// WithSession stores s in ctx the way Guard does.
func WithSession(ctx context.Context, s *webAuth.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// Guard applies Engine.Decide to every request.
func Guard(engine *webAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := webAuth.WithClientIP(r.Context(), ClientIP(r))
			d := engine.Decide(ctx, r.URL.Path, engine.SessionToken(r))

			if d.ClearCookie {
				http.SetCookie(w, engine.ExpiredSessionCookie())
			}
			if d.Kind == webAuth.DecisionRedirect {
				http.Redirect(w, r, d.Target, http.StatusTemporaryRedirect)
				return
			}

			if d.Session != nil {
				ctx = WithSession(ctx, d.Session)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the remote host of r without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
