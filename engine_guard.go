package webAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/webAuth/permission"
)

// DecisionKind is the outcome of a route guard evaluation.
type DecisionKind uint8

const (
	// DecisionAllow lets the request through.
	DecisionAllow DecisionKind = iota
	// DecisionRedirect sends the client to Decision.Target.
	DecisionRedirect
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the route guard verdict for one request.
//
// ClearCookie is set whenever a session token was presented but did not
// decode. Session is set for authenticated requests.
type Decision struct {
	Kind        DecisionKind
	Target      string
	ClearCookie bool
	Session     *Session
}

// Decide classifies path and decides whether a request carrying token may
// proceed. An empty token means no session cookie was sent.
//
// The rules are applied in order:
//  1. unauthenticated on a protected, non auth-flow path redirects to the login path;
//  2. authenticated without the role the path needs redirects to the unauthorized path,
//     and a session whose role is not recognized is redirected there from any
//     classified path;
//  3. authenticated on an auth-flow path redirects to the landing path;
//  4. anything else is allowed.
//
// A revocation backend failure fails closed: the request is treated as
// unauthenticated but the cookie is kept.
func (e *Engine) Decide(ctx context.Context, path, token string) Decision {
	class := e.config.Routes.Table.Classify(path)

	var (
		current     *Session
		clearCookie bool
	)
	if token != "" {
		s, err := e.DecodeSession(ctx, token)
		switch {
		case err == nil:
			current = &s
		case errors.Is(err, ErrTokenInvalid):
			clearCookie = true
		default:
			e.logger.WarnContext(ctx, "session check failed", "path", path, "err", err)
		}
	}

	if current == nil {
		if class.Has(permission.ClassProtected) && !class.Has(permission.ClassAuthFlow) {
			return Decision{Kind: DecisionRedirect, Target: e.config.Routes.LoginPath, ClearCookie: clearCookie}
		}
		return Decision{Kind: DecisionAllow, ClearCookie: clearCookie}
	}

	if class != 0 && !class.Permits(current.Role) {
		e.metricInc(MetricAccessDenied)
		e.emitAudit(ctx, auditEventAccessDenied, false, current.UserID, current.ID, ErrPermissionDenied, func() map[string]string {
			return map[string]string{"path": path}
		})
		return Decision{Kind: DecisionRedirect, Target: e.config.Routes.UnauthorizedPath, Session: current}
	}

	if class.Has(permission.ClassAuthFlow) {
		return Decision{Kind: DecisionRedirect, Target: e.config.Routes.LandingPath, Session: current}
	}

	return Decision{Kind: DecisionAllow, Session: current}
}
