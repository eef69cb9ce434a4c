// Package ginguard applies the webAuth route guard to Gin routers.
package ginguard

import (
	"net/http"

	"github.com/MrEthical07/webAuth"
	"github.com/gin-gonic/gin"
)

// SessionKey is the gin.Context key under which Guard stores *webAuth.Session.
const SessionKey = "webauth.session"

// Guard runs Engine.Decide for every request handled by the router group.
func Guard(engine *webAuth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		ctx := webAuth.WithClientIP(c.Request.Context(), c.ClientIP())
		d := engine.Decide(ctx, c.Request.URL.Path, engine.SessionToken(c.Request))

		if d.ClearCookie {
			http.SetCookie(c.Writer, engine.ExpiredSessionCookie())
		}
		if d.Kind == webAuth.DecisionRedirect {
			c.Redirect(http.StatusTemporaryRedirect, d.Target)
			c.Abort()
			return
		}

		if d.Session != nil {
			c.Set(SessionKey, d.Session)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Session returns the session stored by Guard.
func Session(c *gin.Context) (*webAuth.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*webAuth.Session)
	return s, ok && s != nil
}

// RequireRole aborts with 403 unless the session role is one of allowed.
func RequireRole(engine *webAuth.Engine, allowed ...webAuth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := Session(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !engine.HasRole(*s, allowed...) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
