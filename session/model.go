package session

import (
	"time"

	"github.com/MrEthical07/webAuth/permission"
)

// Session is the authenticated identity carried by a session token.
//
// Times have second precision and are expressed in UTC so that a decoded token
// reproduces the issued value exactly.
type Session struct {
	ID          string
	UserID      string
	Email       string
	Name        string
	Role        permission.Role
	Permissions permission.Set
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TTL returns the remaining lifetime at now, or zero when expired.
func (s Session) TTL(now time.Time) time.Duration {
	if s.Expired(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
