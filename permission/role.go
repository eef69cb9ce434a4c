package permission

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned when a role name is not part of the closed role set.
var ErrUnknownRole = errors.New("unknown role")

// Role is the closed set of user roles.
type Role uint8

const (
	// RoleUnknown is the zero value. It never satisfies an authorization check.
	RoleUnknown Role = iota
	// RoleUser is the default role for registered accounts.
	RoleUser
	// RoleEditor may manage content sections.
	RoleEditor
	// RoleAdmin may manage users and roles.
	RoleAdmin
	// RoleSuperAdmin bypasses permission checks.
	RoleSuperAdmin
)

var roleNames = [...]string{
	RoleUnknown:    "UNKNOWN",
	RoleUser:       "USER",
	RoleEditor:     "EDITOR",
	RoleAdmin:      "ADMIN",
	RoleSuperAdmin: "SUPER_ADMIN",
}

// Roles returns every valid role in ascending privilege order.
func Roles() []Role {
	return []Role{RoleUser, RoleEditor, RoleAdmin, RoleSuperAdmin}
}

// String returns the canonical upper-case role name.
func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEditor, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// ParseRole converts a canonical role name into a [Role]. Matching is
// case-insensitive; unknown names return [ErrUnknownRole].
func ParseRole(name string) (Role, error) {
	canonical := strings.ToUpper(strings.TrimSpace(name))
	for _, r := range Roles() {
		if roleNames[r] == canonical {
			return r, nil
		}
	}
	return RoleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// In reports whether r is exactly one of allowed.
func (r Role) In(allowed ...Role) bool {
	if !r.Valid() {
		return false
	}
	for _, candidate := range allowed {
		if candidate == r {
			return true
		}
	}
	return false
}
