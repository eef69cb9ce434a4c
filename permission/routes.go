package permission

import "strings"

// Classification is a bit set describing how a path is guarded.
type Classification uint8

const (
	// ClassAdmin marks paths restricted to ADMIN and SUPER_ADMIN.
	ClassAdmin Classification = 1 << iota
	// ClassEditor marks paths restricted to EDITOR, ADMIN and SUPER_ADMIN.
	ClassEditor
	// ClassAuthFlow marks login, registration and recovery pages.
	ClassAuthFlow
	// ClassProtected marks paths that require an authenticated session.
	ClassProtected
)

// Has reports whether every flag in flag is set on c.
func (c Classification) Has(flag Classification) bool {
	return c&flag == flag
}

// Permits reports whether role satisfies the role requirements carried by c.
// Unknown roles are never permitted. Authentication itself is checked separately.
func (c Classification) Permits(role Role) bool {
	if !role.Valid() {
		return false
	}
	if c.Has(ClassAdmin) && !adminRole(role) {
		return false
	}
	if c.Has(ClassEditor) && !editorRole(role) {
		return false
	}
	return true
}

func adminRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleSuperAdmin:
		return true
	case RoleUser, RoleEditor:
		return false
	default:
		return false
	}
}

func editorRole(role Role) bool {
	switch role {
	case RoleEditor, RoleAdmin, RoleSuperAdmin:
		return true
	case RoleUser:
		return false
	default:
		return false
	}
}

// RouteTable lists the path prefixes for each classification.
type RouteTable struct {
	Admin     []string
	Editor    []string
	AuthFlow  []string
	Protected []string
}

// DefaultRouteTable returns the stock prefixes for a dashboard-style application.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		Admin:     []string{"/admin", "/dashboard/users", "/dashboard/roles"},
		Editor:    []string{"/dashboard/content", "/dashboard/posts"},
		AuthFlow:  []string{"/login", "/register", "/forgot-password"},
		Protected: []string{"/dashboard", "/admin", "/profile"},
	}
}

// Clone returns a deep copy of t.
func (t RouteTable) Clone() RouteTable {
	return RouteTable{
		Admin:     append([]string(nil), t.Admin...),
		Editor:    append([]string(nil), t.Editor...),
		AuthFlow:  append([]string(nil), t.AuthFlow...),
		Protected: append([]string(nil), t.Protected...),
	}
}

// Classify returns the classification flags for path.
func (t RouteTable) Classify(path string) Classification {
	var c Classification
	if matchPrefix(path, t.Admin) {
		c |= ClassAdmin
	}
	if matchPrefix(path, t.Editor) {
		c |= ClassEditor
	}
	if matchPrefix(path, t.AuthFlow) {
		c |= ClassAuthFlow
	}
	if matchPrefix(path, t.Protected) {
		c |= ClassProtected
	}
	return c
}

func matchPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
