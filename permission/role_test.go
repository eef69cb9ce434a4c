package permission

import (
	"errors"
	"testing"
)

func TestParseRoleRoundTrip(t *testing.T) {
	for _, role := range Roles() {
		parsed, err := ParseRole(role.String())
		if err != nil {
			t.Fatalf("ParseRole(%q) failed: %v", role.String(), err)
		}
		if parsed != role {
			t.Fatalf("expected %v, got %v", role, parsed)
		}
	}

	parsed, err := ParseRole(" super_admin ")
	if err != nil || parsed != RoleSuperAdmin {
		t.Fatalf("expected case-insensitive parse, got %v %v", parsed, err)
	}
}

func TestParseRoleUnknown(t *testing.T) {
	for _, name := range []string{"OWNER", "UNKNOWN", ""} {
		role, err := ParseRole(name)
		if !errors.Is(err, ErrUnknownRole) {
			t.Fatalf("ParseRole(%q): expected ErrUnknownRole, got %v", name, err)
		}
		if role != RoleUnknown || role.Valid() {
			t.Fatalf("ParseRole(%q): expected unknown role, got %v", name, role)
		}
	}
}

func TestRoleTextMarshaling(t *testing.T) {
	text, err := RoleEditor.MarshalText()
	if err != nil || string(text) != "EDITOR" {
		t.Fatalf("unexpected marshal result %q %v", text, err)
	}
	if _, err := RoleUnknown.MarshalText(); err == nil {
		t.Fatal("expected unknown role marshal to fail")
	}

	var r Role
	if err := r.UnmarshalText([]byte("ADMIN")); err != nil || r != RoleAdmin {
		t.Fatalf("unexpected unmarshal result %v %v", r, err)
	}
}

func TestRoleInExactMembership(t *testing.T) {
	if !RoleAdmin.In(RoleAdmin, RoleSuperAdmin) {
		t.Fatal("expected ADMIN to be a member")
	}
	if RoleSuperAdmin.In(RoleAdmin) {
		t.Fatal("membership must be exact, not hierarchical")
	}
	if RoleUnknown.In(RoleUnknown) {
		t.Fatal("unknown role must never match")
	}
	if Role(42).In(Role(42)) {
		t.Fatal("out-of-range role must never match")
	}
}

func TestSetIsSortedAndDeduplicated(t *testing.T) {
	s := FromStrings("posts:write", "", "users:read", "posts:write", " ")
	want := []string{"posts:write", "users:read"}
	got := s.Strings()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if !s.Has("users:read") || s.Has("users:delete") {
		t.Fatal("unexpected membership result")
	}
	if NewSet() != nil {
		t.Fatal("expected empty set to be nil")
	}
}
