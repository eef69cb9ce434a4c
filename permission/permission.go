package permission

import (
	"slices"
	"strings"
)

// Permission is an opaque permission name such as "posts:publish".
type Permission string

// Set is a sorted, de-duplicated permission snapshot.
//
// The zero value is an empty set. Sets are values: callers must not mutate the
// backing slice after construction.
type Set []Permission

// NewSet builds a [Set] from names, trimming blanks and duplicates. It returns
// nil when no usable names remain.
func NewSet(perms ...Permission) Set {
	out := make(Set, 0, len(perms))
	for _, p := range perms {
		p = Permission(strings.TrimSpace(string(p)))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// FromStrings is a convenience wrapper over [NewSet] for raw names.
func FromStrings(names ...string) Set {
	perms := make([]Permission, len(names))
	for i, name := range names {
		perms[i] = Permission(name)
	}
	return NewSet(perms...)
}

// Has reports whether p is in the set.
func (s Set) Has(p Permission) bool {
	_, found := slices.BinarySearch(s, p)
	return found
}

// Strings returns the permission names in sorted order.
func (s Set) Strings() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = string(p)
	}
	return out
}
