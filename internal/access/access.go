// Package access holds the authorization gate consulted before a command
// handler runs.
package access

// Authorize reports whether a principal holding roles may run a command that
// requires required. An empty required role means the command is unrestricted.
func Authorize(roles []string, required string) bool {
	if required == "" {
		return true
	}
	for _, r := range roles {
		if r == required {
			return true
		}
	}
	return false
}

// RoleSet is a principal's roles keyed for membership tests.
type RoleSet map[string]struct{}

// NewRoleSet builds a RoleSet, dropping empty identifiers.
func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		if r != "" {
			set[r] = struct{}{}
		}
	}
	return set
}

// Has reports whether role is in the set.
func (s RoleSet) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// Allows is Authorize over a RoleSet.
func (s RoleSet) Allows(required string) bool {
	return required == "" || s.Has(required)
}
