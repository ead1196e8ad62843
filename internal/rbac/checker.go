package rbac

import (
	"context"
	"strings"
)

// Checker resolves permissions for the roles carried in bearer tokens.
// Grants are exact ("session:start"), prefix wildcards ("session:*") or "*".
type Checker struct {
	grants map[string][]string
}

// NewChecker uses RolePermissions when grants is nil.
func NewChecker(grants map[string][]string) *Checker {
	if grants == nil {
		grants = RolePermissions
	}
	return &Checker{grants: grants}
}

func (c *Checker) Has(role, perm string) bool {
	for _, g := range c.grants[role] {
		if matches(g, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

// OwnerOr decides access to a single session or result. A role holding perm
// passes without the ownership lookup; anyone else must be authenticated
// and own the resource.
func (c *Checker) OwnerOr(role, perm string, isOwner func() bool) bool {
	if c.Has(role, perm) {
		return true
	}
	return role != "" && isOwner()
}

func matches(grant, perm string) bool {
	if grant == "*" || grant == perm {
		return true
	}
	if prefix, ok := strings.CutSuffix(grant, "*"); ok {
		return strings.HasPrefix(perm, prefix)
	}
	return false
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
