package auth

import "github.com/meditrack/meditrack/internal/platform/rbac"

// ClaimedRole is the role a client asserts through its role cookie. It only
// steers navigation and never authorizes anything.
type ClaimedRole struct {
	role rbac.Role
}

// ParseClaimedRole reads a role token. Missing or unknown values claim the
// fallback role.
func ParseClaimedRole(token string) ClaimedRole {
	return ClaimedRole{role: rbac.ParseRole(token)}
}

// Role returns the claimed role.
func (c ClaimedRole) Role() rbac.Role { return c.role }

func (c ClaimedRole) String() string { return string(c.role) }

// VerifiedRole is a role read back from the durable account record during
// the current request. Only the Verifier creates one.
type VerifiedRole struct {
	role rbac.Role
}

// Role returns the verified role. The zero VerifiedRole returns "".
func (v VerifiedRole) Role() rbac.Role { return v.role }

func (v VerifiedRole) String() string { return string(v.role) }

// IsZero reports whether v was never produced by a verification.
func (v VerifiedRole) IsZero() bool { return v.role == "" }

// Can reports whether the verified role may perform action on res.
func (v VerifiedRole) Can(reg *rbac.Registry, res rbac.Resource, action rbac.Action) bool {
	if v.IsZero() {
		return false
	}
	return reg.CanPerformAction(v.role, res, action)
}
