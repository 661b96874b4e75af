// Package rbac holds the closed role set, the static permission matrix and
// the per-role route maps. A Registry is built once at startup and is safe
// for concurrent use because nothing mutates it afterwards.
package rbac

import (
	"fmt"
	"strings"
)

// Registry answers permission and route questions. Every lookup is total
// and fails closed.
type Registry struct {
	perms         map[Role]map[Resource]ActionSet
	allowedRoutes map[Role][]string
	defaultRoutes map[Role]string
	fallbackRoute string
}

// Grant is one row of the flattened permission matrix.
type Grant struct {
	Role     Role      `json:"role"`
	Resource Resource  `json:"resource"`
	Actions  ActionSet `json:"actions"`
}

// NewRegistry validates p and returns an immutable registry built from a
// private copy of it.
func NewRegistry(p Policy) (*Registry, error) {
	if p.FallbackRoute == "" {
		return nil, fmt.Errorf("rbac: fallback route is required")
	}

	reg := &Registry{
		perms:         make(map[Role]map[Resource]ActionSet, len(allRoles)),
		allowedRoutes: make(map[Role][]string, len(allRoles)),
		defaultRoutes: make(map[Role]string, len(allRoles)),
		fallbackRoute: p.FallbackRoute,
	}

	for role := range p.Permissions {
		if !role.Valid() {
			return nil, fmt.Errorf("rbac: unknown role %q in permission matrix", role)
		}
	}

	for _, role := range allRoles {
		row, ok := p.Permissions[role]
		if !ok {
			return nil, fmt.Errorf("rbac: role %q has no permission row", role)
		}
		for res := range row {
			if !res.Valid() {
				return nil, fmt.Errorf("rbac: role %q lists unknown resource %q", role, res)
			}
		}
		copied := make(map[Resource]ActionSet, len(allResources))
		for _, res := range allResources {
			set, ok := row[res]
			if !ok {
				return nil, fmt.Errorf("rbac: role %q does not define resource %q", role, res)
			}
			copied[res] = set & CRUD
		}
		reg.perms[role] = copied

		prefixes := p.AllowedRoutes[role]
		if len(prefixes) == 0 {
			return nil, fmt.Errorf("rbac: role %q has no allowed routes", role)
		}
		for _, prefix := range prefixes {
			if !strings.HasPrefix(prefix, "/") {
				return nil, fmt.Errorf("rbac: route prefix %q for role %q must start with /", prefix, role)
			}
		}
		reg.allowedRoutes[role] = append([]string(nil), prefixes...)

		landing := p.DefaultRoutes[role]
		if landing == "" {
			return nil, fmt.Errorf("rbac: role %q has no default route", role)
		}
		reg.defaultRoutes[role] = landing
		if !reg.IsAllowedRoute(role, landing) {
			return nil, fmt.Errorf("rbac: default route %q is not allowed for role %q", landing, role)
		}
	}

	return reg, nil
}

// AllowedActions returns the configured action set for the pair, or the
// empty set when either side is unknown.
func (r *Registry) AllowedActions(role Role, res Resource) ActionSet {
	row, ok := r.perms[role]
	if !ok {
		return None
	}
	return row[res]
}

// CanAccess reports whether role holds at least one action on res.
func (r *Registry) CanAccess(role Role, res Resource) bool {
	return !r.AllowedActions(role, res).Empty()
}

// CanPerformAction reports whether role may perform action on res.
func (r *Registry) CanPerformAction(role Role, res Resource, action Action) bool {
	return r.AllowedActions(role, res).Has(action)
}

// IsAllowedRoute reports whether pathname starts with one of the role's
// allowed prefixes. Unknown roles are allowed nowhere.
func (r *Registry) IsAllowedRoute(role Role, pathname string) bool {
	for _, prefix := range r.allowedRoutes[role] {
		if strings.HasPrefix(pathname, prefix) {
			return true
		}
	}
	return false
}

// AllowedRoutes returns a copy of the role's allowed route prefixes.
func (r *Registry) AllowedRoutes(role Role) []string {
	return append([]string(nil), r.allowedRoutes[role]...)
}

// DefaultRoute returns the landing route for role, falling back to the
// patient landing route for unknown roles.
func (r *Registry) DefaultRoute(role Role) string {
	if route, ok := r.defaultRoutes[role]; ok {
		return route
	}
	return r.fallbackRoute
}

// Matrix flattens the permission matrix in role then resource order.
func (r *Registry) Matrix() []Grant {
	out := make([]Grant, 0, len(allRoles)*len(allResources))
	for _, role := range allRoles {
		for _, res := range allResources {
			out = append(out, Grant{Role: role, Resource: res, Actions: r.perms[role][res]})
		}
	}
	return out
}

// Capabilities returns the non-empty action sets of role keyed by resource.
func (r *Registry) Capabilities(role Role) map[Resource]ActionSet {
	out := make(map[Resource]ActionSet)
	for res, set := range r.perms[role] {
		if !set.Empty() {
			out[res] = set
		}
	}
	return out
}
