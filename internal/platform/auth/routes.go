package auth

import "strings"

// PathClass is the guard's classification of a request path.
type PathClass int

const (
	ClassExcluded PathClass = iota
	ClassPublic
	ClassAuthOnly
	ClassProtected
)

func (c PathClass) String() string {
	switch c {
	case ClassExcluded:
		return "excluded"
	case ClassPublic:
		return "public"
	case ClassAuthOnly:
		return "auth_only"
	case ClassProtected:
		return "protected"
	}
	return "unknown"
}

// RouteTable holds the literal path lists the route guard works from.
type RouteTable struct {
	// LoginPath is where unauthenticated visitors are sent.
	LoginPath string
	// Public paths are reachable without a session. A path matches when it
	// equals an entry or continues it with "/".
	Public []string
	// AuthOnly paths are public paths that signed-in users are sent away
	// from. Matched like Public.
	AuthOnly []string
	// ExcludedPrefixes bypass the guard entirely, as does any path that
	// contains a dot.
	ExcludedPrefixes []string
	// RoleSegmented prefixes are the sections owned by particular roles.
	RoleSegmented []string
	// SharedPrefix is open to every signed-in role.
	SharedPrefix string
}

// DefaultRouteTable returns the application's route lists.
func DefaultRouteTable() RouteTable {
	return RouteTable{
		LoginPath: "/login",
		Public: []string{
			"/",
			"/login",
			"/signup",
			"/forgot-password",
			"/reset-password",
			"/verify-email",
			"/terms",
			"/privacy",
			"/hipaa-notice",
		},
		AuthOnly:         []string{"/login", "/signup", "/forgot-password"},
		ExcludedPrefixes: []string{"/api", "/_next", "/static", "/health", "/metrics"},
		RoleSegmented:    []string{"/admin", "/clinician", "/lab", "/pharmacy", "/patient"},
		SharedPrefix:     "/client",
	}
}

// Excluded reports whether the guard ignores path.
func (t RouteTable) Excluded(path string) bool {
	if strings.Contains(path, ".") {
		return true
	}
	return hasAnyPrefix(path, t.ExcludedPrefixes)
}

// Classify places path in exactly one class. Auth-only wins over public.
func (t RouteTable) Classify(path string) PathClass {
	switch {
	case t.Excluded(path):
		return ClassExcluded
	case matchesRoute(path, t.AuthOnly):
		return ClassAuthOnly
	case matchesRoute(path, t.Public):
		return ClassPublic
	}
	return ClassProtected
}

// IsRoleSegmented reports whether path falls in a role-owned section.
func (t RouteTable) IsRoleSegmented(path string) bool {
	return hasAnyPrefix(path, t.RoleSegmented)
}

// IsShared reports whether path falls in the shared section.
func (t RouteTable) IsShared(path string) bool {
	return t.SharedPrefix != "" && strings.HasPrefix(path, t.SharedPrefix)
}

func matchesRoute(path string, routes []string) bool {
	for _, route := range routes {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
