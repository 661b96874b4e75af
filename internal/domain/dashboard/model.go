package dashboard

import (
	"github.com/google/uuid"

	"github.com/meditrack/meditrack/internal/platform/rbac"
)

// Section is a role-segmented area of the application.
type Section struct {
	Prefix string
	Title  string
	// Roles admitted after durable verification. Empty admits every role.
	Roles []rbac.Role
}

// DefaultSections lists the application's sections. Clinicians share one
// section for doctors and nurses.
func DefaultSections() []Section {
	return []Section{
		{Prefix: "/admin", Title: "Administration", Roles: []rbac.Role{rbac.RoleAdmin}},
		{Prefix: "/clinician", Title: "Clinical Workspace", Roles: []rbac.Role{rbac.RoleDoctor, rbac.RoleNurse}},
		{Prefix: "/lab", Title: "Laboratory", Roles: []rbac.Role{rbac.RoleLabTechnician}},
		{Prefix: "/pharmacy", Title: "Pharmacy", Roles: []rbac.Role{rbac.RolePharmacist}},
		{Prefix: "/patient", Title: "Patient Portal", Roles: []rbac.Role{rbac.RolePatient}},
		{Prefix: rbac.SharedRoutePrefix, Title: "Shared Workspace"},
	}
}

// SectionPage describes a privileged page for the verified caller.
type SectionPage struct {
	Section      string                           `json:"section"`
	Title        string                           `json:"title"`
	Path         string                           `json:"path"`
	AccountID    uuid.UUID                        `json:"account_id"`
	Role         rbac.Role                        `json:"role"`
	RoleName     string                           `json:"role_name"`
	LandingRoute string                           `json:"landing_route"`
	Capabilities map[rbac.Resource]rbac.ActionSet `json:"capabilities"`
}

// PublicPage describes a page reachable without a session.
type PublicPage struct {
	Path      string `json:"path"`
	LoginPath string `json:"login_path"`
	// Redirect is the validated post-login target, if any.
	Redirect string `json:"redirect,omitempty"`
}

// RoleInfo is one role as exposed by the roles endpoint.
type RoleInfo struct {
	Role          rbac.Role `json:"role"`
	Name          string    `json:"name"`
	DefaultRoute  string    `json:"default_route"`
	AllowedRoutes []string  `json:"allowed_routes"`
}

// RolesResponse is the body of the roles endpoint.
type RolesResponse struct {
	Roles  []RoleInfo   `json:"roles"`
	Matrix []rbac.Grant `json:"matrix"`
}
