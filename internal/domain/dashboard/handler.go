package dashboard

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meditrack/meditrack/internal/platform/auth"
	"github.com/meditrack/meditrack/internal/platform/rbac"
)

type Handler struct {
	registry *rbac.Registry
	guard    *auth.Guard
	sections []Section
	section  auth.SectionConfig
	gate     auth.PermissionGate
}

// NewHandler builds the section handlers. base supplies everything but the
// admitted roles, which come from each Section.
func NewHandler(sections []Section, base auth.SectionConfig, gate auth.PermissionGate) *Handler {
	return &Handler{
		registry: base.Registry,
		guard:    base.Guard,
		sections: sections,
		section:  base,
		gate:     gate,
	}
}

// RegisterRoutes mounts public pages and sections on e and the roles endpoint
// on admin.
func (h *Handler) RegisterRoutes(e *echo.Echo, admin *echo.Group) {
	for _, path := range h.guard.Table().Public {
		e.GET(path, h.Public)
	}

	for _, sec := range h.sections {
		cfg := h.section
		cfg.Roles = sec.Roles
		mw := auth.RequireSection(cfg)
		page := h.Section(sec)
		e.GET(sec.Prefix, page, mw)
		e.GET(sec.Prefix+"/*", page, mw)
	}

	admin.GET("/roles", h.Roles, h.gate.Require(rbac.ResourceSettings, rbac.ActionRead))
}

// Section returns the page handler for sec. It runs only after
// RequireSection admitted the caller.
func (h *Handler) Section(sec Section) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, principal, ok := auth.VerifiedFromContext(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		r := role.Role()
		return c.JSON(http.StatusOK, SectionPage{
			Section:      sec.Prefix,
			Title:        sec.Title,
			Path:         c.Request().URL.Path,
			AccountID:    principal.AccountID,
			Role:         r,
			RoleName:     r.DisplayName(),
			LandingRoute: h.registry.DefaultRoute(r),
			Capabilities: h.registry.Capabilities(r),
		})
	}
}

func (h *Handler) Public(c echo.Context) error {
	page := PublicPage{
		Path:      c.Request().URL.Path,
		LoginPath: h.guard.LoginPath(),
	}
	if target := c.QueryParam("redirect"); isLocalPath(target) {
		page.Redirect = target
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) Roles(c echo.Context) error {
	roles := rbac.Roles()
	resp := RolesResponse{
		Roles:  make([]RoleInfo, 0, len(roles)),
		Matrix: h.registry.Matrix(),
	}
	for _, r := range roles {
		resp.Roles = append(resp.Roles, RoleInfo{
			Role:          r,
			Name:          r.DisplayName(),
			DefaultRoute:  h.registry.DefaultRoute(r),
			AllowedRoutes: h.registry.AllowedRoutes(r),
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// isLocalPath accepts only same-origin absolute paths as login return
// targets.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\")
}
