package account

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meditrack/meditrack/internal/platform/auth"
	"github.com/meditrack/meditrack/internal/platform/rbac"
	"github.com/meditrack/meditrack/pkg/pagination"
)

type Handler struct {
	svc      *Service
	registry *rbac.Registry
	gate     auth.PermissionGate
	cookies  auth.CookieConfig
	logger   zerolog.Logger
}

func NewHandler(svc *Service, registry *rbac.Registry, gate auth.PermissionGate, cookies auth.CookieConfig, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, registry: registry, gate: gate, cookies: cookies, logger: logger}
}

// SessionResponse is returned by login and register.
type SessionResponse struct {
	Account  *Account `json:"account"`
	Redirect string   `json:"redirect"`
}

// MeResponse describes the caller as seen through the durable record.
type MeResponse struct {
	Account      *Account                         `json:"account"`
	RoleName     string                           `json:"role_name"`
	LandingRoute string                           `json:"landing_route"`
	Capabilities map[rbac.Resource]rbac.ActionSet `json:"capabilities"`
}

func (h *Handler) RegisterRoutes(authGroup, adminGroup *echo.Group) {
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/me", h.Me, h.gate.Require(rbac.ResourceOwnProfile, rbac.ActionRead))

	adminGroup.GET("/users", h.ListUsers, h.gate.Require(rbac.ResourceUsers, rbac.ActionRead))
	adminGroup.GET("/users/:id", h.GetUser, h.gate.Require(rbac.ResourceUsers, rbac.ActionRead))
	adminGroup.POST("/users", h.CreateUser, h.gate.Require(rbac.ResourceUsers, rbac.ActionCreate))
	adminGroup.PUT("/users/:id/role", h.SetRole, h.gate.Require(rbac.ResourceUsers, rbac.ActionUpdate))
	adminGroup.PUT("/users/:id/status", h.SetStatus, h.gate.Require(rbac.ResourceUsers, rbac.ActionUpdate))
	adminGroup.POST("/users/:id/sessions/revoke", h.RevokeSessions, h.gate.Require(rbac.ResourceUsers, rbac.ActionUpdate))
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()

	a, sess, err := h.svc.Register(ctx, req, metaFrom(c))
	if err != nil {
		return h.httpError(c, err)
	}
	auth.SetSessionCookies(c, h.cookies, sess, a.Role)
	return c.JSON(http.StatusCreated, SessionResponse{Account: a, Redirect: h.registry.DefaultRoute(a.Role)})
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	a, sess, err := h.svc.Login(c.Request().Context(), req, metaFrom(c))
	if err != nil {
		return h.httpError(c, err)
	}
	auth.SetSessionCookies(c, h.cookies, sess, a.Role)
	return c.JSON(http.StatusOK, SessionResponse{Account: a, Redirect: h.registry.DefaultRoute(a.Role)})
}

// Logout clears both cookies even when the session cannot be ended.
func (h *Handler) Logout(c echo.Context) error {
	if token := auth.SessionToken(c); token != "" {
		if err := h.svc.Logout(c.Request().Context(), token, metaFrom(c)); err != nil {
			h.logger.Debug().Err(err).Msg("logout without a live session")
		}
	}
	auth.ClearSessionCookies(c, h.cookies)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Me(c echo.Context) error {
	role, principal, ok := auth.VerifiedFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	a, err := h.svc.Get(c.Request().Context(), principal.AccountID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, MeResponse{
		Account:      a,
		RoleName:     role.Role().DisplayName(),
		LandingRoute: h.registry.DefaultRoute(role.Role()),
		Capabilities: h.registry.Capabilities(role.Role()),
	})
}

func (h *Handler) ListUsers(c echo.Context) error {
	var role rbac.Role
	if v := c.QueryParam("role"); v != "" {
		r, ok := rbac.LookupRole(v)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		role = r
	}
	p := pagination.FromContext(c)

	accounts, total, err := h.svc.List(c.Request().Context(), role, p.Limit, p.Offset)
	if err != nil {
		return h.httpError(c, err)
	}
	if accounts == nil {
		accounts = []*Account{}
	}
	resp := pagination.NewResponse(accounts, total, p.Limit, p.Offset).
		WithLinks(c.Request().URL.Path, c.QueryParams())
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req CreateStaffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.CreateStaff(c.Request().Context(), actorID(c), req, metaFrom(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) SetRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req SetRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.SetRole(c.Request().Context(), actorID(c), id, req.Role, metaFrom(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req SetStatusRequest
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "active is required")
	}
	a, err := h.svc.SetActive(c.Request().Context(), actorID(c), id, *req.Active, metaFrom(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) RevokeSessions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	n, err := h.svc.RevokeSessions(c.Request().Context(), actorID(c), id, metaFrom(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, RevokeSessionsResponse{Revoked: n})
}

func (h *Handler) httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRole):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, ErrEmailTaken.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	}
	rid, _ := c.Get("request_id").(string)
	h.logger.Error().Err(err).Str("request_id", rid).Str("path", c.Request().URL.Path).Msg("account request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func actorID(c echo.Context) uuid.UUID {
	_, p, _ := auth.VerifiedFromContext(c)
	return p.AccountID
}

func metaFrom(c echo.Context) RequestMeta {
	return RequestMeta{IPAddress: c.RealIP(), UserAgent: c.Request().UserAgent()}
}
