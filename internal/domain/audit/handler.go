package audit

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/meditrack/meditrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the listing on g. Callers attach the permission
// middleware to g.
func (h *Handler) RegisterRoutes(g *echo.Group, mw ...echo.MiddlewareFunc) {
	g.GET("/audit-logs", h.List, mw...)
}

func (h *Handler) List(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := pagination.FromContext(c)

	entries, total, err := h.svc.List(c.Request().Context(), f, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit logs")
	}
	if entries == nil {
		entries = []*Entry{}
	}
	resp := pagination.NewResponse(entries, total, p.Limit, p.Offset).
		WithLinks(c.Request().URL.Path, c.QueryParams())
	return c.JSON(http.StatusOK, resp)
}

func filterFromQuery(c echo.Context) (Filter, error) {
	f := Filter{
		Action:   Action(c.QueryParam("action")),
		Severity: Severity(c.QueryParam("severity")),
	}
	if f.Severity != "" && !f.Severity.Valid() {
		return Filter{}, errors.New("invalid severity")
	}
	if v := c.QueryParam("actor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return Filter{}, errors.New("invalid actor_id")
		}
		f.ActorID = &id
	}
	for name, dst := range map[string]**time.Time{"since": &f.Since, "until": &f.Until} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid %s: expected RFC3339", name)
		}
		*dst = &t
	}
	return f, nil
}
