package auth

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meditrack/meditrack/internal/platform/rbac"
)

// Outcome is what the route guard does with a request.
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeRedirectLogin
	OutcomeRedirectHome
)

func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "pass"
	case OutcomeRedirectLogin:
		return "redirect_login"
	case OutcomeRedirectHome:
		return "redirect_home"
	}
	return "unknown"
}

// Decision is the result of Guard.Decide.
type Decision struct {
	Outcome  Outcome
	Location string
	Class    PathClass
	Reason   string
}

// Guard is the edge route guard. It decides from the request path and the
// two cookies alone and never touches the record store.
type Guard struct {
	table    RouteTable
	registry *rbac.Registry
	logger   zerolog.Logger
}

// NewGuard creates a route guard over table and registry.
func NewGuard(table RouteTable, registry *rbac.Registry, logger zerolog.Logger) *Guard {
	return &Guard{table: table, registry: registry, logger: logger}
}

// Decide applies the guard rules in order; the first match wins.
func (g *Guard) Decide(path string, hasSession bool, roleToken string) Decision {
	class := g.table.Classify(path)
	if class == ClassExcluded {
		return Decision{Outcome: OutcomePass, Class: class, Reason: "excluded"}
	}

	if hasSession && class == ClassAuthOnly {
		role := ParseClaimedRole(roleToken).Role()
		return Decision{
			Outcome:  OutcomeRedirectHome,
			Location: g.registry.DefaultRoute(role),
			Class:    class,
			Reason:   "signed in user on auth page",
		}
	}

	if !hasSession {
		if class == ClassProtected {
			return Decision{
				Outcome:  OutcomeRedirectLogin,
				Location: g.LoginURL(path),
				Class:    class,
				Reason:   "no session",
			}
		}
		return Decision{Outcome: OutcomePass, Class: class, Reason: "public"}
	}

	if class == ClassProtected {
		role := ParseClaimedRole(roleToken).Role()
		if !g.registry.IsAllowedRoute(role, path) && !g.table.IsShared(path) && g.table.IsRoleSegmented(path) {
			return Decision{
				Outcome:  OutcomeRedirectHome,
				Location: g.registry.DefaultRoute(role),
				Class:    class,
				Reason:   "section not allowed for claimed role " + string(role),
			}
		}
	}

	return Decision{Outcome: OutcomePass, Class: class, Reason: "allowed"}
}

// Table returns the route table the guard decides from.
func (g *Guard) Table() RouteTable { return g.table }

// LoginPath returns the bare login location.
func (g *Guard) LoginPath() string { return g.table.LoginPath }

// LoginURL returns the login location that brings the user back to path.
func (g *Guard) LoginURL(path string) string {
	return g.table.LoginPath + "?" + url.Values{"redirect": {path}}.Encode()
}

// Middleware returns the echo middleware running the guard. Security headers
// are applied by middleware.SecurityHeaders, registered ahead of it.
func (g *Guard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			d := g.Decide(path, SessionToken(c) != "", RoleToken(c))
			GuardDecisionsTotal.WithLabelValues(d.Outcome.String(), d.Class.String()).Inc()

			if d.Outcome == OutcomePass {
				return next(c)
			}

			rid, _ := c.Get("request_id").(string)
			g.logger.Debug().
				Str("request_id", rid).
				Str("path", path).
				Str("outcome", d.Outcome.String()).
				Str("location", d.Location).
				Str("reason", d.Reason).
				Msg("route guard redirect")
			return c.Redirect(http.StatusTemporaryRedirect, d.Location)
		}
	}
}
