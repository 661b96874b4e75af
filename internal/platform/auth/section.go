package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meditrack/meditrack/internal/platform/rbac"
)

const (
	verifiedRoleKey = "verified_role"
	principalKey    = "principal"
)

// Denial describes a request refused at a privileged boundary.
type Denial struct {
	AccountID uuid.UUID
	Path      string
	Method    string
	Expected  []rbac.Role
	Actual    rbac.Role
	Reason    Reason
	Message   string
	Resource  rbac.Resource
	Action    rbac.Action
	IPAddress string
	UserAgent string
}

// DenialRecorder persists denials. Implementations must not fail the
// request; they log their own errors.
type DenialRecorder interface {
	RecordDenial(ctx context.Context, d Denial)
}

// SectionConfig configures RequireSection.
type SectionConfig struct {
	Verifier *Verifier
	Registry *rbac.Registry
	Guard    *Guard
	Cookies  CookieConfig
	// Roles admitted to the section. Empty admits any recognized role.
	Roles    []rbac.Role
	Recorder DenialRecorder
	Logger   zerolog.Logger
}

// RequireSection verifies the durable role before a privileged section
// handler runs. Denied requests are redirected without telling the user why.
func RequireSection(cfg SectionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := cfg.Verifier.VerifyAny(req.Context(), SessionToken(c), cfg.Roles...)
			if res.Valid {
				storeVerification(c, res)
				return next(c)
			}

			path := req.URL.Path
			logDenial(cfg.Logger, c, res)
			if cfg.Recorder != nil {
				cfg.Recorder.RecordDenial(req.Context(), denialFrom(c, res, cfg.Roles))
			}

			var location string
			switch res.Reason {
			case ReasonNoSession:
				ClearSessionCookies(c, cfg.Cookies)
				location = cfg.Guard.LoginURL(path)
			case ReasonRoleMismatch:
				SetRoleCookie(c, cfg.Cookies, res.Actual, res.Principal.ExpiresAt)
				location = cfg.Registry.DefaultRoute(res.Actual)
			default:
				ClearSessionCookies(c, cfg.Cookies)
				location = cfg.Guard.LoginPath()
			}
			return c.Redirect(http.StatusTemporaryRedirect, location)
		}
	}
}

// RequirePermission verifies the durable role and then checks the permission
// matrix. Failures answer 401 or 403 without detail.
func RequirePermission(v *Verifier, reg *rbac.Registry, res rbac.Resource, action rbac.Action, recorder DenialRecorder, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ver := v.VerifyAny(req.Context(), SessionToken(c))
			if !ver.Valid {
				PermissionChecksTotal.WithLabelValues(string(res), string(action), "unverified").Inc()
				logDenial(logger, c, ver)
				if ver.Reason == ReasonNoSession {
					return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
				}
				if recorder != nil {
					d := denialFrom(c, ver, nil)
					d.Resource, d.Action = res, action
					recorder.RecordDenial(req.Context(), d)
				}
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}

			if !ver.Verified.Can(reg, res, action) {
				PermissionChecksTotal.WithLabelValues(string(res), string(action), "denied").Inc()
				ver.Reason = ReasonPermissionDenied
				ver.Message = "permission denied: " + string(ver.Actual) + " cannot " + string(action) + " " + string(res)
				logDenial(logger, c, ver)
				if recorder != nil {
					d := denialFrom(c, ver, nil)
					d.Resource, d.Action = res, action
					recorder.RecordDenial(req.Context(), d)
				}
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}

			PermissionChecksTotal.WithLabelValues(string(res), string(action), "allowed").Inc()
			storeVerification(c, ver)
			return next(c)
		}
	}
}

// VerifiedFromContext returns the role and principal stored by a successful
// RequireSection or RequirePermission.
func VerifiedFromContext(c echo.Context) (VerifiedRole, Principal, bool) {
	role, ok := c.Get(verifiedRoleKey).(VerifiedRole)
	if !ok || role.IsZero() {
		return VerifiedRole{}, Principal{}, false
	}
	p, _ := c.Get(principalKey).(Principal)
	return role, p, true
}

func storeVerification(c echo.Context, v Verification) {
	c.Set(verifiedRoleKey, v.Verified)
	c.Set(principalKey, v.Principal)
}

func logDenial(logger zerolog.Logger, c echo.Context, v Verification) {
	rid, _ := c.Get("request_id").(string)
	evt := logger.Warn()
	if v.Reason == ReasonNoSession {
		evt = logger.Debug()
	}
	evt.
		Str("request_id", rid).
		Str("path", c.Request().URL.Path).
		Str("reason", string(v.Reason)).
		Err(v.Err).
		Msg(v.Message)
}

func denialFrom(c echo.Context, v Verification, expected []rbac.Role) Denial {
	req := c.Request()
	return Denial{
		AccountID: v.Principal.AccountID,
		Path:      req.URL.Path,
		Method:    req.Method,
		Expected:  expected,
		Actual:    v.Actual,
		Reason:    v.Reason,
		Message:   v.Message,
		IPAddress: c.RealIP(),
		UserAgent: req.UserAgent(),
	}
}

// PermissionGate builds RequirePermission middlewares that share one
// verifier, registry and recorder.
type PermissionGate struct {
	Verifier *Verifier
	Registry *rbac.Registry
	Recorder DenialRecorder
	Logger   zerolog.Logger
}

// Require returns middleware admitting callers whose durable role may
// perform action on res.
func (g PermissionGate) Require(res rbac.Resource, action rbac.Action) echo.MiddlewareFunc {
	return RequirePermission(g.Verifier, g.Registry, res, action, g.Recorder, g.Logger)
}
