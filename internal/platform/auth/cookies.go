package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meditrack/meditrack/internal/platform/rbac"
)

const (
	SessionCookieName = "meditrack_session"
	RoleCookieName    = "meditrack_role"
)

// CookieConfig controls the attributes of the session and role cookies.
type CookieConfig struct {
	Domain string
	Secure bool
}

func (cfg CookieConfig) cookie(name, value string, expires time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: true,
		// Lax keeps the cookies on the top-level redirects the guard issues.
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		ck.Expires = expires
		ck.MaxAge = int(time.Until(expires).Seconds())
		if ck.MaxAge <= 0 {
			ck.MaxAge = -1
		}
	}
	return ck
}

// SetSessionCookies writes the session token and the role hint.
func SetSessionCookies(c echo.Context, cfg CookieConfig, s Session, role rbac.Role) {
	c.SetCookie(cfg.cookie(SessionCookieName, s.Token, s.ExpiresAt))
	c.SetCookie(cfg.cookie(RoleCookieName, string(role), s.ExpiresAt))
}

// SetRoleCookie rewrites the role hint. expires should be the session's
// expiry so the hint lives exactly as long as the session cookie.
func SetRoleCookie(c echo.Context, cfg CookieConfig, role rbac.Role, expires time.Time) {
	c.SetCookie(cfg.cookie(RoleCookieName, string(role), expires))
}

// ClearSessionCookies expires both cookies.
func ClearSessionCookies(c echo.Context, cfg CookieConfig) {
	for _, name := range []string{SessionCookieName, RoleCookieName} {
		ck := cfg.cookie(name, "", time.Time{})
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

// SessionToken returns the session cookie value, or "" when absent.
func SessionToken(c echo.Context) string {
	return cookieValue(c, SessionCookieName)
}

// RoleToken returns the role cookie value, or "" when absent.
func RoleToken(c echo.Context) string {
	return cookieValue(c, RoleCookieName)
}

// ClaimedRoleFrom parses the role cookie of the request.
func ClaimedRoleFrom(c echo.Context) ClaimedRole {
	return ParseClaimedRole(RoleToken(c))
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
