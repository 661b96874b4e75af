package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meditrack/meditrack/internal/platform/rbac"
)

func TestSetSessionCookies(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), rec)

	s := Session{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	SetSessionCookies(c, CookieConfig{Domain: "meditrack.test", Secure: true}, s, rbac.RoleNurse)

	session := cookieByName(rec, SessionCookieName)
	role := cookieByName(rec, RoleCookieName)
	if session == nil || role == nil {
		t.Fatal("expected both cookies")
	}
	if session.Value != "tok" || role.Value != "nurse" {
		t.Errorf("values = %q, %q", session.Value, role.Value)
	}
	for _, ck := range []*http.Cookie{session, role} {
		if !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode || ck.Path != "/" {
			t.Errorf("cookie %s has wrong attributes: %+v", ck.Name, ck)
		}
		if ck.MaxAge <= 0 {
			t.Errorf("cookie %s should persist, MaxAge = %d", ck.Name, ck.MaxAge)
		}
	}
}

func TestSetRoleCookie_FollowsSessionExpiry(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/admin", nil), rec)

	expires := time.Now().Add(30 * time.Minute)
	SetRoleCookie(c, CookieConfig{}, rbac.RoleDoctor, expires)

	ck := cookieByName(rec, RoleCookieName)
	if ck == nil || ck.Value != "doctor" {
		t.Fatalf("expected doctor role cookie, got %+v", ck)
	}
	if ck.MaxAge <= 0 || ck.MaxAge > int((30*time.Minute).Seconds()) {
		t.Errorf("MaxAge = %d, want within the session lifetime", ck.MaxAge)
	}
}

func TestClearSessionCookies(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), rec)

	ClearSessionCookies(c, CookieConfig{})
	for _, name := range []string{SessionCookieName, RoleCookieName} {
		ck := cookieByName(rec, name)
		if ck == nil || ck.Value != "" || ck.MaxAge >= 0 {
			t.Errorf("cookie %s not cleared: %+v", name, ck)
		}
	}
}

func TestTokenReaders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "abc"})
	req.AddCookie(&http.Cookie{Name: RoleCookieName, Value: "lab-technician"})
	c := e.NewContext(req, httptest.NewRecorder())

	if SessionToken(c) != "abc" {
		t.Errorf("SessionToken = %q", SessionToken(c))
	}
	if ClaimedRoleFrom(c).Role() != rbac.RoleLabTechnician {
		t.Errorf("ClaimedRoleFrom = %q", ClaimedRoleFrom(c))
	}

	empty := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if SessionToken(empty) != "" || RoleToken(empty) != "" {
		t.Error("expected empty tokens without cookies")
	}
	if ClaimedRoleFrom(empty).Role() != rbac.RolePatient {
		t.Error("missing role cookie should claim patient")
	}
}
