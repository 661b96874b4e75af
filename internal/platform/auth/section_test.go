package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meditrack/meditrack/internal/platform/rbac"
)

type recordedDenials struct {
	denials []Denial
}

func (r *recordedDenials) RecordDenial(_ context.Context, d Denial) {
	r.denials = append(r.denials, d)
}

func sectionFixture(t *testing.T, roles ...rbac.Role) (SectionConfig, *fakeRoles, *fakeSessions, *recordedDenials) {
	t.Helper()
	v, sessions, store := fixture()
	g := newTestGuard(t)
	rec := &recordedDenials{}
	return SectionConfig{
		Verifier: v,
		Registry: g.registry,
		Guard:    g,
		Roles:    roles,
		Recorder: rec,
		Logger:   zerolog.Nop(),
	}, store, sessions, rec
}

func runSection(t *testing.T, cfg SectionConfig, path, token string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := RequireSection(cfg)(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "section")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec, c, called
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestRequireSection_Allows(t *testing.T) {
	cfg, _, _, denials := sectionFixture(t, rbac.RoleAdmin)
	_, c, called := runSection(t, cfg, "/admin", "admin-token")

	if !called {
		t.Fatal("expected section handler to run")
	}
	role, principal, ok := VerifiedFromContext(c)
	if !ok || role.Role() != rbac.RoleAdmin {
		t.Errorf("expected verified admin on context, got %q %v", role, ok)
	}
	if principal.AccountID == uuid.Nil {
		t.Error("expected principal on context")
	}
	if len(denials.denials) != 0 {
		t.Errorf("expected no denials, got %d", len(denials.denials))
	}
}

func TestRequireSection_NoSession(t *testing.T) {
	cfg, _, _, denials := sectionFixture(t, rbac.RoleAdmin)
	rec, _, called := runSection(t, cfg, "/admin/users", "stale-token")

	if called {
		t.Fatal("section handler must not run")
	}
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?redirect=%2Fadmin%2Fusers" {
		t.Errorf("location = %q", loc)
	}
	if ck := cookieByName(rec, SessionCookieName); ck == nil || ck.MaxAge >= 0 {
		t.Error("expected session cookie to be cleared")
	}
	if len(denials.denials) != 1 || denials.denials[0].Reason != ReasonNoSession {
		t.Errorf("expected one no_session denial, got %+v", denials.denials)
	}
}

func TestRequireSection_Mismatch(t *testing.T) {
	cfg, _, sessions, denials := sectionFixture(t, rbac.RoleAdmin)
	expires := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	p := sessions.principals["doctor-token"]
	p.ExpiresAt = expires
	sessions.principals["doctor-token"] = p

	rec, _, called := runSection(t, cfg, "/admin", "doctor-token")

	if called {
		t.Fatal("section handler must not run")
	}
	if loc := rec.Header().Get("Location"); loc != "/clinician" {
		t.Errorf("expected redirect to /clinician, got %q", loc)
	}
	ck := cookieByName(rec, RoleCookieName)
	if ck == nil || ck.Value != "doctor" {
		t.Fatalf("expected role cookie rewritten to doctor, got %+v", ck)
	}
	if ck.MaxAge <= 0 || !ck.Expires.Equal(expires) {
		t.Errorf("expected role cookie to expire with the session at %v, got MaxAge %d Expires %v", expires, ck.MaxAge, ck.Expires)
	}
	if len(denials.denials) != 1 {
		t.Fatalf("expected one denial, got %d", len(denials.denials))
	}
	d := denials.denials[0]
	if d.Reason != ReasonRoleMismatch || d.Actual != rbac.RoleDoctor || d.Path != "/admin" {
		t.Errorf("unexpected denial %+v", d)
	}
}

func TestRequireSection_RecordMissing(t *testing.T) {
	cfg, store, _, _ := sectionFixture(t, rbac.RoleAdmin)
	store.err = errRoleNotFound
	rec, _, called := runSection(t, cfg, "/admin", "admin-token")

	if called {
		t.Fatal("section handler must not run")
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("expected bare login redirect, got %q", loc)
	}
	if ck := cookieByName(rec, RoleCookieName); ck == nil || ck.MaxAge >= 0 {
		t.Error("expected role cookie to be cleared")
	}
}

func TestRequireSection_SharedAdmitsAnyRole(t *testing.T) {
	cfg, _, _, _ := sectionFixture(t)
	for _, r := range rbac.Roles() {
		if _, _, called := runSection(t, cfg, "/client", string(r)+"-token"); !called {
			t.Errorf("%s should enter the shared section", r)
		}
	}
}

func TestRequireSection_ClinicianAdmitsDoctorAndNurse(t *testing.T) {
	cfg, _, _, _ := sectionFixture(t, rbac.RoleDoctor, rbac.RoleNurse)
	for _, r := range rbac.Roles() {
		_, _, called := runSection(t, cfg, "/clinician", string(r)+"-token")
		want := r == rbac.RoleDoctor || r == rbac.RoleNurse
		if called != want {
			t.Errorf("%s: called = %v, want %v", r, called, want)
		}
	}
}

func runPermission(t *testing.T, mw echo.MiddlewareFunc, token string) (bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		if _, _, ok := VerifiedFromContext(c); !ok {
			t.Error("expected verified role on context")
		}
		return nil
	})(c)
	return called, err
}

func TestRequirePermission(t *testing.T) {
	cfg, _, _, denials := sectionFixture(t)
	mw := RequirePermission(cfg.Verifier, cfg.Registry, rbac.ResourceUsers, rbac.ActionRead, denials, zerolog.Nop())

	tests := []struct {
		token  string
		status int
	}{
		{"admin-token", 0},
		{"doctor-token", http.StatusForbidden},
		{"patient-token", http.StatusForbidden},
		{"", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		called, err := runPermission(t, mw, tt.token)
		if tt.status == 0 {
			if err != nil || !called {
				t.Errorf("%q: expected pass, got %v", tt.token, err)
			}
			continue
		}
		if called {
			t.Errorf("%q: handler must not run", tt.token)
		}
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != tt.status {
			t.Errorf("%q: expected %d, got %v", tt.token, tt.status, err)
		}
	}

	if len(denials.denials) != 2 {
		t.Fatalf("expected 2 recorded denials, got %d", len(denials.denials))
	}
	d := denials.denials[0]
	if d.Reason != ReasonPermissionDenied || d.Resource != rbac.ResourceUsers || d.Action != rbac.ActionRead {
		t.Errorf("unexpected denial %+v", d)
	}
}

func TestRequirePermission_ResponseHidesReason(t *testing.T) {
	cfg, _, _, _ := sectionFixture(t)
	e := echo.New()
	e.GET("/api/admin/users", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		RequirePermission(cfg.Verifier, cfg.Registry, rbac.ResourceUsers, rbac.ActionRead, nil, zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "nurse-token"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] != "forbidden" {
		t.Errorf("expected generic message, got %q", body["message"])
	}
}

func TestPermissionGate_Require(t *testing.T) {
	cfg, _, _, denials := sectionFixture(t)
	gate := PermissionGate{Verifier: cfg.Verifier, Registry: cfg.Registry, Recorder: denials, Logger: zerolog.Nop()}

	called, err := runPermission(t, gate.Require(rbac.ResourcePrescriptions, rbac.ActionUpdate), "pharmacist-token")
	if err != nil || !called {
		t.Errorf("pharmacist should update prescriptions, got %v", err)
	}

	called, err = runPermission(t, gate.Require(rbac.ResourcePrescriptions, rbac.ActionCreate), "pharmacist-token")
	if called || err == nil {
		t.Error("pharmacist must not create prescriptions")
	}
	if len(denials.denials) != 1 {
		t.Errorf("expected 1 denial, got %d", len(denials.denials))
	}
}
