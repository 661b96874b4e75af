package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/meditrack/meditrack/internal/platform/middleware"
	"github.com/meditrack/meditrack/internal/platform/rbac"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	reg, err := rbac.NewRegistry(rbac.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewGuard(DefaultRouteTable(), reg, zerolog.Nop())
}

func TestGuard_Decide(t *testing.T) {
	g := newTestGuard(t)

	tests := []struct {
		name       string
		path       string
		hasSession bool
		role       string
		outcome    Outcome
		location   string
	}{
		{"admin without session", "/admin", false, "", OutcomeRedirectLogin, "/login?redirect=%2Fadmin"},
		{"nested path without session", "/clinician/patients/42", false, "", OutcomeRedirectLogin, "/login?redirect=%2Fclinician%2Fpatients%2F42"},
		{"doctor on login", "/login", true, "doctor", OutcomeRedirectHome, "/clinician"},
		{"admin on signup", "/signup", true, "admin", OutcomeRedirectHome, "/admin"},
		{"bogus role on forgot password", "/forgot-password", true, "root", OutcomeRedirectHome, "/patient"},
		{"patient in admin section", "/admin/users", true, "patient", OutcomeRedirectHome, "/patient"},
		{"missing role in admin section", "/admin", true, "", OutcomeRedirectHome, "/patient"},
		{"nurse in lab section", "/lab/results", true, "nurse", OutcomeRedirectHome, "/clinician"},
		{"pharmacist in pharmacy", "/pharmacy/queue", true, "pharmacist", OutcomePass, ""},
		{"lab tech in lab", "/lab", true, "lab-technician", OutcomePass, ""},
		{"admin in admin", "/admin/users", true, "admin", OutcomePass, ""},
		{"shared area for patient", "/client/messages", true, "patient", OutcomePass, ""},
		{"shared area for bogus role", "/client", true, "nobody", OutcomePass, ""},
		{"unsegmented protected page", "/settings", true, "doctor", OutcomePass, ""},
		{"unsegmented protected page without session", "/settings", false, "", OutcomeRedirectLogin, "/login?redirect=%2Fsettings"},
		{"home without session", "/", false, "", OutcomePass, ""},
		{"home with session", "/", true, "doctor", OutcomePass, ""},
		{"public subpath", "/reset-password/token-123", false, "", OutcomePass, ""},
		{"public with session", "/terms", true, "nurse", OutcomePass, ""},
		{"login without session", "/login", false, "", OutcomePass, ""},
		{"public lookalike", "/termsandmore", false, "", OutcomeRedirectLogin, "/login?redirect=%2Ftermsandmore"},
		{"api path", "/api/auth/login", false, "", OutcomePass, ""},
		{"next internals", "/_next/static/chunk", false, "", OutcomePass, ""},
		{"static", "/static/logo", false, "", OutcomePass, ""},
		{"dotted path", "/admin/report.pdf", false, "", OutcomePass, ""},
		{"health", "/health/db", false, "", OutcomePass, ""},
		{"metrics", "/metrics", false, "", OutcomePass, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Decide(tt.path, tt.hasSession, tt.role)
			if d.Outcome != tt.outcome {
				t.Fatalf("Decide(%q, %v, %q) outcome = %s, want %s (%s)", tt.path, tt.hasSession, tt.role, d.Outcome, tt.outcome, d.Reason)
			}
			if d.Location != tt.location {
				t.Errorf("location = %q, want %q", d.Location, tt.location)
			}
		})
	}
}

func TestGuard_RedirectTargetsAreStable(t *testing.T) {
	g := newTestGuard(t)

	paths := []string{"/", "/login", "/signup", "/admin", "/admin/users", "/clinician", "/lab", "/pharmacy", "/patient", "/client", "/settings"}
	roles := []string{"", "patient", "doctor", "nurse", "lab-technician", "pharmacist", "admin", "garbage"}

	for _, path := range paths {
		for _, hasSession := range []bool{false, true} {
			for _, role := range roles {
				d := g.Decide(path, hasSession, role)
				if d.Outcome == OutcomePass {
					continue
				}
				u, err := url.Parse(d.Location)
				if err != nil {
					t.Fatalf("bad location %q: %v", d.Location, err)
				}
				again := g.Decide(u.Path, hasSession, role)
				if again.Outcome != OutcomePass {
					t.Errorf("%s (session=%v role=%q) -> %s -> %s %s", path, hasSession, role, d.Location, again.Outcome, again.Location)
				}
			}
		}
	}
}

func TestGuard_DecideIsDeterministic(t *testing.T) {
	g := newTestGuard(t)
	first := g.Decide("/admin/users", true, "doctor")
	for i := 0; i < 10; i++ {
		if got := g.Decide("/admin/users", true, "doctor"); got != first {
			t.Fatalf("decision changed: %+v vs %+v", got, first)
		}
	}
}

func serveGuard(t *testing.T, g *Guard, path string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := middleware.SecurityHeaders()(g.Middleware()(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "page")
	}))
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec, called
}

func assertSecurityHeaders(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	want := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"X-XSS-Protection":       "1; mode=block",
	}
	for header, value := range want {
		got := rec.Header().Values(header)
		if len(got) != 1 || got[0] != value {
			t.Errorf("header %s = %q, want exactly [%q]", header, got, value)
		}
	}
}

func TestGuardMiddleware_RedirectsWithoutSession(t *testing.T) {
	g := newTestGuard(t)
	rec, called := serveGuard(t, g, "/admin")

	if called {
		t.Error("handler must not run")
	}
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?redirect=%2Fadmin" {
		t.Errorf("expected login redirect, got %q", loc)
	}
	assertSecurityHeaders(t, rec)
}

func TestGuardMiddleware_RedirectsWrongSection(t *testing.T) {
	g := newTestGuard(t)
	rec, called := serveGuard(t, g, "/admin/users",
		&http.Cookie{Name: SessionCookieName, Value: "token"},
		&http.Cookie{Name: RoleCookieName, Value: "patient"},
	)

	if called {
		t.Error("handler must not run")
	}
	if loc := rec.Header().Get("Location"); loc != "/patient" {
		t.Errorf("expected /patient, got %q", loc)
	}
	assertSecurityHeaders(t, rec)
}

func TestGuardMiddleware_PassesAndSetsHeaders(t *testing.T) {
	g := newTestGuard(t)
	rec, called := serveGuard(t, g, "/clinician",
		&http.Cookie{Name: SessionCookieName, Value: "token"},
		&http.Cookie{Name: RoleCookieName, Value: "nurse"},
	)

	if !called {
		t.Fatal("expected handler to run")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	assertSecurityHeaders(t, rec)
}

func TestGuardMiddleware_ExcludedPathGetsHeaders(t *testing.T) {
	g := newTestGuard(t)
	rec, called := serveGuard(t, g, "/favicon.ico")
	if !called {
		t.Fatal("expected handler to run")
	}
	assertSecurityHeaders(t, rec)
}

func TestGuardMiddleware_EmptySessionCookieIsNoSession(t *testing.T) {
	g := newTestGuard(t)
	rec, _ := serveGuard(t, g, "/patient", &http.Cookie{Name: SessionCookieName, Value: ""})
	if !strings.HasPrefix(rec.Header().Get("Location"), "/login?redirect=") {
		t.Errorf("expected login redirect, got %q", rec.Header().Get("Location"))
	}
}

func TestRouteTable_Classify(t *testing.T) {
	table := DefaultRouteTable()

	tests := []struct {
		path string
		want PathClass
	}{
		{"/", ClassPublic},
		{"/login", ClassAuthOnly},
		{"/login/help", ClassAuthOnly},
		{"/signup", ClassAuthOnly},
		{"/privacy", ClassPublic},
		{"/hipaa-notice/full", ClassPublic},
		{"/verify-email", ClassPublic},
		{"/admin", ClassProtected},
		{"/client", ClassProtected},
		{"/apix", ClassExcluded},
		{"/docs/readme.md", ClassExcluded},
	}
	for _, tt := range tests {
		if got := table.Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}
