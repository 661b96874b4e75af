package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/meditrack/meditrack/internal/config"
	"github.com/meditrack/meditrack/internal/domain/account"
	"github.com/meditrack/meditrack/internal/domain/audit"
	"github.com/meditrack/meditrack/internal/domain/dashboard"
	"github.com/meditrack/meditrack/internal/platform/auth"
	"github.com/meditrack/meditrack/internal/platform/db"
	"github.com/meditrack/meditrack/internal/platform/middleware"
	"github.com/meditrack/meditrack/internal/platform/rbac"
)

// deps are the stateful collaborators of the HTTP server.
type deps struct {
	accounts    account.Repository
	audits      audit.Repository
	revocations auth.RevocationStore
	// dbHealth answers /health/db; nil leaves the route unregistered.
	dbHealth echo.HandlerFunc
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// newRevocationStore picks Redis when REDIS_URL is set and the in-memory
// store otherwise. The returned func releases it.
func newRevocationStore(ctx context.Context, cfg *config.Config) (auth.RevocationStore, func(), error) {
	if cfg.RedisURL == "" {
		store := auth.NewMemoryRevocationStore(5 * time.Minute)
		return store, store.Close, nil
	}
	client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return auth.NewRedisRevocationStore(client), func() { _ = client.Close() }, nil
}

func newSessionManager(cfg *config.Config, store auth.RevocationStore) (*auth.SessionManager, error) {
	return auth.NewSessionManager(auth.SessionConfig{
		Secret: []byte(cfg.SessionSecret),
		TTL:    cfg.SessionTTL,
	}, store)
}

// newServer builds the echo instance with every route and middleware.
func newServer(cfg *config.Config, logger zerolog.Logger, d deps) (*echo.Echo, error) {
	registry, err := rbac.NewRegistry(rbac.DefaultPolicy())
	if err != nil {
		return nil, fmt.Errorf("build role registry: %w", err)
	}
	sessions, err := newSessionManager(cfg, d.revocations)
	if err != nil {
		return nil, fmt.Errorf("build session manager: %w", err)
	}

	auditSvc := audit.NewService(d.audits, logger)
	accountSvc := account.NewService(d.accounts, sessions, auditSvc)
	verifier := auth.NewVerifier(sessions, accountSvc)
	guard := auth.NewGuard(auth.DefaultRouteTable(), registry, logger)
	cookies := auth.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}
	gate := auth.PermissionGate{Verifier: verifier, Registry: registry, Recorder: auditSvc, Logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, middleware.RequestIDHeader},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.Sanitize(logger))
	e.Use(guard.Middleware())

	// Health and metrics
	e.GET("/health", db.LivenessHandler())
	if d.dbHealth != nil {
		e.GET("/health/db", d.dbHealth)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API groups
	api := e.Group("/api", middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	authGroup := api.Group("/auth", middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.AuthRateLimitRPS,
		BurstSize:         cfg.AuthRateLimitBurst,
	}))
	adminGroup := api.Group("/admin")

	account.NewHandler(accountSvc, registry, gate, cookies, logger).RegisterRoutes(authGroup, adminGroup)
	audit.NewHandler(auditSvc).RegisterRoutes(adminGroup, gate.Require(rbac.ResourceAuditLogs, rbac.ActionRead))

	sectionBase := auth.SectionConfig{
		Verifier: verifier,
		Registry: registry,
		Guard:    guard,
		Cookies:  cookies,
		Recorder: auditSvc,
		Logger:   logger,
	}
	dashboard.NewHandler(dashboard.DefaultSections(), sectionBase, gate).RegisterRoutes(e, adminGroup)

	return e, nil
}
