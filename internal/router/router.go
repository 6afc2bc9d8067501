package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/live-classroom/internal/config"
	"github.com/iliyamo/live-classroom/internal/handler"
	"github.com/iliyamo/live-classroom/internal/middleware"
	"github.com/iliyamo/live-classroom/internal/monitoring"
	"github.com/iliyamo/live-classroom/internal/service"
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
	Health     *handler.HealthHandler
	Sessions   *handler.SessionHandler
	Admission  *handler.AdmissionHandler
	Tokens     *handler.TokenHandler
	Attendance *handler.AttendanceHandler
	Moderation *handler.ModerationHandler
}

// Options carries the middleware dependencies.  Redis may be nil, in which
// case rate limiting and response caching are disabled.
type Options struct {
	JWTSecret      string
	Guard          *service.TenancyGuard
	Resolver       *service.RoleResolver
	Redis          *redis.Client
	MetricsEnabled bool
	Logger         *slog.Logger
}

// RegisterRoutes registers routes that do not require authentication: the
// health check and, when enabled, the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, h Handlers, opts Options) {
	e.GET("/healthz", h.Health.Health)
	if opts.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(monitoring.Handler()))
	}
}

// RegisterV1 registers the authenticated API under /v1.  Every route runs
// identity, tenant and role resolution in that order, then the global rate
// limit.  Join and token issuance carry their own tighter buckets.
func RegisterV1(e *echo.Echo, h Handlers, opts Options) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(opts.JWTSecret),
		middleware.Tenant(opts.Guard, opts.Logger),
		middleware.ResolveRoles(opts.Resolver),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), opts.Redis),
	)

	joinLimit := middleware.NewTokenBucket(config.LoadScopedRateLimit("session_join", 10, 6*time.Second), opts.Redis)
	tokenLimit := middleware.NewTokenBucket(config.LoadScopedRateLimit("rtc_token", 20, 3*time.Second), opts.Redis)
	listCache := middleware.NewRedisCache(config.LoadCacheConfig(), opts.Redis)

	g.POST("/sessions", h.Sessions.Create)
	g.GET("/sessions", h.Sessions.List, listCache)
	g.GET("/sessions/:id", h.Sessions.Get)

	g.POST("/sessions/:id/hold", h.Admission.Hold, joinLimit)
	g.POST("/sessions/:id/join", h.Admission.Join, joinLimit)
	g.POST("/sessions/:id/leave", h.Admission.Leave)
	g.GET("/sessions/:id/reservations", h.Admission.Reservations)
	g.GET("/sessions/:id/reservations/me", h.Admission.MyReservation)

	g.GET("/sessions/:id/rtc-token", h.Tokens.RTCToken, tokenLimit)

	g.GET("/sessions/:id/attendance", h.Attendance.List)
	g.GET("/sessions/:id/attendance/me", h.Attendance.Mine)
	g.POST("/sessions/:id/attendance/close-all", h.Attendance.CloseAll)
	g.POST("/sessions/:id/attendance/recompute", h.Attendance.Recompute)

	m := g.Group("/sessions/:id/moderation")
	m.POST("/lock", h.Moderation.Lock)
	m.POST("/unlock", h.Moderation.Unlock)
	m.POST("/capacity", h.Moderation.Capacity)
	m.POST("/kick", h.Moderation.Kick)
	m.POST("/mute", h.Moderation.Mute)
	m.POST("/evict", h.Moderation.Evict)
	m.GET("/actions", h.Moderation.Actions)
}
