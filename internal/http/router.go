// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, identity resolution, rate limiting, and the admin gate
// on the analytics routes.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after the logger
//  5. Body size limiter
//  6. Metrics
//  7. Identity (user id + first-touch profile registration)
//  8. Rate limiter (per user/IP)
//  9. CORS and security headers
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginswagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/unilearn/socratic-chat-backend/internal/cache"
	"github.com/unilearn/socratic-chat-backend/internal/config"
	"github.com/unilearn/socratic-chat-backend/internal/dialogue"
	"github.com/unilearn/socratic-chat-backend/internal/http/handlers"
	"github.com/unilearn/socratic-chat-backend/internal/http/middleware"
	"github.com/unilearn/socratic-chat-backend/internal/repo"
	"github.com/unilearn/socratic-chat-backend/internal/services"
)

// profileDirectoryShim adapts ProfileService to the narrow directory
// interface the identity middleware consumes.
type profileDirectoryShim struct {
	svc *services.ProfileService
}

// EnsureProfile proxies ProfileService.Ensure, dropping the profile value.
func (s profileDirectoryShim) EnsureProfile(ctx context.Context, userID string) error {
	_, err := s.svc.Ensure(ctx, userID)
	return err
}

// ProfileRole proxies ProfileService.Role.
func (s profileDirectoryShim) ProfileRole(ctx context.Context, userID string) (string, error) {
	return s.svc.Role(ctx, userID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given
// Gin engine: health and metrics, the versioned chat API, and the
// admin-gated analytics dashboard.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, engine dialogue.Engine, snapCache cache.Cache, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Identity resolution + first-touch profile registration
	profileSvc := &services.ProfileService{DB: db}
	dir := profileDirectoryShim{svc: profileSvc}
	r.Use(middleware.Identity(dir))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	installCORS(r, cfg)

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (flag-gated)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginswagger.WrapHandler(swaggerfiles.Handler))
	}

	// Dependency injection: services ← repo/db/engine/cache
	sessionSvc := services.NewChatService(db)
	msgSvc := &services.MessageService{
		DB:             db,
		Engine:         engine,
		MaxPromptRunes: 2000,
		MaxReplyRunes:  1500,
		TitleMaxLen:    60,
		TitleLocale:    language.English,
	}
	fbSvc := &services.FeedbackService{DB: db, MaxCommentRunes: 500}

	loc, err := time.LoadLocation(cfg.Analytics.ReportingTZ)
	if err != nil {
		// Config validation rejects unknown zones; this is a belt for
		// direct callers that skip validation.
		loc = time.UTC
	}
	anSvc := &services.AnalyticsService{
		Store:    repo.Store{DB: db},
		Cache:    snapCache,
		Location: loc,
		TTL:      cfg.Analytics.CacheTTL,
	}

	h := handlers.New(sessionSvc, msgSvc, fbSvc, anSvc, cfg.Analytics.DefaultRole)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Sessions
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions", h.ListSessions)
		api.PUT("/sessions/:id/title", h.UpdateSessionTitle)

		// Messages
		api.GET("/sessions/:id/messages", h.ListMessages)
		api.POST("/sessions/:id/messages", h.PostMessage)

		// Feedback
		api.POST("/messages/:id/feedback", h.RateMessage)
	}

	// Analytics dashboard (admin-gated)
	dash := api.Group("/analytics", middleware.RequireRole(dir, cfg.Analytics.AdminRole))
	{
		dash.GET("/summary", h.AnalyticsSummary)
		dash.GET("/summary.csv", gzip.Gzip(gzip.DefaultCompression), h.AnalyticsSummaryCSV)
		dash.POST("/refresh", h.AnalyticsRefresh)
	}
}

// installCORS configures the CORS posture. With no allowlist configured,
// everything is allowed (credentials stay off); otherwise the allowlist is
// enforced and the matching origin is echoed.
func installCORS(r *gin.Engine, cfg config.Config) {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
	for _, o := range cfg.CORS.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader; oversized bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
