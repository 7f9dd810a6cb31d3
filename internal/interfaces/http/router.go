// Package http exposes stored judgment records and citation graphs over a
// read-only JSON API.
package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/CaseLaw-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	RecordHandler *handlers.RecordHandler
	GraphHandler  *handlers.GraphHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	AllowedOrigins []string
	RateLimiter    *middleware.ClientLimiter
	RateLimit      middleware.RateLimitConfig

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.AppMetrics
}

// NewRouter builds the route tree:
//
//	GET /healthz, /readyz          health checks
//	GET /metrics                   Prometheus scrape
//	GET /api/v1/records            filtered, paged records
//	GET /api/v1/records/lookup     one record by ?id=
//	GET /api/v1/records/search     full-text search by ?q=
//	GET /api/v1/graph              laid-out citation graph
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Error("Panic while serving request",
			logging.String("path", c.Request.URL.Path),
			logging.String("panic", fmt.Sprint(rec)))
		abortWith(c, errors.ErrCodeInternal)
	}))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(log, middleware.DefaultLoggingConfig()))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}

	r.NoRoute(func(c *gin.Context) { abortWith(c, errors.ErrCodeNotFound) })
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, handlers.ErrorEnvelope{Error: handlers.APIError{
			Code:    string(errors.ErrCodeBadRequest),
			Message: "method not allowed",
		}})
	})

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	registerRecordRoutes(api, cfg.RecordHandler)
	registerGraphRoutes(api, cfg.GraphHandler)

	return r
}

func registerRecordRoutes(r *gin.RouterGroup, h *handlers.RecordHandler) {
	if h == nil {
		return
	}
	records := r.Group("/records")
	records.GET("", h.List)
	records.GET("/lookup", h.Lookup)
	records.GET("/search", h.Search)
}

func registerGraphRoutes(r *gin.RouterGroup, h *handlers.GraphHandler) {
	if h == nil {
		return
	}
	r.GET("/graph", h.Get)
}

func abortWith(c *gin.Context, code errors.ErrorCode) {
	c.AbortWithStatusJSON(errors.HTTPStatusForCode(code), handlers.ErrorEnvelope{Error: handlers.APIError{
		Code:    string(code),
		Message: errors.DefaultMessageForCode(code),
	}})
}
