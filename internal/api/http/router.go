package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GriffinCanCode/AgentOS/push/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/push/internal/infrastructure/tracing"
)

// RouterConfig configures the HTTP router
type RouterConfig struct {
	Development bool
	CORSOrigins []string
	RateLimit   *middleware.RateLimitConfig
	// Registry is served at /metrics when set
	Registry *prometheus.Registry
	Tracer   *tracing.Tracer
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	if !cfg.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Tracer != nil {
		router.Use(tracing.HTTPMiddleware(cfg.Tracer))
	}
	router.Use(monitoring.Middleware(h.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	if cfg.RateLimit != nil {
		router.Use(middleware.RateLimit(*cfg.RateLimit))
	}

	router.GET("/health", h.Health)
	if cfg.Registry != nil {
		router.GET("/metrics", gin.WrapH(monitoring.Handler(cfg.Registry)))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/owners", h.ListOwners)
		v1.POST("/owners/:owner/connections", h.Register)
		v1.GET("/owners/:owner/connections", h.ListConnections)
		v1.DELETE("/owners/:owner/connections", h.Unregister)
		v1.POST("/owners/:owner/connections/take", h.Take)
		v1.DELETE("/owners/:owner", h.RemoveOwner)
		v1.GET("/connections/lookup", h.Lookup)
		v1.GET("/apps", h.ListApps)
		v1.GET("/stats", h.Stats)
	}

	return router
}
