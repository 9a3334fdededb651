// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	appctx "bizreports/internal/core/context"
	"bizreports/internal/core/security"
	"bizreports/internal/infrastructure/http/v1/handlers"
	"bizreports/internal/infrastructure/http/v1/middleware"
	"bizreports/internal/observability"
	"bizreports/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	Reports   handlers.ReportService
	Schedules handlers.ScheduleService

	// Flags decides which accounts may run reports; nil enables every account.
	Flags security.FeatureFlagProvider

	// Metrics may be nil; /metrics then answers 503.
	Metrics *observability.Metrics

	// HealthChecks are pinged by /health/ready.
	HealthChecks map[string]handlers.Pinger

	// Clock overrides time.Now for default report ranges.
	Clock func() time.Time

	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(cfg.Metrics.Middleware())
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}
	router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		registerReportRoutes(protected, cfg)
	}

	return router
}

// registerReportRoutes registers report endpoints. Everything requires the view_all permission.
func registerReportRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	reportsGroup := rg.Group("/reports")
	reportsGroup.Use(middleware.RequirePermission(appctx.PermissionViewAll))

	reportHandler := handlers.NewReportsHandler(handlers.NewBaseHandler(), cfg.Reports, cfg.Schedules).
		WithFlags(cfg.Flags)
	if cfg.Clock != nil {
		reportHandler.WithClock(cfg.Clock)
	}

	reportsGroup.GET("", reportHandler.Build)
	reportsGroup.GET("/types", reportHandler.Types)
	reportsGroup.GET("/dataviz", reportHandler.Dataviz)
}
