// Package api wires the ops HTTP surface: run history, latest
// detection results, the live run-event stream, and Prometheus
// scraping.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/stm-analytics/scout-go/internal/api/handlers"
	"github.com/stm-analytics/scout-go/internal/api/middleware"
	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/metrics"
	"github.com/stm-analytics/scout-go/internal/core/pipeline"
	"github.com/stm-analytics/scout-go/internal/database"
	"github.com/stm-analytics/scout-go/internal/websocket"
)

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, p *pipeline.Pipeline, history database.HistoryRepository,
	logger *logrus.Logger, collector *metrics.Collector, wsHub *websocket.Hub) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.MetricsMiddleware(collector))

	h := handlers.NewHandlers(cfg, p, history, wsHub, logger)

	// Public routes
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint (no auth required for connection)
	router.GET("/ws", h.WebSocketHandler)

	api := router.Group("/api/v1")
	{
		runs := api.Group("/runs")
		{
			runs.GET("", h.ListRuns)
			runs.GET("/:id", h.GetRun)
		}

		alerts := api.Group("/alerts")
		{
			alerts.GET("/feed", h.GetAlertFeed)
			alerts.GET("/:detector", h.GetDetectorReport)
		}

		portfolio := api.Group("/portfolio")
		{
			portfolio.GET("/patterns", h.GetPortfolioPatterns)
			portfolio.GET("/health", h.GetPortfolioHealth)
		}

		api.GET("/predictions", h.GetPredictions)
		api.GET("/summary", h.GetSummary)

		// Triggering a run is the only mutating endpoint; it is the
		// only one behind auth, and auth can be switched off for
		// trusted networks.
		trigger := api.Group("/runs")
		if cfg.Auth.Enabled && cfg.Auth.JWTSecret != "" {
			trigger.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
		}
		trigger.POST("/trigger", h.TriggerRun)

		ws := api.Group("/websocket")
		{
			ws.GET("/stats", h.GetWebSocketStats)
		}
	}

	return router
}
