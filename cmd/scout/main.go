package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stm-analytics/scout-go/internal/api"
	"github.com/stm-analytics/scout-go/internal/config"
	"github.com/stm-analytics/scout-go/internal/core/alerting"
	"github.com/stm-analytics/scout-go/internal/core/cache"
	"github.com/stm-analytics/scout-go/internal/core/metrics"
	"github.com/stm-analytics/scout-go/internal/core/pipeline"
	"github.com/stm-analytics/scout-go/internal/core/scheduler"
	"github.com/stm-analytics/scout-go/internal/database"
	"github.com/stm-analytics/scout-go/internal/database/sqlite"
	"github.com/stm-analytics/scout-go/internal/websocket"
	"github.com/stm-analytics/scout-go/pkg/logger"
	"github.com/stm-analytics/scout-go/pkg/version"
)

func main() {
	once := flag.Bool("once", false, "run one detection batch and exit")
	configPath := flag.String("config", "", "path to the configuration file")
	dataDir := flag.String("data-dir", "", "override the property data directory")
	flag.Parse()

	// Initialize logger
	log := logger.New()
	log.Infof("Scout %s starting", version.String())

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if *dataDir != "" {
		cfg.Data.InputDir = *dataDir
	}

	// Initialize history database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.Database.MigrationsPath, log.Logger); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	history := sqlite.NewHistoryRepository(db, log.Logger)

	// Prometheus collector
	var collector *metrics.Collector
	if cfg.Monitoring.Enabled {
		collector = metrics.NewCollector(cfg.Monitoring.Prefix)
	}

	// Redis-backed alert suppression; detection runs fine without it,
	// alerts just re-fire on every run.
	var suppressor alerting.Suppressor
	if cfg.Redis.Enabled {
		suppressionCache, err := cache.NewSuppressionCache(cfg, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, alert suppression disabled")
		} else {
			defer suppressionCache.Close()
			suppressor = suppressionCache
		}
	}

	// Run-event stream
	wsHub := websocket.NewHub(log.Logger)
	if collector != nil {
		wsHub.OnConnect = collector.WebSocketConnected
		wsHub.OnDisconnect = collector.WebSocketDisconnected
	}
	go wsHub.Run()

	// Detection pipeline
	p, err := pipeline.New(cfg, log, pipeline.Options{
		History:    history,
		Collector:  collector,
		Hub:        wsHub,
		Suppressor: suppressor,
	})
	if err != nil {
		log.Fatal("Failed to build pipeline:", err)
	}

	// One-shot mode for cron-less environments and backfills
	if *once {
		result, err := p.Run(context.Background())
		if err != nil {
			log.Fatal("Detection run failed:", err)
		}
		log.WithField("run_id", result.Summary.RunID).Info("Detection run complete")
		return
	}

	batch := func(ctx context.Context) error {
		_, err := p.Run(ctx)
		return err
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler, log.Logger, batch)
		if err != nil {
			log.Fatal("Failed to build scheduler:", err)
		}
		if err := sched.Start(); err != nil {
			log.Fatal("Failed to start scheduler:", err)
		}
	}

	// Ops API
	router := api.NewRouter(cfg, p, history, log.Logger, collector, wsHub)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting Scout on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Info("Scout exited")
}
