// Package main is the entry point for the report API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"bizreports/internal/config"
	"bizreports/internal/domain/auth"
	"bizreports/internal/domain/reports"
	"bizreports/internal/infrastructure/cache"
	"bizreports/internal/infrastructure/export"
	v1 "bizreports/internal/infrastructure/http/v1"
	"bizreports/internal/infrastructure/http/v1/handlers"
	"bizreports/internal/infrastructure/storage/postgres"
	"bizreports/internal/infrastructure/storage/postgres/catalog_repo"
	"bizreports/internal/infrastructure/storage/postgres/report_repo"
	"bizreports/internal/observability"
	"bizreports/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting report server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.ApplicationName = "bizreports-api"
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool).WithReportTimeout(cfg.ExportTimeout)

	// --- Currencies ---
	currencies := cache.NewCurrencyCache(catalog_repo.NewCurrencyRepo(txManager), cfg.CurrencyTTL).WithNotify(pool)
	currencies.Start(ctx)
	defer currencies.Stop()

	// --- Feature flags ---
	flags := cache.NewCacheBackedFlags(catalog_repo.NewAccountRepo(txManager), cfg.FeatureTTL)

	// --- Metrics ---
	metrics := observability.NewMetrics()
	metrics.Registerer().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// --- Report pipeline ---
	gotenberg := export.NewGotenbergClient(cfg.GotenbergURL, nil)
	reportService := reports.NewService(
		report_repo.NewReportRepo(txManager),
		currencies,
		txManager,
		export.NewDefault(gotenberg),
		metrics,
		reports.ServiceConfig{
			ProductName:  cfg.ProductName,
			StrictTotals: cfg.StrictTotals,
		},
	).WithLogger(log)

	scheduleService := reports.NewScheduleService(report_repo.NewScheduleRepo(txManager), nil)

	// --- JWT Service ---
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: jwtService,
		Reports:      reportService,
		Schedules:    scheduleService,
		Flags:        flags,
		Metrics:      metrics,
		HealthChecks: map[string]handlers.Pinger{
			"postgres":  pool,
			"gotenberg": gotenberg,
		},
		Development: cfg.Development(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ExportTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port, "product", cfg.ProductName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	go logPoolStats(ctx, pool)

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding exports time to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// logPoolStats reports pool usage every five minutes until ctx ends.
func logPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			postgres.LogPoolStats(ctx, pool)
		}
	}
}
