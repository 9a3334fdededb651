// Package main is the entry point for the scheduled report worker.
// It exports due schedules for every account and advances their send dates.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"bizreports/internal/config"
	"bizreports/internal/domain/reports"
	"bizreports/internal/infrastructure/cache"
	"bizreports/internal/infrastructure/export"
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

	log.Info("starting scheduled report worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.ApplicationName = "bizreports-worker"
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool).WithReportTimeout(cfg.ExportTimeout)

	currencies := cache.NewCurrencyCache(catalog_repo.NewCurrencyRepo(txManager), cfg.CurrencyTTL).WithNotify(pool)
	currencies.Start(ctx)
	defer currencies.Stop()

	accounts := catalog_repo.NewAccountRepo(txManager)
	flags := cache.NewCacheBackedFlags(accounts, cfg.FeatureTTL)

	metrics := observability.NewMetrics()

	reportService := reports.NewService(
		report_repo.NewReportRepo(txManager),
		currencies,
		txManager,
		export.NewDefault(export.NewGotenbergClient(cfg.GotenbergURL, nil)),
		metrics,
		reports.ServiceConfig{
			ProductName:  cfg.ProductName,
			StrictTotals: cfg.StrictTotals,
		},
	).WithLogger(log)

	worker := NewWorker(WorkerConfig{
		Schedules:     reports.NewScheduleService(report_repo.NewScheduleRepo(txManager), nil),
		Owners:        accounts,
		Flags:         flags,
		Exporter:      reportService,
		Deliverer:     NewFileDeliverer(cfg.ReportOutputDir),
		Metrics:       metrics,
		Interval:      cfg.WorkerInterval,
		BatchSize:     cfg.WorkerBatchSize,
		ExportTimeout: cfg.ExportTimeout,
	}, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
