package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/everkeep/everkeep/internal/logger"
	"github.com/everkeep/everkeep/pkg/cache"
	"github.com/everkeep/everkeep/pkg/config"
	"github.com/everkeep/everkeep/pkg/gc"
	"github.com/everkeep/everkeep/pkg/media"
	"github.com/everkeep/everkeep/pkg/memorial"
	"github.com/everkeep/everkeep/pkg/memorial/service"
	"github.com/everkeep/everkeep/pkg/upload"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	dryRun := flag.Bool("cleanup-dry-run", false, "Log cleanup deletions without performing them")
	sweep := flag.Bool("sweep", false, "Run one orphaned-media sweep and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *dryRun {
		cfg.Cleanup.DryRun = true
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	fmt.Println("EverKeep - Memorial Service")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ========================================================================
	// Step 1: Stores
	// ========================================================================

	recordStore, err := config.CreateRecordStore(ctx, &cfg.Record)
	if err != nil {
		log.Fatalf("Failed to create record store: %v", err)
	}
	defer func() {
		if err := recordStore.Close(); err != nil {
			logger.Error("Record store close error: %v", err)
		}
	}()

	objectStore, err := config.CreateObjectStore(ctx, &cfg.Objects)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	extractor := media.Extractor{
		CDNHost:      cfg.Media.CDNHost,
		EndpointHost: cfg.Media.EndpointHost,
		Bucket:       cfg.Media.Bucket,
	}

	// One-shot orphan sweep mode.
	if *sweep {
		sweeper, err := gc.NewSweeper(recordStore, objectStore, extractor, cfg.Cleanup.BatchSize, cfg.Cleanup.DryRun)
		if err != nil {
			log.Fatalf("Failed to create sweeper: %v", err)
		}
		stats, err := sweeper.Sweep(ctx)
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		logger.Info("Sweep completed: %s", stats.Summary())
		return
	}

	// ========================================================================
	// Step 2: Metrics
	// ========================================================================

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	// ========================================================================
	// Step 3: Cleanup pipeline
	// ========================================================================

	deleter := gc.NewDeleter(objectStore, extractor, cfg.Cleanup.BatchSize)
	worker := gc.NewWorker(recordStore, deleter, metricsResult.CleanupMetrics, gc.WorkerConfig{
		Enabled:     cfg.Cleanup.Enabled,
		Interval:    cfg.Cleanup.Interval,
		BatchSize:   cfg.Cleanup.BatchSize,
		MaxAttempts: cfg.Cleanup.MaxAttempts,
		DryRun:      cfg.Cleanup.DryRun,
	})
	worker.Start()

	// Drain whatever a previous run left behind.
	if cfg.Cleanup.Enabled {
		if stats, err := worker.RunNow(ctx); err != nil {
			logger.Warn("Startup cleanup drain failed: %v", err)
		} else if stats.TaskCount > 0 {
			logger.Info("Startup cleanup drain: %s", stats.Summary())
		}
	}

	// ========================================================================
	// Step 4: Service
	// ========================================================================

	guard := memorial.NewLifecycleGuard(recordStore)
	ledger := memorial.NewHistoryLedger(recordStore)
	authorizer := upload.NewAuthorizer(objectStore, guard, ledger,
		metricsResult.UploadMetrics, cfg.Upload.GrantExpiry)
	authorizer.SetRateLimit(cfg.Upload.GrantsPerSecond, cfg.Upload.GrantBurst)

	svc := service.New(recordStore, authorizer, cache.Config{
		Enabled:    cfg.Cache.Enabled,
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
	})
	_ = svc // wired into the transport layer by the embedding application

	logger.Info("EverKeep is running. Press Ctrl+C to stop.")

	// ========================================================================
	// Step 5: Shutdown
	// ========================================================================

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, initiating graceful shutdown...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := worker.Stop(shutdownCtx); err != nil {
		logger.Error("Cleanup worker shutdown error: %v", err)
	}
	if metricsResult.Server != nil {
		if err := metricsResult.Server.Stop(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error: %v", err)
		}
	}

	logger.Info("EverKeep stopped gracefully")
}
