package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopsync/internal/config"
	"shopsync/internal/database"
	"shopsync/internal/ingest"
	"shopsync/internal/logger"
	"shopsync/internal/store"
	"shopsync/internal/syncer"
	"shopsync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ingestion worker
	engine := ingest.NewEngine(store.NewProductStore(db.DB), logger, cfg.IngestChunkSize, cfg.IngestChunkWait)
	w := worker.New(cfg, logger, engine, store.NewSourceStore(db.DB))

	logger.Info("Starting worker...")
	go w.Start(ctx)

	// Sync scheduler on its own ticker
	scheduler := syncer.NewScheduler(store.NewSyncStore(db.DB), syncer.NewFetcher(cfg.FetchTimeout),
		logger, cfg.SyncInterval, cfg.SyncBatchSize, cfg.SyncWorkers)

	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		for {
			if _, err := scheduler.RunOnce(ctx); err != nil {
				logger.Error("Sync run failed: %v", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	cancel()
	w.Stop()
}
