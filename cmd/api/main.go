package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/api"
	"github.com/dvloznov/scrap-tracker/internal/api/handlers"
	"github.com/dvloznov/scrap-tracker/internal/app"
	"github.com/dvloznov/scrap-tracker/internal/config"
	"github.com/dvloznov/scrap-tracker/internal/gcsuploader"
	"github.com/dvloznov/scrap-tracker/internal/jobs"
	"github.com/dvloznov/scrap-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/scrap-tracker/internal/logger"
)

func main() {
	// Environment first, flags override
	cfg := config.Load()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open record store")
	}
	defer a.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	var (
		publisher jobs.Publisher
		storage   *gcsuploader.GCSStorageService
		jobQueue  *inmemory.Queue
	)

	workerCtx, cancelWorker := context.WithCancel(logger.WithContext(ctx, log))
	defer cancelWorker()

	if cfg.ExportBucket == "" {
		log.Warn().Msg("No export bucket configured - export jobs will be disabled")
	} else {
		storage = gcsuploader.NewGCSStorageService()
		jobQueue = inmemory.NewQueue(100, jobStore)
		publisher = jobQueue

		log.Info().Str("bucket", cfg.ExportBucket).Msg("Starting export worker")
		if err := jobQueue.Start(workerCtx, jobs.NewExportHandler(a.Store, storage, cfg.ExportBucket)); err != nil {
			log.Fatal().Err(err).Msg("Failed to start export worker")
		}
	}

	// Initialize handlers
	h := api.Handlers{
		Records:   handlers.NewRecordsHandler(a.Store, log),
		Dashboard: handlers.NewDashboardHandler(a.Store, log),
		Jobs:      handlers.NewJobsHandler(jobStore, log),
	}
	if storage != nil {
		h.Exports = handlers.NewExportsHandler(a.Store, publisher, jobStore, storage, log)
	} else {
		h.Exports = handlers.NewExportsHandler(a.Store, nil, nil, nil, log)
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(h, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("backend", cfg.Backend).
			Str("mirror", cfg.Mirror).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight exports
	if jobQueue != nil {
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
