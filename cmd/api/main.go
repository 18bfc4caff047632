package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/wolfman30/clinical-agent-platform/cmd/mainconfig"
	appbootstrap "github.com/wolfman30/clinical-agent-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinical-agent-platform/internal/config"
	"github.com/wolfman30/clinical-agent-platform/internal/extraction"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinical-agent-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"auth_disabled", cfg.AuthDisabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := loadAWS(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	svc, err := appbootstrap.BuildServices(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build services", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	var inline *extraction.Worker
	if svc.InlineExtraction {
		inline = svc.ExtractionWorker(cfg.WorkerCount)
		inline.Start(ctx)
		logger.Info("inline extraction workers started", "workers", cfg.WorkerCount)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           appbootstrap.BuildHTTPHandler(svc),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	if inline != nil {
		inline.Wait()
	}

	logger.Info("server stopped")
}

// loadAWS returns nil when nothing in the config needs AWS.
func loadAWS(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*aws.Config, error) {
	if !mainconfig.NeedsAWS(cfg) {
		logger.Info("AWS integrations disabled")
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &awsCfg, nil
}
