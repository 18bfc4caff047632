package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	appconfig "github.com/wolfman30/clinical-agent-platform/internal/config"
	extractionworker "github.com/wolfman30/clinical-agent-platform/internal/worker/extraction"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting extraction worker", "env", cfg.Env)
	if err := extractionworker.Run(ctx, cfg, logger); err != nil {
		logger.Error("extraction worker failed", "error", err)
		os.Exit(1)
	}
}
