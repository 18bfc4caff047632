package extractionworker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinical-agent-platform/cmd/mainconfig"
	appbootstrap "github.com/wolfman30/clinical-agent-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinical-agent-platform/internal/config"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// Run starts the extraction workers and blocks until ctx is canceled.
func Run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	if cfg == nil {
		return fmt.Errorf("extraction worker requires config")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.UseMemoryQueue {
		return fmt.Errorf("extraction worker cannot run when USE_MEMORY_QUEUE=true; the API process runs inline workers instead")
	}
	if strings.TrimSpace(cfg.ExtractionQueueURL) == "" {
		return fmt.Errorf("extraction worker requires EXTRACTION_QUEUE_URL")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return fmt.Errorf("extraction worker requires DATABASE_URL so results reach the shared chart store")
	}

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	svc, err := appbootstrap.BuildServices(ctx, cfg, &awsConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to configure services: %w", err)
	}
	defer svc.Close()
	if svc.InlineExtraction {
		return fmt.Errorf("extraction worker could not reach the configured queue")
	}

	worker := svc.ExtractionWorker(cfg.WorkerCount)
	worker.Start(ctx)
	logger.Info("extraction worker started", "workers", cfg.WorkerCount, "queue_url", cfg.ExtractionQueueURL)

	<-ctx.Done()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("extraction worker stopped")
	case <-doneCtx.Done():
		logger.Error("extraction worker shutdown timed out", "error", doneCtx.Err())
	}
	return nil
}
