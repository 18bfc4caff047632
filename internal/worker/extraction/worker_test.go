package extractionworker

import (
	"context"
	"strings"
	"testing"

	appconfig "github.com/wolfman30/clinical-agent-platform/internal/config"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background(), nil, logging.New("error")); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestRunRejectsMemoryQueue(t *testing.T) {
	err := Run(context.Background(), &appconfig.Config{UseMemoryQueue: true}, logging.New("error"))
	if err == nil || !strings.Contains(err.Error(), "USE_MEMORY_QUEUE") {
		t.Fatalf("expected memory queue error, got %v", err)
	}
}

func TestRunRequiresQueueAndDatabase(t *testing.T) {
	err := Run(context.Background(), &appconfig.Config{}, logging.New("error"))
	if err == nil || !strings.Contains(err.Error(), "EXTRACTION_QUEUE_URL") {
		t.Fatalf("expected queue url error, got %v", err)
	}

	err = Run(context.Background(), &appconfig.Config{ExtractionQueueURL: "http://localhost:4566/queue/extraction"}, logging.New("error"))
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected database url error, got %v", err)
	}
}
