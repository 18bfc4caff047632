package main

import (
	"context"
	"testing"

	appconfig "github.com/wolfman30/clinical-agent-platform/internal/config"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

func TestLoadAWSSkippedWhenUnused(t *testing.T) {
	awsCfg, err := loadAWS(context.Background(), &appconfig.Config{AWSRegion: "us-east-1"}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if awsCfg != nil {
		t.Fatalf("expected nil AWS config when no component needs it")
	}
}
