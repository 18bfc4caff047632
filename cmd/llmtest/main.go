package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/wolfman30/clinical-agent-platform/cmd/mainconfig"
	"github.com/wolfman30/clinical-agent-platform/internal/agents"
	appbootstrap "github.com/wolfman30/clinical-agent-platform/internal/app/bootstrap"
	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	appconfig "github.com/wolfman30/clinical-agent-platform/internal/config"
	"github.com/wolfman30/clinical-agent-platform/internal/ehr"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// llmtest routes one query against a demo patient through the configured
// provider chain and prints every message the agents produce.
func main() {
	query := flag.String("query", "Give me a summary of this patient", "clinician query to route")
	patientIdx := flag.Int("patient", 0, "index into the demo patient panel")
	timeout := flag.Duration("timeout", 3*time.Minute, "overall deadline")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	stack, err := appbootstrap.BuildLLM(ctx, cfg, awsCfg, nil, logger)
	if err != nil {
		logger.Error("failed to build llm client", "error", err)
		os.Exit(1)
	}

	patients := ehr.DemoPatients("llmtest")
	if *patientIdx < 0 || *patientIdx >= len(patients) {
		fmt.Fprintf(os.Stderr, "patient index must be between 0 and %d\n", len(patients)-1)
		os.Exit(2)
	}
	patient := patients[*patientIdx]

	router := agents.NewRouter(stack.Client,
		agents.WithLogger(logger),
		agents.WithBoardPacing(cfg.BoardReviewPacing),
		agents.WithDebatePacing(cfg.DebatePacing),
		agents.WithDebateMaxTurns(cfg.DebateMaxTurns),
	)

	fmt.Printf("provider=%s model=%s patient=%q\n", stack.Provider, stack.Model, patient.Name)
	fmt.Printf("query: %s\n\n", *query)

	start := time.Now()
	emitted := 0
	msg := router.Handle(ctx, agents.Request{
		UserID:   "llmtest",
		Query:    *query,
		Patient:  patient,
		Settings: clinical.DefaultSettings(),
		Emit: func(m chat.Message) {
			emitted++
			fmt.Printf("... partial %d (%s, live=%t)\n", emitted, m.Type(), m.IsLive)
		},
	})

	out, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		logger.Error("failed to encode message", "error", err)
		os.Exit(1)
	}
	fmt.Printf("\nfinal message after %v:\n%s\n", time.Since(start).Round(time.Millisecond), out)
	if status := stack.Gate.Status(); status.Limited {
		fmt.Printf("\nprovider rate limited until %s\n", status.RetryAfter.Format(time.RFC3339))
	}
}
