package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/clinical-agent-platform/internal/config"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/internal/observability/metrics"
	"github.com/wolfman30/clinical-agent-platform/internal/ratelimit"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// LLMStack is the provider chain every agent call goes through:
// rate-limit gate, instrumentation, then the provider (with optional fallback).
type LLMStack struct {
	Client   llm.Client
	Gate     *ratelimit.Gate
	Provider string
	Model    string
}

// BuildLLM wires the provider chain from config. awsCfg may be nil when
// Bedrock is not used.
func BuildLLM(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.AgentMetrics, logger *logging.Logger) (*LLMStack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var bedrock llm.Client
	bedrockModel := strings.TrimSpace(cfg.BedrockModelID)
	if bedrockModel != "" && awsCfg != nil {
		bedrock = llm.NewBedrockClient(bedrockruntime.NewFromConfig(*awsCfg), bedrockModel)
	}
	gemini := llm.NewKeyedClient(llm.NewGeminiFactory(cfg.GeminiModel), cfg.GeminiAPIKey)

	var (
		provider llm.Client
		model    string
	)
	switch cfg.LLMProvider {
	case "gemini":
		provider, model = gemini, cfg.GeminiModel
	case "bedrock":
		if bedrock == nil {
			return nil, fmt.Errorf("bootstrap: LLM_PROVIDER=bedrock requires BEDROCK_MODEL_ID and AWS config")
		}
		provider, model = bedrock, bedrockModel
	case "", "auto":
		model = cfg.GeminiModel
		if bedrock != nil {
			provider = llm.NewFallbackClient(gemini, bedrock, logger)
			logger.Info("bedrock fallback enabled", "model", bedrockModel)
		} else {
			provider = gemini
		}
	default:
		return nil, fmt.Errorf("bootstrap: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	var observer llm.CallObserver
	var gateObserver ratelimit.Observer
	if m != nil {
		observer = m
		gateObserver = m
	}
	gate := ratelimit.New(
		ratelimit.WithWindow(cfg.RateLimitBackoff),
		ratelimit.WithObserver(gateObserver),
		ratelimit.WithLogger(logger),
	)
	client := ratelimit.NewClient(gate, llm.NewInstrumentedClient(provider, model, observer))

	name := cfg.LLMProvider
	if name == "" {
		name = "auto"
	}
	logger.Info("llm provider configured", "provider", name, "model", model, "default_key", strings.TrimSpace(cfg.GeminiAPIKey) != "")
	return &LLMStack{Client: client, Gate: gate, Provider: name, Model: model}, nil
}
