package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinical-agent-platform/internal/agents"
	"github.com/wolfman30/clinical-agent-platform/internal/attachments"
	"github.com/wolfman30/clinical-agent-platform/internal/audit"
	"github.com/wolfman30/clinical-agent-platform/internal/briefing"
	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	appconfig "github.com/wolfman30/clinical-agent-platform/internal/config"
	"github.com/wolfman30/clinical-agent-platform/internal/ehr"
	"github.com/wolfman30/clinical-agent-platform/internal/extraction"
	"github.com/wolfman30/clinical-agent-platform/internal/observability/metrics"
	"github.com/wolfman30/clinical-agent-platform/internal/profile"
	"github.com/wolfman30/clinical-agent-platform/internal/realtime"
	"github.com/wolfman30/clinical-agent-platform/internal/session"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// Services is the wired application graph shared by the binaries.
type Services struct {
	Config   *appconfig.Config
	Logger   *logging.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.AgentMetrics
	LLM      *LLMStack

	Repo     ehr.Repository
	Chats    chat.Store
	Profiles profile.Store
	Auditor  *audit.Service

	Agents      *agents.Router
	Live        *agents.LiveSessions
	Briefing    *briefing.Service
	Attachments *attachments.Store

	ExtractionQueue extraction.Queue
	ExtractionJobs  extraction.JobStore
	Extraction      *extraction.Publisher
	// InlineExtraction is set when the queue lives in process memory and the
	// API must run the extraction workers itself.
	InlineExtraction bool

	Operations *session.Operations
	Quota      *session.Quota
	Hub        *realtime.Hub

	closers []func()
}

// MetricsHandler serves the service registry in Prometheus text format.
func (s *Services) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}

// Close releases pools and clients in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// BuildServices wires stores, the LLM chain and the agent router from
// config. Missing infrastructure degrades to in-memory implementations.
func BuildServices(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (*Services, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	registry := prometheus.NewRegistry()
	agentMetrics := metrics.NewAgentMetrics(registry)
	svc := &Services{
		Config:     cfg,
		Logger:     logger,
		Registry:   registry,
		Metrics:    agentMetrics,
		Operations: session.NewOperations(),
		Hub:        realtime.NewHub(logger),
	}

	stack, err := BuildLLM(ctx, cfg, awsCfg, agentMetrics, logger)
	if err != nil {
		return nil, err
	}
	svc.LLM = stack
	svc.Quota = session.NewQuota(registry, stack.Gate)

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	var cache briefing.Cache
	if redisClient != nil {
		svc.closers = append(svc.closers, func() { _ = redisClient.Close() })
		svc.Chats = chat.NewRedisStore(redisClient, cfg.ChatHistoryLimit)
		svc.Profiles = profile.NewRedisStore(redisClient)
		cache = briefing.NewRedisCache(redisClient)
		logger.Info("redis stores enabled", "addr", cfg.RedisAddr)
	} else {
		svc.Chats = chat.NewMemoryStore(cfg.ChatHistoryLimit)
		svc.Profiles = profile.NewMemoryStore()
		cache = briefing.NewMemoryCache()
		logger.Warn("redis not configured; chat history and profiles are kept in memory")
	}

	briefingOpts := []briefing.Option{briefing.WithLogger(logger)}
	pool := ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		svc.closers = append(svc.closers, pool.Close)
		svc.Repo = ehr.NewPostgresRepository(pool)
		briefingOpts = append(briefingOpts, briefing.WithArchive(briefing.NewArchive(pool)))

		sqlDB := SQLDB(pool)
		svc.closers = append(svc.closers, func() { _ = sqlDB.Close() })
		svc.Auditor = audit.NewService(sqlDB)
		logger.Info("postgres repository enabled")
	} else {
		svc.Repo = ehr.NewMemoryRepository()
		logger.Warn("DATABASE_URL not set; patient charts are kept in memory")
	}
	if demo := strings.TrimSpace(cfg.DemoUserID); demo != "" && (cfg.AuthDisabled || pool == nil) {
		if err := ehr.EnsureDemoPatients(ctx, svc.Repo, demo); err != nil {
			logger.Warn("failed to seed demo patients", "user_id", demo, "error", err)
		}
	}

	routerOpts := []agents.Option{
		agents.WithLogger(logger),
		agents.WithObserver(agentMetrics),
		agents.WithBoardPacing(cfg.BoardReviewPacing),
		agents.WithBoardMaxSpecialties(cfg.BoardMaxSpecialties),
		agents.WithDebatePacing(cfg.DebatePacing),
		agents.WithDebateMaxTurns(cfg.DebateMaxTurns),
	}
	if svc.Auditor != nil {
		routerOpts = append(routerOpts, agents.WithAuditor(svc.Auditor))
	}
	svc.Agents = agents.NewRouter(stack.Client, routerOpts...)
	svc.Live = agents.NewLiveSessions(stack.Client, svc.Repo, logger)
	svc.Briefing = briefing.NewService(stack.Client, cache, briefingOpts...)

	svc.Attachments = buildAttachments(cfg, awsCfg, logger)
	buildExtraction(svc, cfg, awsCfg, logger)
	return svc, nil
}

func buildAttachments(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *attachments.Store {
	opts := []attachments.Option{
		attachments.WithURLTTL(cfg.AttachmentURLTTL),
		attachments.WithMaxBytes(cfg.MaxAttachmentBytes),
		attachments.WithLogger(logger),
	}
	bucket := strings.TrimSpace(cfg.AttachmentsBucket)
	if bucket == "" || awsCfg == nil {
		logger.Warn("report attachments disabled", "bucket_set", bucket != "", "aws_config", awsCfg != nil)
		return attachments.NewStore(nil, nil, "", opts...)
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return attachments.NewStore(client, s3.NewPresignClient(client), bucket, opts...)
}

func buildExtraction(svc *Services, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) {
	useSQS := !cfg.UseMemoryQueue && strings.TrimSpace(cfg.ExtractionQueueURL) != "" && awsCfg != nil
	if useSQS {
		svc.ExtractionQueue = extraction.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.ExtractionQueueURL)
		svc.ExtractionJobs = extraction.NewDynamoJobStore(dynamodb.NewFromConfig(*awsCfg), cfg.ExtractionJobsTable, logger)
		logger.Info("extraction queue enabled", "queue_url", cfg.ExtractionQueueURL, "table", cfg.ExtractionJobsTable)
	} else {
		svc.ExtractionQueue = extraction.NewMemoryQueue(64)
		svc.ExtractionJobs = extraction.NewMemoryJobStore()
		svc.InlineExtraction = true
		logger.Info("extraction runs in process with a memory queue")
	}
	svc.Extraction = extraction.NewPublisher(svc.ExtractionQueue, svc.ExtractionJobs, logger)
}

// ExtractionWorker builds a worker over the service queue and repository.
func (s *Services) ExtractionWorker(count int) *extraction.Worker {
	return extraction.NewWorker(
		extraction.NewExtractor(s.LLM.Client),
		s.Repo,
		s.ExtractionQueue,
		s.ExtractionJobs,
		s.Logger,
		extraction.WithWorkerCount(count),
		extraction.WithObserver(s.Metrics),
	)
}
