package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port             string
	Env              string
	LogLevel         string
	LogFormat        string
	HTTPWriteTimeout time.Duration
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool

	// Model provider
	LLMProvider    string
	GeminiAPIKey   string
	GeminiModel    string
	BedrockModelID string

	// Agent pacing and limits
	RateLimitBackoff    time.Duration
	BoardReviewPacing   time.Duration
	DebatePacing        time.Duration
	DebateMaxTurns      int
	BoardMaxSpecialties int
	ChatHistoryLimit    int

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	AttachmentsBucket   string
	AttachmentURLTTL    time.Duration
	MaxAttachmentBytes  int64
	ExtractionQueueURL  string
	ExtractionJobsTable string
	UseMemoryQueue      bool
	WorkerCount         int

	// HTTP surface
	AuthJWTSecret      string
	AuthDisabled       bool
	DemoUserID         string
	CORSAllowedOrigins []string
	HTTPRateLimitRPS   float64
	HTTPRateLimitBurst int
	MetricsToken       string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment values win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		HTTPWriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "auto"))),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		RateLimitBackoff:    getEnvAsDuration("RATE_LIMIT_BACKOFF", 60*time.Second),
		BoardReviewPacing:   getEnvAsDuration("BOARD_REVIEW_PACING", 800*time.Millisecond),
		DebatePacing:        getEnvAsDuration("DEBATE_PACING", 1500*time.Millisecond),
		DebateMaxTurns:      getEnvAsInt("DEBATE_MAX_TURNS", 12),
		BoardMaxSpecialties: getEnvAsInt("BOARD_MAX_SPECIALTIES", 6),
		ChatHistoryLimit:    getEnvAsInt("CHAT_HISTORY_LIMIT", 200),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		AttachmentsBucket:   getEnv("ATTACHMENTS_BUCKET", ""),
		AttachmentURLTTL:    getEnvAsDuration("ATTACHMENT_URL_TTL", 24*time.Hour),
		MaxAttachmentBytes:  int64(getEnvAsInt("MAX_ATTACHMENT_BYTES", 25<<20)),
		ExtractionQueueURL:  getEnv("EXTRACTION_QUEUE_URL", ""),
		ExtractionJobsTable: getEnv("EXTRACTION_JOBS_TABLE", "extraction_jobs"),
		UseMemoryQueue:      getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:         getEnvAsInt("WORKER_COUNT", 2),

		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		AuthDisabled:       getEnvAsBool("AUTH_DISABLED", false),
		DemoUserID:         getEnv("DEMO_USER_ID", "demo-clinician"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		HTTPRateLimitRPS:   getEnvAsFloat("HTTP_RATE_LIMIT_RPS", 10),
		HTTPRateLimitBurst: getEnvAsInt("HTTP_RATE_LIMIT_BURST", 20),
		MetricsToken:       getEnv("METRICS_TOKEN", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
