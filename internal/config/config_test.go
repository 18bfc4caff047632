package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("RATE_LIMIT_BACKOFF", "")
	t.Setenv("DEBATE_MAX_TURNS", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.RateLimitBackoff != 60*time.Second {
		t.Fatalf("expected 60s backoff, got %s", cfg.RateLimitBackoff)
	}
	if cfg.BoardReviewPacing != 800*time.Millisecond {
		t.Fatalf("expected 800ms board pacing, got %s", cfg.BoardReviewPacing)
	}
	if cfg.DebatePacing != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s debate pacing, got %s", cfg.DebatePacing)
	}
	if cfg.DebateMaxTurns != 12 {
		t.Fatalf("expected 12 debate turns, got %d", cfg.DebateMaxTurns)
	}
	if cfg.LLMProvider != "auto" {
		t.Fatalf("expected auto provider, got %s", cfg.LLMProvider)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("LLM_PROVIDER", " Bedrock ")
	t.Setenv("RATE_LIMIT_BACKOFF", "90s")
	t.Setenv("DEBATE_MAX_TURNS", "6")
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("HTTP_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected normalized provider, got %q", cfg.LLMProvider)
	}
	if cfg.RateLimitBackoff != 90*time.Second {
		t.Fatalf("expected backoff override, got %s", cfg.RateLimitBackoff)
	}
	if cfg.DebateMaxTurns != 6 {
		t.Fatalf("expected debate turns override, got %d", cfg.DebateMaxTurns)
	}
	if !cfg.AuthDisabled {
		t.Fatalf("expected auth disabled")
	}
	if cfg.HTTPRateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.HTTPRateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected two cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("BOARD_REVIEW_PACING", "soon")
	t.Setenv("REDIS_TLS", "maybe")
	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Fatalf("expected default worker count, got %d", cfg.WorkerCount)
	}
	if cfg.BoardReviewPacing != 800*time.Millisecond {
		t.Fatalf("expected default pacing, got %s", cfg.BoardReviewPacing)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis tls default false")
	}
}
