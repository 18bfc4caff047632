// Package profile stores per user preferences: AI personalization settings
// and the user's own model API key.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
)

// Profile is what the session knows about the signed in user.
type Profile struct {
	UserID       string            `json:"userId"`
	DisplayName  string            `json:"displayName,omitempty"`
	GeminiAPIKey string            `json:"geminiApiKey,omitempty"`
	Settings     clinical.Settings `json:"settings"`
}

// HasAPIKey reports whether the user configured a key of their own.
func (p Profile) HasAPIKey() bool { return strings.TrimSpace(p.GeminiAPIKey) != "" }

type Store interface {
	Get(ctx context.Context, userID string) (Profile, error)
	UpdateSettings(ctx context.Context, userID string, settings clinical.Settings) (Profile, error)
	UpdateGeminiAPIKey(ctx context.Context, userID, apiKey string) (Profile, error)
}

func defaultProfile(userID string) Profile {
	return Profile{UserID: userID, Settings: clinical.DefaultSettings()}
}

// RedisStore keeps one JSON blob per user.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("profile: redis client cannot be nil")
	}
	return &RedisStore{redis: client, tracer: otel.Tracer("clinical.internal.profile")}
}

func profileKey(userID string) string { return fmt.Sprintf("profile:%s", userID) }

func (s *RedisStore) Get(ctx context.Context, userID string) (Profile, error) {
	ctx, span := s.tracer.Start(ctx, "profile.get")
	defer span.End()

	data, err := s.redis.Get(ctx, profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return defaultProfile(userID), nil
	}
	if err != nil {
		span.RecordError(err)
		return Profile{}, fmt.Errorf("profile: failed to load profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		span.RecordError(err)
		return Profile{}, fmt.Errorf("profile: failed to decode profile: %w", err)
	}
	p.UserID = userID
	p.Settings = p.Settings.Normalize()
	return p, nil
}

func (s *RedisStore) save(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile: failed to marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, profileKey(p.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("profile: failed to persist profile: %w", err)
	}
	return nil
}

func (s *RedisStore) UpdateSettings(ctx context.Context, userID string, settings clinical.Settings) (Profile, error) {
	if err := settings.Validate(); err != nil {
		return Profile{}, err
	}
	p, err := s.Get(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	p.Settings = settings
	return p, s.save(ctx, p)
}

func (s *RedisStore) UpdateGeminiAPIKey(ctx context.Context, userID, apiKey string) (Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	p.GeminiAPIKey = strings.TrimSpace(apiKey)
	return p, s.save(ctx, p)
}

// MemoryStore is a process local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	return defaultProfile(userID), nil
}

func (s *MemoryStore) UpdateSettings(ctx context.Context, userID string, settings clinical.Settings) (Profile, error) {
	if err := settings.Validate(); err != nil {
		return Profile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = defaultProfile(userID)
	}
	p.Settings = settings
	s.profiles[userID] = p
	return p, nil
}

func (s *MemoryStore) UpdateGeminiAPIKey(ctx context.Context, userID, apiKey string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = defaultProfile(userID)
	}
	p.GeminiAPIKey = strings.TrimSpace(apiKey)
	s.profiles[userID] = p
	return p, nil
}

// MaskKey hides all but the last four characters of a key for display.
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
