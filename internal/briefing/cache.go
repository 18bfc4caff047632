package briefing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
)

const cacheTTL = 36 * time.Hour

// Cache holds the briefing generated for a user on a given day.
type Cache interface {
	Load(ctx context.Context, userID, date string) (chat.Message, bool, error)
	Save(ctx context.Context, userID, date string, msg chat.Message) error
}

type RedisCache struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewRedisCache(client *redis.Client) *RedisCache {
	if client == nil {
		panic("briefing: redis client cannot be nil")
	}
	return &RedisCache{redis: client, tracer: otel.Tracer("clinical.internal.briefing.cache")}
}

func cacheKey(userID, date string) string {
	return fmt.Sprintf("briefing:%s:%s", userID, date)
}

func (c *RedisCache) Load(ctx context.Context, userID, date string) (chat.Message, bool, error) {
	ctx, span := c.tracer.Start(ctx, "briefing.load")
	defer span.End()

	data, err := c.redis.Get(ctx, cacheKey(userID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return chat.Message{}, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return chat.Message{}, false, fmt.Errorf("briefing: failed to load cache: %w", err)
	}
	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return chat.Message{}, false, fmt.Errorf("briefing: failed to decode cache: %w", err)
	}
	return msg, true, nil
}

func (c *RedisCache) Save(ctx context.Context, userID, date string, msg chat.Message) error {
	ctx, span := c.tracer.Start(ctx, "briefing.save")
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("briefing: failed to encode cache: %w", err)
	}
	if err := c.redis.Set(ctx, cacheKey(userID, date), data, cacheTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("briefing: failed to save cache: %w", err)
	}
	return nil
}

// MemoryCache is used when Redis is not configured. Entries never expire.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]chat.Message
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]chat.Message)}
}

func (c *MemoryCache) Load(_ context.Context, userID, date string) (chat.Message, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msg, ok := c.entries[cacheKey(userID, date)]
	return msg, ok, nil
}

func (c *MemoryCache) Save(_ context.Context, userID, date string, msg chat.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(userID, date)] = msg
	return nil
}
