package llm

import (
	"context"
	"strings"
	"sync"
)

type apiKeyCtxKey struct{}

// WithAPIKey returns a context carrying the calling user's provider key.
func WithAPIKey(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, apiKeyCtxKey{}, strings.TrimSpace(apiKey))
}

// APIKeyFromContext returns the per-user key set by WithAPIKey.
func APIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(apiKeyCtxKey{}).(string)
	return key
}

// ClientFactory builds a provider client for one API key.
type ClientFactory func(ctx context.Context, apiKey string) (Client, error)

// KeyedClient resolves the provider key per request (the user's own key
// first, then the service default) and caches one client per key.
type KeyedClient struct {
	factory    ClientFactory
	defaultKey string

	mu      sync.Mutex
	clients map[string]Client
}

func NewKeyedClient(factory ClientFactory, defaultKey string) *KeyedClient {
	if factory == nil {
		panic("llm: client factory cannot be nil")
	}
	return &KeyedClient{
		factory:    factory,
		defaultKey: strings.TrimSpace(defaultKey),
		clients:    make(map[string]Client),
	}
}

// NewGeminiFactory returns a factory building Gemini clients for modelID.
func NewGeminiFactory(modelID string) ClientFactory {
	return func(ctx context.Context, apiKey string) (Client, error) {
		return NewGeminiClient(ctx, apiKey, modelID)
	}
}

func (c *KeyedClient) Complete(ctx context.Context, req Request) (Response, error) {
	key := APIKeyFromContext(ctx)
	if key == "" {
		key = c.defaultKey
	}
	if key == "" {
		return Response{}, ErrMissingAPIKey
	}
	client, err := c.clientFor(ctx, key)
	if err != nil {
		return Response{}, err
	}
	return client.Complete(ctx, req)
}

func (c *KeyedClient) clientFor(ctx context.Context, key string) (Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[key]; ok {
		return client, nil
	}
	client, err := c.factory(context.WithoutCancel(ctx), key)
	if err != nil {
		return nil, err
	}
	c.clients[key] = client
	return client, nil
}

// Close closes every cached client that supports it.
func (c *KeyedClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, client := range c.clients {
		if closer, ok := client.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		delete(c.clients, key)
	}
	return nil
}
