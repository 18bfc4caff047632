// Package ratelimit holds the provider backoff gate shared by every model
// call site in the process.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// DefaultWindow is how long new calls are refused after a provider 429.
const DefaultWindow = 60 * time.Second

// LimitedMessage is the fixed user facing text for a refused call.
const LimitedMessage = "The AI service is temporarily rate limited. Please wait a minute and try again."

// LimitedError is returned while the backoff window is open and when a call
// trips it. Cause is nil for calls refused without reaching the provider.
type LimitedError struct {
	RetryAfter time.Time
	Cause      error
}

func (e *LimitedError) Error() string { return LimitedMessage }

func (e *LimitedError) Unwrap() error { return e.Cause }

// Observer receives gate events.
type Observer interface {
	ObserveRateLimitTrip()
	ObserveRateLimitRejection()
}

// Status is a snapshot of the gate.
type Status struct {
	Limited    bool      `json:"limited"`
	RetryAfter time.Time `json:"retryAfter,omitempty"`
}

// Gate refuses calls for a fixed window after any call fails with a
// provider rate limit. One gate covers all call sites; concurrent updates
// are last writer wins.
type Gate struct {
	mu         sync.Mutex
	limited    bool
	retryAfter time.Time

	window   time.Duration
	now      func() time.Time
	observer Observer
	logger   *logging.Logger
}

type Option func(*Gate)

// WithWindow overrides the backoff window.
func WithWindow(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *Gate) { g.observer = o }
}

func WithLogger(logger *logging.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func New(opts ...Option) *Gate {
	g := &Gate{
		window: DefaultWindow,
		now:    time.Now,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do runs fn unless the backoff window is open.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if llm.IsRateLimited(err) {
		retryAfter := g.trip()
		g.logger.Warn("provider rate limit hit, backing off", "retry_after", retryAfter, "error", err)
		return &LimitedError{RetryAfter: retryAfter, Cause: err}
	}
	return err
}

// Call runs fn through g and returns its value.
func Call[T any](ctx context.Context, g *Gate, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (g *Gate) admit() error {
	g.mu.Lock()
	now := g.now()
	if g.limited && now.Before(g.retryAfter) {
		retryAfter := g.retryAfter
		g.mu.Unlock()
		if g.observer != nil {
			g.observer.ObserveRateLimitRejection()
		}
		return &LimitedError{RetryAfter: retryAfter}
	}
	g.limited = false
	g.mu.Unlock()
	return nil
}

func (g *Gate) trip() time.Time {
	g.mu.Lock()
	g.limited = true
	g.retryAfter = g.now().Add(g.window)
	retryAfter := g.retryAfter
	g.mu.Unlock()
	if g.observer != nil {
		g.observer.ObserveRateLimitTrip()
	}
	return retryAfter
}

// Status reports whether new calls are currently refused.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.limited && g.now().Before(g.retryAfter) {
		return Status{Limited: true, RetryAfter: g.retryAfter}
	}
	return Status{}
}

// Client wraps an llm.Client so every completion passes through the gate.
type Client struct {
	gate *Gate
	next llm.Client
}

func NewClient(gate *Gate, next llm.Client) *Client {
	if gate == nil || next == nil {
		panic("ratelimit: gate and client are required")
	}
	return &Client{gate: gate, next: next}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return Call(ctx, c.gate, func(ctx context.Context) (llm.Response, error) {
		return c.next.Complete(ctx, req)
	})
}
