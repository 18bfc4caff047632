package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/internal/observability/metrics"
	"github.com/wolfman30/clinical-agent-platform/internal/ratelimit"
)

func TestOperationsOnePerPatient(t *testing.T) {
	ops := NewOperations()

	op, err := ops.Begin("u1", "p1", "medical board")
	require.NoError(t, err)

	_, err = ops.Begin("u1", "p1", "again")
	assert.ErrorIs(t, err, ErrOperationInProgress)

	other, err := ops.Begin("u1", "p2", "labs")
	require.NoError(t, err)

	list := ops.List("u1")
	require.Len(t, list, 2)
	assert.Equal(t, StatusRunning, list[0].Status)
	assert.Empty(t, ops.List("u2"))

	ops.Finish(op)
	ops.Finish(other)
	assert.Empty(t, ops.List("u1"))

	_, err = ops.Begin("u1", "p1", "retry")
	assert.NoError(t, err)
}

func TestOperationsStopClosesSignal(t *testing.T) {
	ops := NewOperations()
	op, err := ops.Begin("u1", "p1", "debate")
	require.NoError(t, err)

	snap, err := ops.Stop("u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, snap.Status)
	assert.Equal(t, op.ID(), snap.ID)

	select {
	case <-op.Stopped():
	default:
		t.Fatal("expected stop channel to be closed")
	}

	// Second stop is harmless.
	_, err = ops.Stop("u1", "p1")
	require.NoError(t, err)

	ops.Finish(op)
	_, err = ops.Stop("u1", "p1")
	assert.ErrorIs(t, err, ErrNoActiveOperation)
}

func TestQuotaSummaryReadsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAgentMetrics(reg)
	m.ObserveLLMCall("gemini", "ok", 2*time.Second, 10, 5)
	m.ObserveLLMCall("gemini", "ok", 1*time.Second, 10, 5)
	m.ObserveLLMCall("gemini", "rate_limited", 3*time.Second, 0, 0)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	gate := ratelimit.New(ratelimit.WithObserver(m), ratelimit.WithClock(func() time.Time { return now }))
	err := gate.Do(context.Background(), func(context.Context) error {
		return &llm.ProviderError{Provider: "gemini", Kind: llm.KindRateLimited, StatusCode: 429, Err: errors.New("quota")}
	})
	require.Error(t, err)

	summary := NewQuota(reg, gate).Summary()
	assert.Equal(t, int64(3), summary.ModelCalls)
	assert.Equal(t, int64(1), summary.Failures)
	assert.InDelta(t, 2000, summary.AvgLatencyMs, 0.001)
	assert.Equal(t, int64(1), summary.RateLimitTrips)
	assert.True(t, summary.Limited)
	assert.Equal(t, now.Add(ratelimit.DefaultWindow), summary.RetryAfter)
}

func TestQuotaSummaryWithoutGate(t *testing.T) {
	summary := NewQuota(prometheus.NewRegistry(), nil).Summary()
	assert.Zero(t, summary.ModelCalls)
	assert.False(t, summary.Limited)
}
