package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAgentMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAgentMetrics(reg)
	m.ObserveLLMCall("gemini-2.5-flash", "ok", 1200*time.Millisecond, 100, 40)
	m.ObserveDispatch("cardiology.ecg", "ok", 2*time.Second)
	m.ObserveClassifierPath("regex")
	m.ObserveClassifierPath("regex")
	m.ObserveRateLimitTrip()
	m.ObserveRateLimitRejection()
	m.ObserveOrchestration("debate", "turn_cap")
	m.ObserveExtraction("completed")

	if got := testutil.ToFloat64(m.classifierPath.WithLabelValues("regex")); got != 2 {
		t.Fatalf("expected 2 regex decisions, got %v", got)
	}
	if got := testutil.ToFloat64(m.llmTokens.WithLabelValues("gemini-2.5-flash", "input")); got != 100 {
		t.Fatalf("expected 100 input tokens, got %v", got)
	}
	if got := testutil.ToFloat64(m.rateLimitTrips); got != 1 {
		t.Fatalf("expected one trip, got %v", got)
	}
	if got := testutil.ToFloat64(m.extractions.WithLabelValues("completed")); got != 1 {
		t.Fatalf("expected one completed extraction, got %v", got)
	}
}

func TestAgentMetricsNilSafe(t *testing.T) {
	var m *AgentMetrics
	m.ObserveLLMCall("model", "error", time.Second, 0, 0)
	m.ObserveDispatch("general", "ok", time.Second)
	m.ObserveClassifierPath("model")
	m.ObserveRateLimitTrip()
	m.ObserveRateLimitRejection()
	m.ObserveOrchestration("board_review", "consensus")
	m.ObserveExtraction("failed")
}
