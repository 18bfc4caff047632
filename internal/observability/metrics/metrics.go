package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clinical"

// AgentMetrics exposes counters/histograms for the agent routing layer.
type AgentMetrics struct {
	llmLatency     *prometheus.HistogramVec
	llmTokens      *prometheus.CounterVec
	dispatchTotal  *prometheus.CounterVec
	dispatchTime   *prometheus.HistogramVec
	classifierPath *prometheus.CounterVec
	rateLimitTrips prometheus.Counter
	rateLimitDrops prometheus.Counter
	orchestrations *prometheus.CounterVec
	extractions    *prometheus.CounterVec
}

func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	m := &AgentMetrics{
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Latency of model completions",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 30},
		}, []string{"model", "status"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens used by the model",
		}, []string{"model", "type"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agents",
			Name:      "dispatch_total",
			Help:      "Agent dispatches by agent and outcome",
		}, []string{"agent", "status"}),
		dispatchTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agents",
			Name:      "dispatch_seconds",
			Help:      "End to end agent handling time",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"agent"}),
		classifierPath: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agents",
			Name:      "classifier_path_total",
			Help:      "Routing decisions by classifier path",
		}, []string{"path"}),
		rateLimitTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "trips_total",
			Help:      "Provider rate limit responses that opened the backoff window",
		}),
		rateLimitDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Calls rejected without reaching the provider during backoff",
		}),
		orchestrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agents",
			Name:      "orchestration_total",
			Help:      "Board review and debate runs by kind and outcome",
		}, []string{"kind", "outcome"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "jobs_total",
			Help:      "Report extraction jobs by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.llmLatency,
		m.llmTokens,
		m.dispatchTotal,
		m.dispatchTime,
		m.classifierPath,
		m.rateLimitTrips,
		m.rateLimitDrops,
		m.orchestrations,
		m.extractions,
	)
	return m
}

// ObserveLLMCall records one provider round trip.
func (m *AgentMetrics) ObserveLLMCall(model, status string, elapsed time.Duration, inputTokens, outputTokens int32) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(model, status).Observe(elapsed.Seconds())
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

func (m *AgentMetrics) ObserveDispatch(agent, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(agent, status).Inc()
	m.dispatchTime.WithLabelValues(agent).Observe(elapsed.Seconds())
}

func (m *AgentMetrics) ObserveClassifierPath(path string) {
	if m == nil {
		return
	}
	m.classifierPath.WithLabelValues(path).Inc()
}

func (m *AgentMetrics) ObserveRateLimitTrip() {
	if m == nil {
		return
	}
	m.rateLimitTrips.Inc()
}

func (m *AgentMetrics) ObserveRateLimitRejection() {
	if m == nil {
		return
	}
	m.rateLimitDrops.Inc()
}

func (m *AgentMetrics) ObserveOrchestration(kind, outcome string) {
	if m == nil {
		return
	}
	m.orchestrations.WithLabelValues(kind, outcome).Inc()
}

func (m *AgentMetrics) ObserveExtraction(status string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(status).Inc()
}
