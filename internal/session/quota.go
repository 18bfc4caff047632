package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wolfman30/clinical-agent-platform/internal/ratelimit"
)

const (
	llmLatencyFamily   = "clinical_llm_latency_seconds"
	rateLimitTrips     = "clinical_ratelimit_trips_total"
	rateLimitRejection = "clinical_ratelimit_rejections_total"
)

// QuotaSummary reports model usage since process start and the gate state.
type QuotaSummary struct {
	ModelCalls     int64     `json:"modelCalls"`
	Failures       int64     `json:"failures"`
	AvgLatencyMs   float64   `json:"avgLatencyMs"`
	RateLimitTrips int64     `json:"rateLimitTrips"`
	Rejected       int64     `json:"rejected"`
	Limited        bool      `json:"limited"`
	RetryAfter     time.Time `json:"retryAfter,omitempty"`
}

type gateStatus interface {
	Status() ratelimit.Status
}

// Quota reads counters back from a prometheus gatherer.
type Quota struct {
	gatherer prometheus.Gatherer
	gate     gateStatus
}

func NewQuota(gatherer prometheus.Gatherer, gate *ratelimit.Gate) *Quota {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	q := &Quota{gatherer: gatherer}
	if gate != nil {
		q.gate = gate
	}
	return q
}

func (q *Quota) Summary() QuotaSummary {
	var summary QuotaSummary
	if q.gate != nil {
		status := q.gate.Status()
		summary.Limited = status.Limited
		summary.RetryAfter = status.RetryAfter
	}

	mfs, err := q.gatherer.Gather()
	if err != nil {
		return summary
	}

	var latencySum float64
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case llmLatencyFamily:
			for _, metric := range mf.Metric {
				h := metric.GetHistogram()
				if h == nil {
					continue
				}
				count := int64(h.GetSampleCount())
				summary.ModelCalls += count
				latencySum += h.GetSampleSum()
				if !hasLabel(metric, "status", "ok") {
					summary.Failures += count
				}
			}
		case rateLimitTrips:
			summary.RateLimitTrips += counterTotal(mf)
		case rateLimitRejection:
			summary.Rejected += counterTotal(mf)
		}
	}
	if summary.ModelCalls > 0 {
		summary.AvgLatencyMs = latencySum * 1000 / float64(summary.ModelCalls)
	}
	return summary
}

func counterTotal(mf *dto.MetricFamily) int64 {
	var total float64
	for _, metric := range mf.Metric {
		if c := metric.GetCounter(); c != nil {
			total += c.GetValue()
		}
	}
	return int64(total)
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, lp := range metric.Label {
		if lp == nil {
			continue
		}
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
