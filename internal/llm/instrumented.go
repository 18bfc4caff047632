package llm

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("clinical.internal.llm")

// CallObserver receives one observation per completed provider call.
type CallObserver interface {
	ObserveLLMCall(model, status string, elapsed time.Duration, inputTokens, outputTokens int32)
}

// InstrumentedClient records latency, token usage and a trace span for
// every call through the wrapped client.
type InstrumentedClient struct {
	next     Client
	model    string
	observer CallObserver
}

func NewInstrumentedClient(next Client, model string, observer CallObserver) *InstrumentedClient {
	if next == nil {
		panic("llm: instrumented client requires a client")
	}
	return &InstrumentedClient{next: next, model: model, observer: observer}
}

func (c *InstrumentedClient) Complete(ctx context.Context, req Request) (Response, error) {
	ctx, span := tracer.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Bool("llm.structured", req.ResponseSchema != nil),
	)

	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	status := callStatus(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	if c.observer != nil {
		c.observer.ObserveLLMCall(c.model, status, time.Since(start), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	return resp, err
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingAPIKey):
		return "missing_key"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return string(KindOf(err))
	}
}
