package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/internal/ratelimit"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

var tracer = otel.Tracer("clinical.internal.agents")

const missingKeyText = "No AI model API key is configured. Open Settings and add your Gemini API key to enable the assistant."

// Request is one clinician query against one patient.
type Request struct {
	UserID   string
	Query    string
	Patient  clinical.Patient
	Settings clinical.Settings
	// Emit receives progressive snapshots of long running messages.
	Emit func(chat.Message)
	// Stop is closed when the user asks to stop; orchestrators check it
	// before each model call.
	Stop <-chan struct{}
}

func (r Request) stopped() bool {
	if r.Stop == nil {
		return false
	}
	select {
	case <-r.Stop:
		return true
	default:
		return false
	}
}

// handlerFunc builds one message. Errors are turned into text by the router.
type handlerFunc func(ctx context.Context, req Request) (chat.Message, error)

// DispatchObserver receives routing and dispatch metrics.
type DispatchObserver interface {
	PathObserver
	ObserveDispatch(agent, status string, elapsed time.Duration)
	ObserveOrchestration(kind, outcome string)
}

// DispatchRecord describes one handled query for the audit trail.
type DispatchRecord struct {
	UserID      string
	PatientID   string
	Query       string
	Agent       string
	Route       Route
	Specialty   Specialty
	Path        string
	Status      string
	MessageType string
	Duration    time.Duration
	Err         error
}

// Auditor persists dispatch records.
type Auditor interface {
	RecordDispatch(ctx context.Context, rec DispatchRecord) error
}

// Router classifies queries and dispatches them to agents.
type Router struct {
	client     llm.Client
	classifier *Classifier
	logger     *logging.Logger
	observer   DispatchObserver
	auditor    Auditor

	fastHandlers      map[Route]handlerFunc
	specialtyHandlers map[Specialty]handlerFunc
	cardiology        map[string]handlerFunc

	board  *boardReview
	debate *clinicalDebate
}

type Option func(*Router)

func WithLogger(logger *logging.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithObserver(o DispatchObserver) Option {
	return func(r *Router) { r.observer = o }
}

func WithAuditor(a Auditor) Option {
	return func(r *Router) { r.auditor = a }
}

// WithBoardPacing sets the delay between specialist calls.
func WithBoardPacing(d time.Duration) Option {
	return func(r *Router) { r.board.pacing = d }
}

// WithBoardMaxSpecialties bounds the specialist panel size.
func WithBoardMaxSpecialties(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.board.maxSpecialties = n
		}
	}
}

// WithDebatePacing sets the delay between debate turns.
func WithDebatePacing(d time.Duration) Option {
	return func(r *Router) { r.debate.pacing = d }
}

// WithDebateMaxTurns sets the hard turn cap.
func WithDebateMaxTurns(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.debate.maxTurns = n
		}
	}
}

// WithSleep replaces the pacing sleep used by both orchestrators.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Router) {
		if sleep != nil {
			r.board.sleep = sleep
			r.debate.sleep = sleep
		}
	}
}

func withBoardGenerator(g boardGenerator) Option {
	return func(r *Router) { r.board.gen = g }
}

func withDebateGenerator(g debateGenerator) Option {
	return func(r *Router) { r.debate.gen = g }
}

// NewRouter builds the dispatch tables. client should already pass through
// the rate limit gate.
func NewRouter(client llm.Client, opts ...Option) *Router {
	if client == nil {
		panic("agents: llm client cannot be nil")
	}
	r := &Router{
		client: client,
		logger: logging.Default(),
		board: &boardReview{
			gen:            &llmBoardGenerator{client: client},
			pacing:         800 * time.Millisecond,
			maxSpecialties: 6,
			sleep:          sleepContext,
		},
		debate: &clinicalDebate{
			gen:      &llmDebateGenerator{client: client},
			pacing:   1500 * time.Millisecond,
			maxTurns: 12,
			sleep:    sleepContext,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.classifier = NewClassifier(client, r.logger, r.observer)
	r.board.observer = r.observer
	r.debate.observer = r.observer
	r.cardiology = r.buildCardiologyHandlers()
	r.fastHandlers = r.buildFastHandlers()
	r.specialtyHandlers = r.buildSpecialtyHandlers()
	return r
}

// Classifier exposes the router's classifier.
func (r *Router) Classifier() *Classifier { return r.classifier }

// Handle routes a query and always returns a displayable message.
func (r *Router) Handle(ctx context.Context, req Request) chat.Message {
	ctx, span := tracer.Start(ctx, "agents.handle")
	defer span.End()

	start := time.Now()
	decision := r.classifier.Route(ctx, req.Query)
	handler, agent := r.resolve(decision, req.Query)
	span.SetAttributes(
		attribute.String("agent.route", string(decision.Route)),
		attribute.String("agent.name", agent),
		attribute.String("agent.path", decision.Path),
	)

	tracker := &emitTracker{next: req.Emit}
	req.Emit = tracker.emit

	msg, err := r.invoke(ctx, handler, req)
	status := "ok"
	if err != nil {
		span.RecordError(err)
		status = failureStatus(err)
		msg = r.failureMessage(req.Patient.ID, agent, err)
		if id := tracker.lastID(); id != "" {
			msg.ID = id
		}
		r.logger.Error("agent failed", "agent", agent, "patient_id", req.Patient.ID, "status", status, "error", err)
	}
	elapsed := time.Since(start)
	if r.observer != nil {
		r.observer.ObserveDispatch(agent, status, elapsed)
	}
	if r.auditor != nil {
		rec := DispatchRecord{
			UserID:      req.UserID,
			PatientID:   req.Patient.ID,
			Query:       req.Query,
			Agent:       agent,
			Route:       decision.Route,
			Specialty:   decision.Specialty,
			Path:        decision.Path,
			Status:      status,
			MessageType: msg.Type(),
			Duration:    elapsed,
			Err:         err,
		}
		if auditErr := r.auditor.RecordDispatch(ctx, rec); auditErr != nil {
			r.logger.Warn("failed to record agent audit event", "error", auditErr)
		}
	}
	return msg
}

// invoke runs a handler and converts panics into errors.
func (r *Router) invoke(ctx context.Context, handler handlerFunc, req Request) (msg chat.Message, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("agent panicked", "panic", rec)
			err = errors.New("agents: handler panicked")
		}
	}()
	msg, err = handler(ctx, req)
	if err == nil && msg.Content == nil {
		err = errors.New("agents: handler returned no content")
	}
	return msg, err
}

// resolve maps a decision to its handler and a metric friendly agent name.
func (r *Router) resolve(d Decision, query string) (handlerFunc, string) {
	if d.Route != RouteSpecialty {
		return r.fastHandlers[d.Route], string(d.Route)
	}
	if d.Specialty == Cardiology {
		sub := matchCardiology(query)
		return r.cardiology[sub], "cardiology." + sub
	}
	if h, ok := r.specialtyHandlers[d.Specialty]; ok {
		return h, strings.ToLower(string(d.Specialty))
	}
	return r.universalSpecialist(d.Specialty), "universal"
}

func (r *Router) failureMessage(patientID, agent string, err error) chat.Message {
	var limited *ratelimit.LimitedError
	switch {
	case errors.As(err, &limited):
		return chat.TextMessage(patientID, "⚠️ "+ratelimit.LimitedMessage)
	case errors.Is(err, llm.ErrMissingAPIKey):
		return chat.TextMessage(patientID, missingKeyText)
	default:
		return chat.TextMessage(patientID, "Sorry, an error occurred while running the "+agentLabel(agent)+" agent. Please try again.")
	}
}

func failureStatus(err error) string {
	var (
		limited *ratelimit.LimitedError
		parse   *llm.ParseError
		invalid *llm.ValidationError
	)
	switch {
	case errors.As(err, &limited):
		return "rate_limited"
	case errors.Is(err, llm.ErrMissingAPIKey):
		return "missing_api_key"
	case errors.As(err, &parse):
		return "parse_error"
	case errors.As(err, &invalid):
		return "validation_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func agentLabel(agent string) string {
	return strings.NewReplacer("_", " ", ".", " ").Replace(agent)
}

// emitTracker forwards progressive snapshots and remembers the message id
// so a failure can replace the partial message.
type emitTracker struct {
	mu   sync.Mutex
	next func(chat.Message)
	id   string
}

func (t *emitTracker) emit(m chat.Message) {
	t.mu.Lock()
	t.id = m.ID
	t.mu.Unlock()
	if t.next != nil {
		t.next(m)
	}
}

func (t *emitTracker) lastID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
