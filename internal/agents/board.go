package agents

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
)

// Orchestration status values.
const (
	statusInProgress = "in_progress"
	statusComplete   = "complete"
	statusStopped    = "stopped"
)

type orchestrationObserver interface {
	ObserveOrchestration(kind, outcome string)
}

// boardGenerator produces the three kinds of board review output.
type boardGenerator interface {
	SelectSpecialties(ctx context.Context, req Request, limit int) ([]string, error)
	SpecialistOpinion(ctx context.Context, req Request, specialty string) (chat.SpecialistReport, error)
	Consensus(ctx context.Context, req Request, reports []chat.SpecialistReport) (boardConsensus, error)
}

type boardConsensus struct {
	Consensus   string   `json:"consensus"`
	ActionItems []string `json:"actionItems"`
}

// boardReview runs specialists one after another, publishing the partial
// review after each opinion, then asks for a single consensus.
type boardReview struct {
	gen            boardGenerator
	pacing         time.Duration
	maxSpecialties int
	sleep          func(ctx context.Context, d time.Duration) error
	observer       orchestrationObserver
}

func (b *boardReview) run(ctx context.Context, req Request) (chat.Message, error) {
	specialties, err := b.gen.SelectSpecialties(ctx, req, b.maxSpecialties)
	if err != nil {
		return chat.Message{}, err
	}
	specialties = normalizeSpecialties(specialties, b.maxSpecialties)
	if len(specialties) == 0 {
		return chat.Message{}, errors.New("agents: board review selected no specialties")
	}

	review := &chat.MultiSpecialistReview{Specialties: specialties, Status: statusInProgress}
	msg := chat.NewAIMessage(req.Patient.ID, review)
	msg.IsLive = true
	b.publish(req, msg, review)

	for i, specialty := range specialties {
		if req.stopped() {
			return b.finishStopped(req, msg, review), nil
		}
		if i > 0 {
			if err := b.sleep(ctx, b.pacing); err != nil {
				return chat.Message{}, err
			}
		}
		report, err := b.gen.SpecialistOpinion(ctx, req, specialty)
		if err != nil {
			b.observe("error")
			return chat.Message{}, err
		}
		if report.Specialty == "" {
			report.Specialty = specialty
		}
		review.SpecialistReports = append(review.SpecialistReports, report)
		b.publish(req, msg, review)
	}

	if req.stopped() {
		return b.finishStopped(req, msg, review), nil
	}
	consensus, err := b.gen.Consensus(ctx, req, review.SpecialistReports)
	if err != nil {
		b.observe("error")
		return chat.Message{}, err
	}
	review.Consensus = consensus.Consensus
	review.ActionItems = consensus.ActionItems
	review.Status = statusComplete
	msg.IsLive = false
	b.publish(req, msg, review)
	b.observe(statusComplete)
	return withContent(msg, cloneReview(review)), nil
}

func (b *boardReview) finishStopped(req Request, msg chat.Message, review *chat.MultiSpecialistReview) chat.Message {
	review.Status = statusStopped
	review.Stopped = true
	msg.IsLive = false
	b.publish(req, msg, review)
	b.observe("stopped")
	return withContent(msg, cloneReview(review))
}

// publish emits a snapshot so later appends never race with readers.
func (b *boardReview) publish(req Request, msg chat.Message, review *chat.MultiSpecialistReview) {
	if req.Emit != nil {
		req.Emit(withContent(msg, cloneReview(review)))
	}
}

func (b *boardReview) observe(outcome string) {
	if b.observer != nil {
		b.observer.ObserveOrchestration("board_review", outcome)
	}
}

func withContent(msg chat.Message, c chat.Content) chat.Message {
	msg.Content = c
	return msg
}

func cloneReview(r *chat.MultiSpecialistReview) *chat.MultiSpecialistReview {
	out := *r
	out.Specialties = append([]string(nil), r.Specialties...)
	out.SpecialistReports = append([]chat.SpecialistReport(nil), r.SpecialistReports...)
	out.ActionItems = append([]string(nil), r.ActionItems...)
	return &out
}

// normalizeSpecialties trims, dedupes and bounds the panel.
func normalizeSpecialties(in []string, limit int) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// llmBoardGenerator is the model backed board generator.
type llmBoardGenerator struct {
	client llm.Client
}

func (g *llmBoardGenerator) SelectSpecialties(ctx context.Context, req Request, limit int) ([]string, error) {
	out, err := llm.CompleteJSON[struct {
		Specialties []string `json:"specialties"`
	}](ctx, g.client, buildRequest(req, promptParts{
		role:    "the chair of a multidisciplinary medical board",
		task:    "Choose the specialties (at most " + strconv.Itoa(limit) + ") whose input matters most for this patient. Return specialty names only.",
		query:   req.Query,
		reports: selectReports(req.Patient, reportSelector{fallbackAll: true, limit: 8}),
	}), boardSpecialtiesSchema)
	if err != nil {
		return nil, err
	}
	return out.Specialties, nil
}

func (g *llmBoardGenerator) SpecialistOpinion(ctx context.Context, req Request, specialty string) (chat.SpecialistReport, error) {
	out, err := llm.CompleteJSON[chat.SpecialistReport](ctx, g.client, buildRequest(req, promptParts{
		role:    "a " + specialty + " specialist sitting on a medical board",
		task:    "Give your assessment of the case from a " + specialty + " perspective, your main concerns and your recommendations.",
		query:   req.Query,
		reports: selectReports(req.Patient, reportSelector{fallbackAll: true, limit: 8}),
	}), specialistReportSchema)
	if err != nil {
		return chat.SpecialistReport{}, err
	}
	out.Specialty = specialty
	return out, nil
}

func (g *llmBoardGenerator) Consensus(ctx context.Context, req Request, reports []chat.SpecialistReport) (boardConsensus, error) {
	var b strings.Builder
	for _, r := range reports {
		b.WriteString("\n[" + r.Specialty + "] " + r.Assessment)
		for _, rec := range r.Recommendations {
			b.WriteString("\n  - " + rec)
		}
	}
	return llm.CompleteJSON[boardConsensus](ctx, g.client, buildRequest(req, promptParts{
		role:  "the chair of a multidisciplinary medical board",
		task:  "Reconcile the specialist opinions below into one consensus plan and a list of concrete action items." + b.String(),
		query: req.Query,
	}), boardConsensusSchema)
}
