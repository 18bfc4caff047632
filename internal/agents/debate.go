package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
)

type debateSetup struct {
	Topic        string                   `json:"topic"`
	Participants []chat.DebateParticipant `json:"participants"`
}

type debateTurn struct {
	Speaker          string `json:"speaker"`
	Role             string `json:"role"`
	Statement        string `json:"statement"`
	ConsensusReached bool   `json:"consensusReached"`
	Consensus        string `json:"consensus"`
}

type debateGenerator interface {
	Setup(ctx context.Context, req Request) (debateSetup, error)
	NextTurn(ctx context.Context, req Request, debate *chat.ClinicalDebate) (debateTurn, error)
}

// clinicalDebate runs turns until a participant reports consensus or the
// turn cap is hit.
type clinicalDebate struct {
	gen      debateGenerator
	pacing   time.Duration
	maxTurns int
	sleep    func(ctx context.Context, d time.Duration) error
	observer orchestrationObserver
}

func noConsensusText(turns int) string {
	return fmt.Sprintf("The debate concluded without consensus after %d turns.", turns)
}

func (d *clinicalDebate) run(ctx context.Context, req Request) (chat.Message, error) {
	setup, err := d.gen.Setup(ctx, req)
	if err != nil {
		return chat.Message{}, err
	}
	if len(setup.Participants) < 2 {
		return chat.Message{}, errors.New("agents: debate needs at least two participants")
	}

	debate := &chat.ClinicalDebate{
		Topic:        setup.Topic,
		Participants: setup.Participants,
		Status:       statusInProgress,
	}
	msg := chat.NewAIMessage(req.Patient.ID, debate)
	msg.IsLive = true
	d.publish(req, msg, debate)

	for turn := 0; turn < d.maxTurns; turn++ {
		if req.stopped() {
			return d.finishStopped(req, msg, debate), nil
		}
		if turn > 0 {
			if err := d.sleep(ctx, d.pacing); err != nil {
				return chat.Message{}, err
			}
		}
		next, err := d.gen.NextTurn(ctx, req, cloneDebate(debate))
		if err != nil {
			d.observe("error")
			return chat.Message{}, err
		}
		debate.Turns = append(debate.Turns, chat.DebateTurn{
			Speaker:   next.Speaker,
			Role:      next.Role,
			Statement: next.Statement,
		})
		if next.ConsensusReached {
			debate.ConsensusReached = true
			debate.Consensus = next.Consensus
			break
		}
		d.publish(req, msg, debate)
	}

	outcome := "consensus"
	if !debate.ConsensusReached {
		debate.Consensus = noConsensusText(d.maxTurns)
		outcome = "turn_limit"
	}
	debate.Status = statusComplete
	msg.IsLive = false
	d.publish(req, msg, debate)
	d.observe(outcome)
	return withContent(msg, cloneDebate(debate)), nil
}

func (d *clinicalDebate) finishStopped(req Request, msg chat.Message, debate *chat.ClinicalDebate) chat.Message {
	debate.Status = statusStopped
	debate.Stopped = true
	msg.IsLive = false
	d.publish(req, msg, debate)
	d.observe("stopped")
	return withContent(msg, cloneDebate(debate))
}

func (d *clinicalDebate) publish(req Request, msg chat.Message, debate *chat.ClinicalDebate) {
	if req.Emit != nil {
		req.Emit(withContent(msg, cloneDebate(debate)))
	}
}

func (d *clinicalDebate) observe(outcome string) {
	if d.observer != nil {
		d.observer.ObserveOrchestration("clinical_debate", outcome)
	}
}

func cloneDebate(d *chat.ClinicalDebate) *chat.ClinicalDebate {
	out := *d
	out.Participants = append([]chat.DebateParticipant(nil), d.Participants...)
	out.Turns = append([]chat.DebateTurn(nil), d.Turns...)
	return &out
}

type llmDebateGenerator struct {
	client llm.Client
}

func (g *llmDebateGenerator) Setup(ctx context.Context, req Request) (debateSetup, error) {
	return llm.CompleteJSON[debateSetup](ctx, g.client, buildRequest(req, promptParts{
		role:    "a moderator of clinical case conferences",
		task:    "Frame the debate topic raised by the question and pick two to four specialist participants with opposing stances.",
		query:   req.Query,
		reports: selectReports(req.Patient, reportSelector{fallbackAll: true, limit: 6}),
	}), debateSetupSchema)
}

func (g *llmDebateGenerator) NextTurn(ctx context.Context, req Request, debate *chat.ClinicalDebate) (debateTurn, error) {
	var b strings.Builder
	b.WriteString("Topic: " + debate.Topic + "\nParticipants:")
	for _, p := range debate.Participants {
		b.WriteString("\n- " + p.Name + " (" + p.Specialty + "): " + p.Stance)
	}
	b.WriteString("\nTranscript so far:")
	if len(debate.Turns) == 0 {
		b.WriteString(" (none)")
	}
	for _, t := range debate.Turns {
		b.WriteString("\n" + t.Speaker + ": " + t.Statement)
	}
	b.WriteString("\nWrite the next turn as the participant who should speak next. Set consensusReached only when every participant agrees, and state the agreed position.")
	return llm.CompleteJSON[debateTurn](ctx, g.client, buildRequest(req, promptParts{
		role: "the next speaker in a clinical debate",
		task: b.String(),
	}), debateTurnSchema)
}
