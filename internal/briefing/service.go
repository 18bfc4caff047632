package briefing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

const (
	dateLayout       = "2006-01-02"
	noPatientsText   = "No patients are on your list today."
	briefingSystem   = "You are a clinical chief resident preparing the morning briefing. Prioritise patients by acuity."
	maxAlertsPerLine = 5
)

var briefingSchema = llm.Object(map[string]*llm.Schema{
	"overview": llm.String("Two sentence overview of the day"),
	"items": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"patientId": llm.String("Patient id exactly as given"),
		"priority":  llm.Enum("Acuity", "high", "medium", "low"),
		"summary":   llm.String("One or two sentences on what needs attention"),
	})),
})

type archiver interface {
	Save(ctx context.Context, userID, date string, msg chat.Message) error
}

// Service produces the once-a-day briefing across a clinician's patients.
type Service struct {
	client  llm.Client
	cache   Cache
	archive archiver
	logger  *logging.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithArchive(a *Archive) Option {
	return func(s *Service) {
		if a != nil {
			s.archive = a
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(client llm.Client, cache Cache, opts ...Option) *Service {
	if client == nil {
		panic("briefing: llm client cannot be nil")
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	s := &Service{client: client, cache: cache, logger: logging.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns today's cached briefing or generates one.
func (s *Service) Get(ctx context.Context, userID string, patients []clinical.Patient, settings clinical.Settings) (chat.Message, error) {
	date := s.now().UTC().Format(dateLayout)

	cached, ok, err := s.cache.Load(ctx, userID, date)
	if err != nil {
		s.logger.Warn("briefing cache read failed", "user_id", userID, "error", err)
	}
	if ok {
		return cached, nil
	}

	content := &chat.DailyBriefing{Date: date, Items: []chat.BriefingItem{}}
	if len(patients) == 0 {
		content.Overview = noPatientsText
	} else {
		if err := s.generate(ctx, content, patients, settings); err != nil {
			return chat.Message{}, err
		}
	}

	msg := chat.NewAIMessage("", content)
	if err := s.cache.Save(ctx, userID, date, msg); err != nil {
		s.logger.Warn("briefing cache write failed", "user_id", userID, "error", err)
	}
	if s.archive != nil {
		if err := s.archive.Save(ctx, userID, date, msg); err != nil {
			s.logger.Warn("briefing archive failed", "user_id", userID, "error", err)
		}
	}
	return msg, nil
}

type briefingReply struct {
	Overview string `json:"overview"`
	Items    []struct {
		PatientID string `json:"patientId"`
		Priority  string `json:"priority"`
		Summary   string `json:"summary"`
	} `json:"items"`
}

func (s *Service) generate(ctx context.Context, content *chat.DailyBriefing, patients []clinical.Patient, settings clinical.Settings) error {
	names := make(map[string]string, len(patients))
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\nPatients:\n", content.Date)
	for _, p := range patients {
		names[p.ID] = p.Name
		alerts := p.CriticalAlerts
		if len(alerts) > maxAlertsPerLine {
			alerts = alerts[:maxAlertsPerLine]
		}
		open := 0
		for _, task := range p.Tasks {
			if !task.Completed {
				open++
			}
		}
		fmt.Fprintf(&b, "- id=%s name=%s age=%d condition=%q alerts=%q open_tasks=%d\n",
			p.ID, p.Name, p.Age, p.CurrentStatus.Condition, strings.Join(alerts, "; "), open)
	}

	req := llm.UserPrompt(briefingSystem+" "+settings.Instruction(), b.String())
	reply, err := llm.CompleteJSON[briefingReply](ctx, s.client, req, briefingSchema)
	if err != nil {
		return err
	}

	content.Overview = strings.TrimSpace(reply.Overview)
	for _, item := range reply.Items {
		name, ok := names[item.PatientID]
		if !ok {
			continue
		}
		content.Items = append(content.Items, chat.BriefingItem{
			PatientID:   item.PatientID,
			PatientName: name,
			Priority:    item.Priority,
			Summary:     item.Summary,
		})
	}
	return nil
}
