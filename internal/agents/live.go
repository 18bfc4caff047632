package agents

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

const liveSummaryUnavailable = "Session saved to the chart. A summary could not be generated."

// ReportSaver persists report metadata to the chart.
type ReportSaver interface {
	AddReportMetadata(ctx context.Context, patientID string, report clinical.Report) error
}

// LiveSession is a finished assistant session to be saved to the chart.
type LiveSession struct {
	Patient    clinical.Patient
	Settings   clinical.Settings
	Transcript string
	Biomarkers map[string]string
}

// LiveSessions saves live sessions as LiveSession reports.
type LiveSessions struct {
	client llm.Client
	saver  ReportSaver
	logger *logging.Logger
	now    func() time.Time
}

func NewLiveSessions(client llm.Client, saver ReportSaver, logger *logging.Logger) *LiveSessions {
	if client == nil || saver == nil {
		panic("agents: live sessions require an llm client and a report saver")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LiveSessions{client: client, saver: saver, logger: logger, now: time.Now}
}

// Save summarizes the transcript and writes the report. A failed summary
// does not prevent the report from being saved.
func (l *LiveSessions) Save(ctx context.Context, s LiveSession) (clinical.Report, chat.Message, error) {
	if strings.TrimSpace(s.Transcript) == "" {
		return clinical.Report{}, chat.Message{}, errors.New("agents: live session transcript is empty")
	}
	now := l.now().UTC()
	report := clinical.Report{
		ID:    uuid.NewString(),
		Type:  clinical.ReportLiveSession,
		Date:  now.Format("2006-01-02"),
		Title: "Live Session - " + now.Format("Jan 2, 2006 15:04"),
		Content: clinical.LiveSessionContent{
			Transcript: s.Transcript,
			Biomarkers: s.Biomarkers,
		},
	}

	summary, err := l.summarize(ctx, s)
	if err != nil {
		l.logger.Warn("live session summary failed", "patient_id", s.Patient.ID, "error", err)
	} else {
		report.AISummary = summary
	}

	if err := l.saver.AddReportMetadata(ctx, s.Patient.ID, report); err != nil {
		return clinical.Report{}, chat.Message{}, err
	}

	text := report.AISummary
	if text == "" {
		text = liveSummaryUnavailable
	}
	msg := chat.NewAIMessage(s.Patient.ID, &chat.LiveSessionSummary{
		ReportID:   report.ID,
		Summary:    text,
		Biomarkers: s.Biomarkers,
	})
	msg.SuggestedAction = chat.ViewReport(report.ID)
	return report, msg, nil
}

func (l *LiveSessions) summarize(ctx context.Context, s LiveSession) (string, error) {
	var b strings.Builder
	b.WriteString("Summarize this live assistant session for the chart in a short clinical note.")
	if len(s.Biomarkers) > 0 {
		keys := make([]string, 0, len(s.Biomarkers))
		for k := range s.Biomarkers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nObserved biomarkers:")
		for _, k := range keys {
			b.WriteString("\n- " + k + ": " + s.Biomarkers[k])
		}
	}
	b.WriteString("\nTranscript:\n" + s.Transcript)
	return llm.CompleteText(ctx, l.client, buildRequest(Request{Patient: s.Patient, Settings: s.Settings}, promptParts{
		role: "a clinical scribe",
		task: b.String(),
	}))
}
