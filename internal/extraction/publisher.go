package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// Publisher records a pending job and places it on the queue.
type Publisher struct {
	queue  Queue
	jobs   JobRecorder
	logger *logging.Logger
}

func NewPublisher(queue Queue, jobs JobRecorder, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("extraction: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, jobs: jobs, logger: logger}
}

// Enqueue schedules extraction for a report. The report ID doubles as the job ID.
func (p *Publisher) Enqueue(ctx context.Context, job Job) (string, error) {
	if strings.TrimSpace(job.ReportID) == "" || strings.TrimSpace(job.PatientID) == "" {
		return "", errors.New("extraction: patient and report IDs are required")
	}
	if strings.TrimSpace(job.Text) == "" {
		return "", errors.New("extraction: report text is empty")
	}
	job.ID = job.ReportID

	if p.jobs != nil {
		record := &JobRecord{
			JobID:     job.ID,
			UserID:    job.UserID,
			PatientID: job.PatientID,
			ReportID:  job.ReportID,
		}
		if err := p.jobs.PutPending(ctx, record); err != nil {
			return "", err
		}
	}

	body, err := encodeJob(job)
	if err != nil {
		return "", err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return "", fmt.Errorf("extraction: failed to enqueue job %s: %w", job.ID, err)
	}
	p.logger.Info("extraction job enqueued", "job_id", job.ID, "patient_id", job.PatientID)
	return job.ID, nil
}
