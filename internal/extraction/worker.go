package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/internal/ratelimit"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// Saver persists extraction output. ehr.Repository satisfies it.
type Saver interface {
	SaveExtractedData(ctx context.Context, patientID, reportID string, data clinical.ExtractedData) error
}

type Observer interface {
	ObserveExtraction(status string)
}

// Worker consumes extraction jobs from the queue.
type Worker struct {
	extractor *Extractor
	saver     Saver
	queue     Queue
	jobs      JobUpdater
	observer  Observer
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	observer         Observer
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the SQS long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

func WithObserver(observer Observer) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.observer = observer
	}
}

func NewWorker(extractor *Extractor, saver Saver, queue Queue, jobs JobUpdater, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if extractor == nil {
		panic("extraction: extractor cannot be nil")
	}
	if saver == nil {
		panic("extraction: saver cannot be nil")
	}
	if queue == nil {
		panic("extraction: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Worker{
		extractor: extractor,
		saver:     saver,
		queue:     queue,
		jobs:      jobs,
		observer:  cfg.observer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches the configured number of consumer goroutines.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("extraction worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("extraction worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive extraction jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg QueueMessage) {
	var job Job
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		w.logger.Error("failed to decode extraction job", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	data, err := w.extractor.Extract(ctx, job.Title, job.Text)
	if err == nil {
		err = w.saver.SaveExtractedData(ctx, job.PatientID, job.ReportID, data)
	}
	if err != nil {
		var limited *ratelimit.LimitedError
		if errors.As(err, &limited) || llm.IsRateLimited(err) {
			// Left on the queue; redelivered once the visibility timeout lapses.
			w.logger.Warn("extraction deferred by provider rate limit", "job_id", job.ID)
			w.observe("deferred")
			return
		}
		w.logger.Error("extraction job failed", "error", err, "job_id", job.ID, "patient_id", job.PatientID)
		w.markFailed(ctx, job.ID, err)
		w.observe("failed")
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	if w.jobs != nil {
		if storeErr := w.jobs.MarkCompleted(ctx, job.ID); storeErr != nil {
			w.logger.Error("failed to update job status", "error", storeErr, "job_id", job.ID)
		}
	}
	w.logger.Info("extraction job completed", "job_id", job.ID, "findings", len(data.KeyFindings))
	w.observe("completed")
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) markFailed(ctx context.Context, jobID string, cause error) {
	if w.jobs == nil {
		return
	}
	if err := w.jobs.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		w.logger.Error("failed to update job status", "error", err, "job_id", jobID)
	}
}

func (w *Worker) observe(status string) {
	if w.observer != nil {
		w.observer.ObserveExtraction(status)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete extraction job", "error", err)
	}
}
