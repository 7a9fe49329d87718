package queue

import (
	"log/slog"
	"sync"
	"time"
)

// Observer receives queue lifecycle events. Calls are synchronous and made
// from the enqueue/worker paths; implementations must not block.
type Observer interface {
	JobEnqueued(job PublishPayload)
	JobStarted(job PublishPayload)
	JobRetried(job PublishPayload, attempt int, err error)
	JobCompleted(job PublishPayload)
	JobFailed(job PublishPayload, err error)
}

// LoggingObserver writes queue transitions to slog.
type LoggingObserver struct{}

func (LoggingObserver) JobEnqueued(job PublishPayload) {
	slog.Info("publish job enqueued", "job_id", job.JobID, "post_id", job.PostID, "platforms", job.Platforms)
}

func (LoggingObserver) JobStarted(job PublishPayload) {
	slog.Info("publish job started", "job_id", job.JobID, "post_id", job.PostID)
}

func (LoggingObserver) JobRetried(job PublishPayload, attempt int, err error) {
	slog.Warn("publish job will retry", "job_id", job.JobID, "post_id", job.PostID, "attempt", attempt, "error", err)
}

func (LoggingObserver) JobCompleted(job PublishPayload) {
	slog.Info("publish job completed", "job_id", job.JobID, "post_id", job.PostID)
}

func (LoggingObserver) JobFailed(job PublishPayload, err error) {
	slog.Error("publish job failed", "job_id", job.JobID, "post_id", job.PostID, "error", err)
}

// JobRecord is one terminal job outcome retained for observability.
type JobRecord struct {
	Job        PublishPayload
	Error      string
	FinishedAt time.Time
}

// History keeps bounded logs of completed and failed jobs, independently
// bounded, oldest evicted first. It satisfies Observer.
type History struct {
	mu             sync.Mutex
	completed      []JobRecord
	failed         []JobRecord
	completedLimit int
	failedLimit    int
}

func NewHistory(completedLimit, failedLimit int) *History {
	return &History{completedLimit: completedLimit, failedLimit: failedLimit}
}

func (h *History) JobEnqueued(PublishPayload)            {}
func (h *History) JobStarted(PublishPayload)             {}
func (h *History) JobRetried(PublishPayload, int, error) {}

func (h *History) JobCompleted(job PublishPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = appendBounded(h.completed, JobRecord{Job: job, FinishedAt: time.Now()}, h.completedLimit)
}

func (h *History) JobFailed(job PublishPayload, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := JobRecord{Job: job, FinishedAt: time.Now()}
	if err != nil {
		rec.Error = err.Error()
	}
	h.failed = appendBounded(h.failed, rec, h.failedLimit)
}

func (h *History) Completed() []JobRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]JobRecord, len(h.completed))
	copy(out, h.completed)
	return out
}

func (h *History) Failed() []JobRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]JobRecord, len(h.failed))
	copy(out, h.failed)
	return out
}

func appendBounded(records []JobRecord, rec JobRecord, limit int) []JobRecord {
	records = append(records, rec)
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records
}
