package queue

import (
	"sync"
	"time"
)

const TaskTypePublishPost = "publish:post"

// DefaultQueue is the asynq queue name all publish jobs go to.
const DefaultQueue = "default"

// Retry policy: MaxRetry attempts after the first failure, delays doubling
// from RetryBase (2s, 4s, 8s).
const (
	MaxRetry  = 3
	RetryBase = 2 * time.Second
)

// Bounded history sizes for terminal jobs, oldest evicted first.
const (
	CompletedHistorySize = 100
	FailedHistorySize    = 500
)

// PublishPayload is the unit of queued work. The platform list is captured
// at enqueue time and never re-read from the post, so edits racing an
// in-flight job only affect the next scheduling cycle.
type PublishPayload struct {
	PostID      int64     `json:"post_id"`
	JobID       string    `json:"job_id"`
	Platforms   []string  `json:"platforms"`
	RequestedAt time.Time `json:"requested_at"`
}

type Queue struct {
	client    taskEnqueuer
	inspector taskRemover
	observers []Observer

	// jobs canceled while executing; the in-flight attempt finishes but no
	// retry is scheduled.
	canceled sync.Map
}

func NewQueue(client taskEnqueuer, inspector taskRemover, observers ...Observer) *Queue {
	return &Queue{
		client:    client,
		inspector: inspector,
		observers: observers,
	}
}

func (q *Queue) notifyEnqueued(job PublishPayload) {
	for _, o := range q.observers {
		o.JobEnqueued(job)
	}
}

func (q *Queue) notifyStarted(job PublishPayload) {
	for _, o := range q.observers {
		o.JobStarted(job)
	}
}

func (q *Queue) notifyRetried(job PublishPayload, attempt int, err error) {
	for _, o := range q.observers {
		o.JobRetried(job, attempt, err)
	}
}

func (q *Queue) notifyCompleted(job PublishPayload) {
	for _, o := range q.observers {
		o.JobCompleted(job)
	}
}

func (q *Queue) notifyFailed(job PublishPayload, err error) {
	for _, o := range q.observers {
		o.JobFailed(job, err)
	}
}
