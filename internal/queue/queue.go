package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrJobNotFound = errors.New("job not found")

// taskEnqueuer and taskRemover are the slices of *asynq.Client and
// *asynq.Inspector the queue needs, kept narrow so tests can stub them.
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type taskRemover interface {
	DeleteTask(queue, id string) error
}

// Enqueue schedules one publish job for the post, due after delay. Storage
// failures surface to the caller; a scheduling request is never silently
// dropped.
func (q *Queue) Enqueue(ctx context.Context, postID int64, platforms []string, delay time.Duration) (string, error) {
	jobID, err := gonanoid.New()
	if err != nil {
		return "", err
	}

	job := PublishPayload{
		PostID:      postID,
		JobID:       jobID,
		Platforms:   platforms,
		RequestedAt: time.Now(),
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)

	_, err = q.client.EnqueueContext(ctx, task,
		asynq.TaskID(jobID),
		asynq.Queue(DefaultQueue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(MaxRetry),
	)
	if err != nil {
		return "", fmt.Errorf("enqueueing publish job for post %d: %w", postID, err)
	}

	q.notifyEnqueued(job)
	return jobID, nil
}

// Cancel removes a pending job. A job not yet dequeued is deleted
// immediately; one already executing keeps running but no further retries
// are scheduled.
func (q *Queue) Cancel(jobID string) error {
	err := q.inspector.DeleteTask(DefaultQueue, jobID)
	if err == nil {
		return nil
	}
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return ErrJobNotFound
	}

	// Most likely the worker owns it right now. Advisory cancel: the
	// handler checks this set before scheduling a retry.
	q.canceled.Store(jobID, struct{}{})
	return nil
}

func (q *Queue) isCanceled(jobID string) bool {
	_, ok := q.canceled.Load(jobID)
	return ok
}

// RetryDelay implements the backoff policy for asynq: 2s, 4s, 8s for
// retries 1 through 3.
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n < 1 {
		n = 1
	}
	return RetryBase << (n - 1)
}
