package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// JobRunner executes one due publish job. Run returning an error means an
// orchestrator fault (not a per-platform failure) and triggers the queue's
// retry policy. Abort is called once when no further attempts will be made.
type JobRunner interface {
	Run(ctx context.Context, job PublishPayload) error
	Abort(ctx context.Context, job PublishPayload, cause error)
}

// Handler adapts a JobRunner to asynq, emitting observer events and
// enforcing the cancellation and retry-exhaustion rules.
func (q *Queue) Handler(runner JobRunner) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var job PublishPayload
		if err := json.Unmarshal(task.Payload(), &job); err != nil {
			return fmt.Errorf("unmarshal publish payload: %v: %w", err, asynq.SkipRetry)
		}

		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		return q.runJob(ctx, runner, job, retried, maxRetry)
	}
}

func (q *Queue) runJob(ctx context.Context, runner JobRunner, job PublishPayload, retried, maxRetry int) error {
	q.notifyStarted(job)

	err := runner.Run(ctx, job)
	if err == nil {
		q.canceled.Delete(job.JobID)
		q.notifyCompleted(job)
		return nil
	}

	if q.isCanceled(job.JobID) {
		q.canceled.Delete(job.JobID)
		runner.Abort(ctx, job, err)
		q.notifyFailed(job, err)
		return fmt.Errorf("job %s canceled after failed attempt: %w", job.JobID, asynq.SkipRetry)
	}

	if retried >= maxRetry {
		runner.Abort(ctx, job, err)
		q.notifyFailed(job, err)
		return err
	}

	q.notifyRetried(job, retried+1, err)
	return err
}
