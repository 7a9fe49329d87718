package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/syndicateapp/syndicate/internal/lifecycle"
	"github.com/syndicateapp/syndicate/internal/models"
	"github.com/syndicateapp/syndicate/internal/publisher"
	"github.com/syndicateapp/syndicate/internal/queue"
	"github.com/syndicateapp/syndicate/internal/repository"
	"github.com/syndicateapp/syndicate/internal/service"
)

// Orchestrator executes one due publish job: it drives the post into
// publishing, fans out to each platform adapter, records per-platform
// results and settles the post's terminal status.
type Orchestrator struct {
	posts     repository.PostRepository
	results   repository.PublishResultRepository
	postMedia repository.PostMediaRepository
	assets    repository.MediaAssetRepository
	machine   *lifecycle.Machine
	creds     service.CredentialStore
	registry  publisher.Registry
	timeout   time.Duration
}

func NewOrchestrator(
	posts repository.PostRepository,
	results repository.PublishResultRepository,
	postMedia repository.PostMediaRepository,
	assets repository.MediaAssetRepository,
	machine *lifecycle.Machine,
	creds service.CredentialStore,
	registry publisher.Registry) *Orchestrator {
	return &Orchestrator{
		posts:     posts,
		results:   results,
		postMedia: postMedia,
		assets:    assets,
		machine:   machine,
		creds:     creds,
		registry:  registry,
		timeout:   publisher.PublishTimeout,
	}
}

// Run processes one job. A returned error is an orchestrator fault and
// triggers the queue's retry policy; per-platform failures are captured as
// results and never bubble out.
func (o *Orchestrator) Run(ctx context.Context, job queue.PublishPayload) error {
	post, err := o.posts.GetByID(ctx, job.PostID)
	if err != nil {
		return fmt.Errorf("loading post %d: %w", job.PostID, err)
	}

	// Idempotency guard: a missing post or one already settled by a stale
	// duplicate job is a no-op success.
	if post == nil {
		slog.Info("publish job references missing post, skipping", "post_id", job.PostID, "job_id", job.JobID)
		return nil
	}
	if models.IsTerminal(post.Status) {
		slog.Info("post already settled, skipping", "post_id", post.ID, "status", post.Status)
		return nil
	}
	if post.ActiveJobID != "" && post.ActiveJobID != job.JobID {
		slog.Info("stale publish job, skipping", "post_id", post.ID, "job_id", job.JobID, "active_job_id", post.ActiveJobID)
		return nil
	}

	if post.Status != models.PostStatusPublishing {
		if err := o.machine.Transition(ctx, post.ID, post.Status, models.PostStatusPublishing); err != nil {
			if errors.Is(err, lifecycle.ErrConflict) {
				// Somebody moved the post under us; re-check whether it
				// settled, otherwise let the queue retry.
				current, gerr := o.posts.GetByID(ctx, post.ID)
				if gerr == nil && (current == nil || models.IsTerminal(current.Status)) {
					return nil
				}
			}
			return fmt.Errorf("transitioning post %d to publishing: %w", post.ID, err)
		}
	}

	// Results already recorded for this job (a retry after a partial
	// crash): platforms that succeeded must not be posted twice.
	prior, err := o.results.ListByJobID(ctx, job.JobID)
	if err != nil {
		return fmt.Errorf("loading prior results for job %s: %w", job.JobID, err)
	}
	done := make(map[string]*models.PublishResult, len(prior))
	for _, res := range prior {
		if res.Success {
			done[res.Platform] = res
		}
	}

	mediaURLs, err := o.loadMediaURLs(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("loading media for post %d: %w", post.ID, err)
	}

	results := make([]*models.PublishResult, 0, len(job.Platforms))
	for _, platform := range job.Platforms {
		if res, ok := done[platform]; ok {
			results = append(results, res)
			continue
		}

		res := o.publishOne(ctx, post, job, platform, mediaURLs)
		if _, err := o.results.Create(ctx, res); err != nil {
			return fmt.Errorf("recording %s result for post %d: %w", platform, post.ID, err)
		}
		results = append(results, res)
	}

	status := lifecycle.Aggregate(results)
	if err := o.machine.Finalize(ctx, post.ID, status, time.Now()); err != nil {
		return fmt.Errorf("finalizing post %d: %w", post.ID, err)
	}

	slog.Info("publish job finished", "post_id", post.ID, "job_id", job.JobID, "status", status)
	return nil
}

// publishOne attempts a single platform and always returns a result; one
// platform's failure never aborts the remaining platforms.
func (o *Orchestrator) publishOne(ctx context.Context, post *models.Post, job queue.PublishPayload, platform string, mediaURLs []string) *models.PublishResult {
	res := &models.PublishResult{
		PostID:    post.ID,
		JobID:     job.JobID,
		Platform:  platform,
		CreatedAt: time.Now(),
	}

	fail := func(err error) *models.PublishResult {
		res.Success = false
		res.ErrorKind = string(publisher.KindOf(err))
		res.ErrorMessage = err.Error()
		slog.Warn("platform publish failed", "post_id", post.ID, "platform", platform, "kind", res.ErrorKind, "error", err)
		return res
	}

	pub, err := o.registry.Get(platform)
	if err != nil {
		return fail(err)
	}

	cred, err := o.creds.Resolve(ctx, post.UserID, platform)
	if err != nil {
		return fail(err)
	}

	req := &publisher.PublishRequest{
		PostID:      post.ID,
		Caption:     post.Caption,
		Title:       post.Title,
		AccessToken: cred.AccessToken,
		AccountID:   cred.AccountID,
		MediaURLs:   mediaURLs,
	}

	attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	platformPostID, err := pub.Publish(attemptCtx, req)
	if err != nil {
		return fail(err)
	}

	res.Success = true
	res.PlatformPostID = platformPostID
	res.CreatedAt = time.Now()
	return res
}

// Abort is invoked by the queue when no further attempts will be made
// (retries exhausted or the job was canceled mid-flight). The post settles
// as failed; platforms never attempted get a failure result so the outcome
// list accounts for the whole platform set.
func (o *Orchestrator) Abort(ctx context.Context, job queue.PublishPayload, cause error) {
	post, err := o.posts.GetByID(ctx, job.PostID)
	if err != nil || post == nil || models.IsTerminal(post.Status) {
		return
	}

	recorded, err := o.results.ListByJobID(ctx, job.JobID)
	if err != nil {
		slog.Error("loading results during abort", "job_id", job.JobID, "error", err)
		recorded = nil
	}
	seen := make(map[string]bool, len(recorded))
	for _, res := range recorded {
		seen[res.Platform] = true
	}

	for _, platform := range job.Platforms {
		if seen[platform] {
			continue
		}
		res := &models.PublishResult{
			PostID:       post.ID,
			JobID:        job.JobID,
			Platform:     platform,
			Success:      false,
			ErrorKind:    string(publisher.KindTransient),
			ErrorMessage: fmt.Sprintf("not attempted: %v", cause),
			CreatedAt:    time.Now(),
		}
		if _, err := o.results.Create(ctx, res); err != nil {
			slog.Error("recording abort result", "post_id", post.ID, "platform", platform, "error", err)
		}
	}

	if err := o.machine.Finalize(ctx, post.ID, models.PostStatusFailed, time.Now()); err != nil {
		slog.Error("finalizing aborted post", "post_id", post.ID, "error", err)
	}
}

func (o *Orchestrator) loadMediaURLs(ctx context.Context, postID int64) ([]string, error) {
	if o.postMedia == nil || o.assets == nil {
		return nil, nil
	}

	medias, err := o.postMedia.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(medias))
	for _, pm := range medias {
		asset, err := o.assets.GetByID(ctx, pm.AssetID)
		if err != nil {
			return nil, err
		}
		if asset == nil || asset.FileURL == "" {
			continue
		}
		urls = append(urls, asset.FileURL)
	}
	return urls, nil
}
