package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syndicateapp/syndicate/internal/lifecycle"
	"github.com/syndicateapp/syndicate/internal/models"
	"github.com/syndicateapp/syndicate/internal/publisher"
	"github.com/syndicateapp/syndicate/internal/queue"
	"github.com/syndicateapp/syndicate/internal/repository"
	"github.com/syndicateapp/syndicate/internal/service"
)

type fakePublisher struct {
	name  string
	id    string
	err   error
	calls int
}

func (f *fakePublisher) Platform() string { return f.name }

func (f *fakePublisher) Publish(ctx context.Context, req *publisher.PublishRequest) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

type fakeCreds struct {
	err error
}

func (f *fakeCreds) Resolve(ctx context.Context, userID int64, platform string) (*service.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.Credential{AccessToken: "token", AccountID: "acct-1"}, nil
}

type fixture struct {
	posts   *repository.MemoryPostRepository
	results *repository.MemoryPublishResultRepository
	orch    *Orchestrator
}

func newFixture(t *testing.T, creds service.CredentialStore, pubs ...publisher.Publisher) *fixture {
	t.Helper()
	posts := repository.NewMemoryPostRepository()
	results := repository.NewMemoryPublishResultRepository()
	return &fixture{
		posts:   posts,
		results: results,
		orch: NewOrchestrator(posts, results, nil, nil,
			lifecycle.NewMachine(posts), creds, publisher.NewRegistry(pubs...)),
	}
}

func (f *fixture) seedPost(t *testing.T, status, jobID string) *models.Post {
	t.Helper()
	id, err := f.posts.Create(context.Background(), nil, &models.Post{
		UserID:      7,
		Caption:     "launch day",
		Status:      status,
		ActiveJobID: jobID,
	})
	require.NoError(t, err)
	post, err := f.posts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return post
}

func TestRunAllPlatformsSucceed(t *testing.T) {
	fb := &fakePublisher{name: publisher.PlatformFacebook, id: "fb-1"}
	tw := &fakePublisher{name: publisher.PlatformTwitter, id: "tw-1"}
	f := newFixture(t, &fakeCreds{}, fb, tw)
	post := f.seedPost(t, models.PostStatusScheduled, "job-1")

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"facebook", "twitter"}}
	require.NoError(t, f.orch.Run(context.Background(), job))

	settled, err := f.posts.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, settled.Status)
	require.NotNil(t, settled.PublishedAt)
	assert.Nil(t, settled.FailedAt)
	assert.Empty(t, settled.ActiveJobID)

	results, err := f.results.ListByPostID(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.True(t, res.Success)
		assert.NotEmpty(t, res.PlatformPostID)
		assert.Equal(t, "job-1", res.JobID)
	}
}

func TestRunAllPlatformsFail(t *testing.T) {
	fb := &fakePublisher{name: publisher.PlatformFacebook, err: publisher.Errorf("facebook", publisher.KindTransient, "503")}
	f := newFixture(t, &fakeCreds{}, fb)
	post := f.seedPost(t, models.PostStatusScheduled, "job-1")

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"facebook"}}
	require.NoError(t, f.orch.Run(context.Background(), job))

	settled, _ := f.posts.GetByID(context.Background(), post.ID)
	assert.Equal(t, models.PostStatusFailed, settled.Status)
	require.NotNil(t, settled.FailedAt)
	assert.Nil(t, settled.PublishedAt)
}

func TestRunPartialSuccess(t *testing.T) {
	fb := &fakePublisher{name: publisher.PlatformFacebook, id: "fb-1"}
	tw := &fakePublisher{name: publisher.PlatformTwitter, err: publisher.Errorf("twitter", publisher.KindAuth, "401")}
	f := newFixture(t, &fakeCreds{}, fb, tw)
	post := f.seedPost(t, models.PostStatusScheduled, "job-1")

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"facebook", "twitter"}}
	require.NoError(t, f.orch.Run(context.Background(), job))

	settled, _ := f.posts.GetByID(context.Background(), post.ID)
	assert.Equal(t, models.PostStatusPartiallyPublished, settled.Status)
	require.NotNil(t, settled.PublishedAt)

	results, _ := f.results.ListByPostID(context.Background(), post.ID)
	require.Len(t, results, 2)
	byPlatform := map[string]*models.PublishResult{}
	for _, res := range results {
		byPlatform[res.Platform] = res
	}
	assert.True(t, byPlatform["facebook"].Success)
	assert.Equal(t, "fb-1", byPlatform["facebook"].PlatformPostID)
	assert.False(t, byPlatform["twitter"].Success)
	assert.Equal(t, string(publisher.KindAuth), byPlatform["twitter"].ErrorKind)
	assert.NotEmpty(t, byPlatform["twitter"].ErrorMessage)
}

func TestRunMissingPostIsNoop(t *testing.T) {
	fb := &fakePublisher{name: publisher.PlatformFacebook, id: "fb-1"}
	f := newFixture(t, &fakeCreds{}, fb)

	job := queue.PublishPayload{PostID: 999, JobID: "job-1", Platforms: []string{"facebook"}}
	require.NoError(t, f.orch.Run(context.Background(), job))
	assert.Zero(t, fb.calls)
}

func TestRunSettledPostIsNoop(t *testing.T) {
	fb := &fakePublisher{name: publisher.PlatformFacebook, id: "fb-1"}
	f := newFixture(t, &fakeCreds{}, fb)
	post := f.seedPost(t, models.PostStatusPublished, "")

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"facebook"}}
	require.NoError(t, f.orch.Run(context.Background(), job))

	assert.Zero(t, fb.calls)
	results, _ := f.results.ListByPostID(context.Background(), post.ID)
	assert.Empty(t, results)
}

func TestRunStaleJobIsNoop(t *testing.T) {
	fb := &fakePublisher{name: publisher.PlatformFacebook, id: "fb-1"}
	f := newFixture(t, &fakeCreds{}, fb)
	post := f.seedPost(t, models.PostStatusScheduled, "job-2")

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"facebook"}}
	require.NoError(t, f.orch.Run(context.Background(), job))

	assert.Zero(t, fb.calls)
	settled, _ := f.posts.GetByID(context.Background(), post.ID)
	assert.Equal(t, models.PostStatusScheduled, settled.Status)
}

func TestRunRetrySkipsSucceededPlatforms(t *testing.T) {
	fb := &fakePublisher{name: publisher.PlatformFacebook, id: "fb-1"}
	tw := &fakePublisher{name: publisher.PlatformTwitter, id: "tw-1"}
	f := newFixture(t, &fakeCreds{}, fb, tw)
	post := f.seedPost(t, models.PostStatusPublishing, "job-1")

	// A prior attempt of the same job already landed on facebook.
	_, err := f.results.Create(context.Background(), &models.PublishResult{
		PostID:         post.ID,
		JobID:          "job-1",
		Platform:       "facebook",
		Success:        true,
		PlatformPostID: "fb-prior",
	})
	require.NoError(t, err)

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"facebook", "twitter"}}
	require.NoError(t, f.orch.Run(context.Background(), job))

	assert.Zero(t, fb.calls, "already-published platform must not be posted again")
	assert.Equal(t, 1, tw.calls)

	settled, _ := f.posts.GetByID(context.Background(), post.ID)
	assert.Equal(t, models.PostStatusPublished, settled.Status)
}

func TestRunCredentialFailureRecordsAuthResult(t *testing.T) {
	fb := &fakePublisher{name: publisher.PlatformFacebook, id: "fb-1"}
	creds := &fakeCreds{err: publisher.Errorf("facebook", publisher.KindAuth, "token expired")}
	f := newFixture(t, creds, fb)
	post := f.seedPost(t, models.PostStatusScheduled, "job-1")

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"facebook"}}
	require.NoError(t, f.orch.Run(context.Background(), job))

	assert.Zero(t, fb.calls)
	results, _ := f.results.ListByPostID(context.Background(), post.ID)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, string(publisher.KindAuth), results[0].ErrorKind)
}

func TestRunUnknownPlatformRecordsConfigResult(t *testing.T) {
	f := newFixture(t, &fakeCreds{})
	post := f.seedPost(t, models.PostStatusScheduled, "job-1")

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"myspace"}}
	require.NoError(t, f.orch.Run(context.Background(), job))

	results, _ := f.results.ListByPostID(context.Background(), post.ID)
	require.Len(t, results, 1)
	assert.Equal(t, string(publisher.KindConfig), results[0].ErrorKind)

	settled, _ := f.posts.GetByID(context.Background(), post.ID)
	assert.Equal(t, models.PostStatusFailed, settled.Status)
}

func TestAbortRecordsUnattemptedPlatforms(t *testing.T) {
	f := newFixture(t, &fakeCreds{})
	post := f.seedPost(t, models.PostStatusPublishing, "job-1")

	// One platform was already attempted and failed before the retries ran
	// out; the other never got a turn.
	_, err := f.results.Create(context.Background(), &models.PublishResult{
		PostID:       post.ID,
		JobID:        "job-1",
		Platform:     "facebook",
		Success:      false,
		ErrorKind:    string(publisher.KindTransient),
		ErrorMessage: "503",
	})
	require.NoError(t, err)

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"facebook", "twitter"}}
	f.orch.Abort(context.Background(), job, errors.New("retries exhausted"))

	settled, _ := f.posts.GetByID(context.Background(), post.ID)
	assert.Equal(t, models.PostStatusFailed, settled.Status)
	require.NotNil(t, settled.FailedAt)
	assert.WithinDuration(t, time.Now(), *settled.FailedAt, time.Second)

	results, _ := f.results.ListByPostID(context.Background(), post.ID)
	require.Len(t, results, 2)
	byPlatform := map[string]*models.PublishResult{}
	for _, res := range results {
		byPlatform[res.Platform] = res
	}
	assert.Contains(t, byPlatform["twitter"].ErrorMessage, "not attempted")
}

func TestAbortOnSettledPostIsNoop(t *testing.T) {
	f := newFixture(t, &fakeCreds{})
	post := f.seedPost(t, models.PostStatusPublished, "")

	job := queue.PublishPayload{PostID: post.ID, JobID: "job-1", Platforms: []string{"facebook"}}
	f.orch.Abort(context.Background(), job, errors.New("canceled"))

	results, _ := f.results.ListByPostID(context.Background(), post.ID)
	assert.Empty(t, results)
	settled, _ := f.posts.GetByID(context.Background(), post.ID)
	assert.Equal(t, models.PostStatusPublished, settled.Status)
}
