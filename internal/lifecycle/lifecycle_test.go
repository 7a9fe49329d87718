package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndicateapp/syndicate/internal/models"
	"github.com/syndicateapp/syndicate/internal/repository"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{models.PostStatusDraft, models.PostStatusScheduled},
		{models.PostStatusDraft, models.PostStatusPublishing},
		{models.PostStatusScheduled, models.PostStatusDraft},
		{models.PostStatusScheduled, models.PostStatusPublishing},
		{models.PostStatusPublishing, models.PostStatusPublished},
		{models.PostStatusPublishing, models.PostStatusPartiallyPublished},
		{models.PostStatusPublishing, models.PostStatusFailed},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to string }{
		{models.PostStatusDraft, models.PostStatusPublished},
		{models.PostStatusScheduled, models.PostStatusFailed},
		{models.PostStatusPublished, models.PostStatusPublishing},
		{models.PostStatusFailed, models.PostStatusPublishing},
		{models.PostStatusPartiallyPublished, models.PostStatusScheduled},
		{models.PostStatusPublishing, models.PostStatusDraft},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestValidateSchedule(t *testing.T) {
	now := time.Now()

	assert.NoError(t, ValidateSchedule(now.Add(10*time.Minute), now))
	assert.ErrorIs(t, ValidateSchedule(now.Add(-time.Minute), now), ErrInvalidSchedule)
	assert.ErrorIs(t, ValidateSchedule(now, now), ErrInvalidSchedule)
}

func TestAggregate(t *testing.T) {
	ok := &models.PublishResult{Success: true}
	bad := &models.PublishResult{Success: false}

	assert.Equal(t, models.PostStatusPublished, Aggregate([]*models.PublishResult{ok, ok}))
	assert.Equal(t, models.PostStatusFailed, Aggregate([]*models.PublishResult{bad, bad}))
	assert.Equal(t, models.PostStatusPartiallyPublished, Aggregate([]*models.PublishResult{ok, bad}))
	assert.Equal(t, models.PostStatusFailed, Aggregate(nil))
}

func TestMachineTransition(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryPostRepository()
	machine := NewMachine(repo)

	postID, err := repo.Create(ctx, nil, &models.Post{
		UserID:    1,
		Caption:   "hello",
		Platforms: []string{"twitter"},
		Status:    models.PostStatusScheduled,
	})
	require.NoError(t, err)

	require.NoError(t, machine.Transition(ctx, postID, models.PostStatusScheduled, models.PostStatusPublishing))

	post, err := repo.GetByID(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublishing, post.Status)

	// Second CAS from the stale status must conflict.
	err = machine.Transition(ctx, postID, models.PostStatusScheduled, models.PostStatusPublishing)
	assert.ErrorIs(t, err, ErrConflict)

	// Edges outside the table are rejected before touching the store.
	err = machine.Transition(ctx, postID, models.PostStatusPublishing, models.PostStatusScheduled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMachineFinalize(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryPostRepository()
	machine := NewMachine(repo)

	postID, err := repo.Create(ctx, nil, &models.Post{
		UserID:    1,
		Caption:   "hello",
		Platforms: []string{"twitter"},
		Status:    models.PostStatusPublishing,
	})
	require.NoError(t, err)

	err = machine.Finalize(ctx, postID, models.PostStatusPublishing, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	at := time.Now()
	require.NoError(t, machine.Finalize(ctx, postID, models.PostStatusPublished, at))

	post, err := repo.GetByID(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, post.Status)
	require.NotNil(t, post.PublishedAt)
	assert.WithinDuration(t, at, *post.PublishedAt, time.Second)
	assert.Nil(t, post.FailedAt)
	assert.Empty(t, post.ActiveJobID)
}
