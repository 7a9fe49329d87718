package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syndicateapp/syndicate/internal/models"
	"github.com/syndicateapp/syndicate/internal/repository"
)

var (
	ErrInvalidSchedule   = errors.New("scheduled time must be in the future")
	ErrAlreadyPublishing = errors.New("a publish job is already in flight for this post")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("post status changed concurrently")
	ErrPostNotFound      = errors.New("post not found")
	ErrEmptyPlatformList = errors.New("no target platforms selected")
)

// transitions lists the allowed next statuses for each status. Terminal
// statuses intentionally have no outgoing edges: a new scheduling cycle
// re-enters via SetSchedule, not via Transition.
var transitions = map[string][]string{
	models.PostStatusDraft:      {models.PostStatusScheduled, models.PostStatusPublishing},
	models.PostStatusScheduled:  {models.PostStatusDraft, models.PostStatusPublishing},
	models.PostStatusPublishing: {models.PostStatusPublished, models.PostStatusPartiallyPublished, models.PostStatusFailed},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine owns every Post status mutation. All writers (the API layer and
// the orchestrator) go through it so concurrent updates hit the
// repository's compare-and-swap instead of clobbering each other.
type Machine struct {
	posts repository.PostRepository
}

func NewMachine(posts repository.PostRepository) *Machine {
	return &Machine{posts: posts}
}

// Transition moves a post from one status to another, failing with
// ErrInvalidTransition for edges outside the table and ErrConflict when the
// post is no longer in the from status.
func (m *Machine) Transition(ctx context.Context, postID int64, from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	ok, err := m.posts.UpdateStatus(ctx, postID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// ValidateSchedule rejects timestamps that are not strictly in the future.
func ValidateSchedule(when time.Time, now time.Time) error {
	if !when.After(now) {
		return ErrInvalidSchedule
	}
	return nil
}

// Aggregate derives the terminal status for a completed job from its
// per-platform results: every platform succeeded -> published, every
// platform failed -> failed, anything in between -> partially_published.
func Aggregate(results []*models.PublishResult) string {
	if len(results) == 0 {
		return models.PostStatusFailed
	}

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}

	switch succeeded {
	case len(results):
		return models.PostStatusPublished
	case 0:
		return models.PostStatusFailed
	default:
		return models.PostStatusPartiallyPublished
	}
}

// Finalize records the terminal status and its timestamp and releases the
// post's active job slot.
func (m *Machine) Finalize(ctx context.Context, postID int64, status string, at time.Time) error {
	if !models.IsTerminal(status) {
		return fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, status)
	}
	return m.posts.Finalize(ctx, postID, status, at)
}
