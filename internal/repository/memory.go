package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/syndicateapp/syndicate/internal/models"
)

// In-memory implementations of PostRepository and PublishResultRepository.
// They honor the same compare-and-swap contract as the Postgres versions so
// the lifecycle machine and orchestrator can be exercised without a store.

type MemoryPostRepository struct {
	mu     sync.Mutex
	nextID int64
	posts  map[int64]*models.Post
}

func NewMemoryPostRepository() *MemoryPostRepository {
	return &MemoryPostRepository{nextID: 1, posts: make(map[int64]*models.Post)}
}

func (r *MemoryPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *post
	cp.ID = r.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.nextID++
	r.posts[cp.ID] = &cp
	return cp.ID, nil
}

func (r *MemoryPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *post
	return &cp, nil
}

func (r *MemoryPostRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var posts []*models.Post
	for _, post := range r.posts {
		if post.UserID == userID {
			cp := *post
			posts = append(posts, &cp)
		}
	}
	return posts, nil
}

func (r *MemoryPostRepository) UpdateStatus(ctx context.Context, postID int64, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postID]
	if !ok || post.Status != from {
		return false, nil
	}
	post.Status = to
	post.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryPostRepository) SetSchedule(ctx context.Context, postID int64, scheduledAt time.Time, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postID]
	if !ok {
		return nil
	}
	post.Status = models.PostStatusScheduled
	post.ScheduledAt = &scheduledAt
	post.ActiveJobID = jobID
	post.PublishedAt = nil
	post.FailedAt = nil
	post.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryPostRepository) ClearSchedule(ctx context.Context, postID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postID]
	if !ok {
		return nil
	}
	post.Status = models.PostStatusDraft
	post.ScheduledAt = nil
	post.ActiveJobID = ""
	post.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryPostRepository) Finalize(ctx context.Context, postID int64, status string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[postID]
	if !ok {
		return nil
	}
	post.Status = status
	switch status {
	case models.PostStatusPublished, models.PostStatusPartiallyPublished:
		post.PublishedAt = &at
	default:
		post.FailedAt = &at
	}
	post.ActiveJobID = ""
	post.UpdatedAt = at
	return nil
}

func (r *MemoryPostRepository) Remove(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.posts, id)
	return nil
}

type MemoryPublishResultRepository struct {
	mu      sync.Mutex
	nextID  int64
	results []*models.PublishResult
}

func NewMemoryPublishResultRepository() *MemoryPublishResultRepository {
	return &MemoryPublishResultRepository{nextID: 1}
}

func (r *MemoryPublishResultRepository) Create(ctx context.Context, result *models.PublishResult) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *result
	cp.ID = r.nextID
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.nextID++
	r.results = append(r.results, &cp)
	return cp.ID, nil
}

func (r *MemoryPublishResultRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.PublishResult
	for _, res := range r.results {
		if res.PostID == postID {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryPublishResultRepository) ListByJobID(ctx context.Context, jobID string) ([]*models.PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.PublishResult
	for _, res := range r.results {
		if res.JobID == jobID {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}
