package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/syndicateapp/syndicate/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	// UpdateStatus performs a compare-and-swap on status. Returns false when
	// the post is not currently in the from status.
	UpdateStatus(ctx context.Context, postID int64, from, to string) (bool, error)
	SetSchedule(ctx context.Context, postID int64, scheduledAt time.Time, jobID string) error
	ClearSchedule(ctx context.Context, postID int64) error
	Finalize(ctx context.Context, postID int64, status string, at time.Time) error
	Remove(ctx context.Context, id int64) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, caption, title, platforms, status, scheduled_at, published_at, failed_at, active_job_id, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var post models.Post
	err := row.Scan(
		&post.ID, &post.UserID, &post.Caption, &post.Title,
		pq.Array(&post.Platforms), &post.Status,
		&post.ScheduledAt, &post.PublishedAt, &post.FailedAt,
		&post.ActiveJobID, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, caption, title, platforms, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Caption, post.Title, pq.Array(post.Platforms), post.Status, post.ScheduledAt).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Caption, post.Title, pq.Array(post.Platforms), post.Status, post.ScheduledAt).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) UpdateStatus(ctx context.Context, postID int64, from, to string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, to, time.Now(), postID, from)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) SetSchedule(ctx context.Context, postID int64, scheduledAt time.Time, jobID string) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_at = $2,
			active_job_id = $3,
			published_at = NULL,
			failed_at = NULL,
			updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, scheduledAt, jobID, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) ClearSchedule(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET status = $1,
			scheduled_at = NULL,
			active_job_id = '',
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusDraft, time.Now(), postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Finalize(ctx context.Context, postID int64, status string, at time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			published_at = CASE WHEN $2 THEN $3 ELSE published_at END,
			failed_at = CASE WHEN $2 THEN failed_at ELSE $3 END,
			active_job_id = '',
			updated_at = $3
		WHERE id = $4
	`
	published := status == models.PostStatusPublished || status == models.PostStatusPartiallyPublished
	_, err := r.db.ExecContext(ctx, query, status, published, at, postID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
