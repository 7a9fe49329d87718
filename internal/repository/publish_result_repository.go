package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/syndicateapp/syndicate/internal/models"
)

type PublishResultRepository interface {
	Create(ctx context.Context, result *models.PublishResult) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PublishResult, error)
	ListByJobID(ctx context.Context, jobID string) ([]*models.PublishResult, error)
}

type publishResultRepository struct {
	db *sql.DB
}

func NewPublishResultRepository(db *sql.DB) PublishResultRepository {
	return &publishResultRepository{db: db}
}

func (r *publishResultRepository) Create(ctx context.Context, result *models.PublishResult) (int64, error) {
	query := `
		INSERT INTO publish_results (post_id, job_id, platform, success, platform_post_id, error_kind, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		result.PostID, result.JobID, result.Platform, result.Success,
		result.PlatformPostID, result.ErrorKind, result.ErrorMessage,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishResultRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishResult, error) {
	query := `
		SELECT id, post_id, job_id, platform, success, platform_post_id, error_kind, error_message, created_at
		FROM publish_results WHERE post_id = $1 ORDER BY created_at
	`
	return r.list(ctx, query, postID)
}

func (r *publishResultRepository) ListByJobID(ctx context.Context, jobID string) ([]*models.PublishResult, error) {
	query := `
		SELECT id, post_id, job_id, platform, success, platform_post_id, error_kind, error_message, created_at
		FROM publish_results WHERE job_id = $1 ORDER BY created_at
	`
	return r.list(ctx, query, jobID)
}

func (r *publishResultRepository) list(ctx context.Context, query string, arg any) ([]*models.PublishResult, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var results []*models.PublishResult
	for rows.Next() {
		var res models.PublishResult
		err := rows.Scan(&res.ID, &res.PostID, &res.JobID, &res.Platform, &res.Success,
			&res.PlatformPostID, &res.ErrorKind, &res.ErrorMessage, &res.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}
