package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/syndicateapp/syndicate/internal/lifecycle"
	"github.com/syndicateapp/syndicate/internal/models"
	"github.com/syndicateapp/syndicate/internal/publisher"
	"github.com/syndicateapp/syndicate/internal/queue"
	"github.com/syndicateapp/syndicate/internal/repository"
	"github.com/syndicateapp/syndicate/internal/transfer"
)

const scheduleTimeLayout = "2006-01-02T15:04"

// PublishQueue is the slice of *queue.Queue the service needs.
type PublishQueue interface {
	Enqueue(ctx context.Context, postID int64, platforms []string, delay time.Duration) (string, error)
	Cancel(jobID string) error
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error)
	SchedulePost(ctx context.Context, userID, postID int64, scheduledTime string) (string, error)
	PublishNow(ctx context.Context, userID, postID int64) (string, error)
	CancelSchedule(ctx context.Context, userID, postID int64) error
	PostStatus(ctx context.Context, userID, postID int64) (*transfer.PostStatus, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db       *sql.DB
	posts    repository.PostRepository
	results  repository.PublishResultRepository
	assets   repository.MediaAssetRepository
	media    repository.PostMediaRepository
	queue    PublishQueue
	registry publisher.Registry
	storage  Storage
}

func NewPostService(
	db *sql.DB,
	posts repository.PostRepository,
	results repository.PublishResultRepository,
	assets repository.MediaAssetRepository,
	media repository.PostMediaRepository,
	q PublishQueue,
	registry publisher.Registry,
	storage Storage) PostService {
	return &postService{
		db:       db,
		posts:    posts,
		results:  results,
		assets:   assets,
		media:    media,
		queue:    q,
		registry: registry,
		storage:  storage,
	}
}

// CreatePost stores a new post as draft, or as scheduled with a queued job
// when a scheduling time is given. The platform set is fixed here and
// validated up front; a past timestamp is rejected before anything is
// persisted or enqueued.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}
	if pc.Caption == "" {
		err := errors.New("caption cannot be empty")
		slog.Info(err.Error())
		return 0, err
	}

	platforms, err := s.parsePlatforms(pc.Platforms)
	if err != nil {
		return 0, err
	}

	var scheduledAt *time.Time
	if pc.ScheduledTime != "" {
		when, err := time.Parse(scheduleTimeLayout, pc.ScheduledTime)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, err
		}
		if err := lifecycle.ValidateSchedule(when, time.Now()); err != nil {
			return 0, err
		}
		scheduledAt = &when
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	status := models.PostStatusDraft
	if scheduledAt != nil {
		status = models.PostStatusScheduled
	}

	post := models.Post{
		UserID:      userID,
		Caption:     pc.Caption,
		Title:       pc.Title,
		Platforms:   platforms,
		Status:      status,
		ScheduledAt: scheduledAt,
	}

	postID, err := s.posts.Create(ctx, tx, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.processFiles(ctx, tx, userID, postID, files); err != nil {
		return 0, fmt.Errorf("error processing files: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if scheduledAt != nil {
		jobID, err := s.queue.Enqueue(ctx, postID, platforms, time.Until(*scheduledAt))
		if err != nil {
			return 0, fmt.Errorf("error scheduling post: %w", err)
		}
		if err := s.posts.SetSchedule(ctx, postID, *scheduledAt, jobID); err != nil {
			return 0, err
		}
	}

	return postID, nil
}

// SchedulePost (re)schedules an existing post. A pending job is replaced,
// never duplicated: the old job is canceled before the new one is
// enqueued.
func (s *postService) SchedulePost(ctx context.Context, userID, postID int64, scheduledTime string) (string, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return "", err
	}

	when, err := time.Parse(scheduleTimeLayout, scheduledTime)
	if err != nil {
		return "", fmt.Errorf("invalid scheduled time format: %w", err)
	}
	if err := lifecycle.ValidateSchedule(when, time.Now()); err != nil {
		return "", err
	}

	if post.Status == models.PostStatusPublishing {
		return "", lifecycle.ErrAlreadyPublishing
	}

	if post.ActiveJobID != "" {
		if err := s.queue.Cancel(post.ActiveJobID); err != nil && !errors.Is(err, queue.ErrJobNotFound) {
			return "", err
		}
	}

	jobID, err := s.queue.Enqueue(ctx, postID, post.Platforms, time.Until(when))
	if err != nil {
		return "", err
	}

	if err := s.posts.SetSchedule(ctx, postID, when, jobID); err != nil {
		return "", err
	}

	return jobID, nil
}

// PublishNow enqueues an immediate publish job. A post with a job already
// active is rejected with AlreadyPublishing.
func (s *postService) PublishNow(ctx context.Context, userID, postID int64) (string, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return "", err
	}

	if post.Status == models.PostStatusPublishing || post.ActiveJobID != "" {
		return "", lifecycle.ErrAlreadyPublishing
	}

	jobID, err := s.queue.Enqueue(ctx, postID, post.Platforms, 0)
	if err != nil {
		return "", err
	}

	if err := s.posts.SetSchedule(ctx, postID, time.Now(), jobID); err != nil {
		return "", err
	}

	return jobID, nil
}

// CancelSchedule removes the pending job. The post reverts to draft with
// its schedule cleared. Cancelling a job already executing is advisory:
// the in-flight attempt finishes and the post keeps whatever status it
// produces.
func (s *postService) CancelSchedule(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.ActiveJobID == "" {
		return lifecycle.ErrPostNotFound
	}

	if err := s.queue.Cancel(post.ActiveJobID); err != nil && !errors.Is(err, queue.ErrJobNotFound) {
		return err
	}

	if post.Status == models.PostStatusScheduled {
		return s.posts.ClearSchedule(ctx, postID)
	}
	return nil
}

func (s *postService) PostStatus(ctx context.Context, userID, postID int64) (*transfer.PostStatus, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	results, err := s.results.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	return &transfer.PostStatus{
		PostID:  post.ID,
		Status:  post.Status,
		Results: results,
	}, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	return s.ownedPost(ctx, userID, postID)
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.posts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

// Remove deletes a post. A post is never deleted while a job references
// it: any pending job is canceled first.
func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return err
	}

	if post.ActiveJobID != "" {
		if err := s.queue.Cancel(post.ActiveJobID); err != nil && !errors.Is(err, queue.ErrJobNotFound) {
			return err
		}
	}

	return s.posts.Remove(ctx, postID)
}

func (s *postService) ownedPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	if userID == 0 || postID == 0 {
		return nil, lifecycle.ErrPostNotFound
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, lifecycle.ErrPostNotFound
	}
	return post, nil
}

func (s *postService) parsePlatforms(raw string) ([]string, error) {
	var platforms []string
	if err := json.Unmarshal([]byte(raw), &platforms); err != nil {
		err = fmt.Errorf("invalid platforms format: %w", err)
		slog.Error(err.Error())
		return nil, err
	}
	if len(platforms) == 0 {
		return nil, lifecycle.ErrEmptyPlatformList
	}
	for _, p := range platforms {
		if !s.registry.Supported(p) {
			return nil, fmt.Errorf("unsupported platform %q", p)
		}
	}
	return platforms, nil
}

func (s *postService) processFiles(ctx context.Context, tx *sql.Tx, userID, postID int64, files []*multipart.FileHeader) error {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
	}

	for i, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer fileContent.Close()

		fileBytes, err := io.ReadAll(fileContent)
		if err != nil {
			return fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		assetID, err := s.saveFile(ctx, tx, userID, fileType.MIME.Value, fileBytes)
		if err != nil {
			return fmt.Errorf("error uploading file: %w", err)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.media.Create(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media file: %w", err)
		}
	}
	return nil
}

func (s *postService) saveFile(ctx context.Context, tx *sql.Tx, userID int64, contentType string, file []byte) (int64, error) {
	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	if err := s.storage.Upload(ctx, key, file, contentType); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	asset := models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: contentType,
		FileSize: int64(len(file)),
		FileURL:  s.storage.PublicURL(key),
	}

	return s.assets.Create(ctx, tx, &asset)
}
