package models

import "time"

type Post struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	Caption     string     `db:"caption" json:"caption"`
	Title       string     `db:"title" json:"title"`
	Platforms   []string   `db:"platforms" json:"platforms"`
	Status      string     `db:"status" json:"status"`
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	FailedAt    *time.Time `db:"failed_at" json:"failed_at,omitempty"`
	ActiveJobID string     `db:"active_job_id" json:"active_job_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type MediaAsset struct {
	ID       int64     `db:"id"`
	UserID   int64     `db:"user_id"`
	FileName string    `db:"file_name"`
	FileType string    `db:"file_type"`
	FileSize int64     `db:"file_size"`
	FileURL  string    `db:"file_url"`
	CreatedAt time.Time `db:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}

const (
	PostStatusDraft              = "draft"
	PostStatusScheduled          = "scheduled"
	PostStatusPublishing         = "publishing"
	PostStatusPublished          = "published"
	PostStatusPartiallyPublished = "partially_published"
	PostStatusFailed             = "failed"
)

// IsTerminal reports whether a publish cycle is finished for this status.
// A new edit+reschedule starts a fresh cycle from scheduled.
func IsTerminal(status string) bool {
	switch status {
	case PostStatusPublished, PostStatusPartiallyPublished, PostStatusFailed:
		return true
	}
	return false
}
