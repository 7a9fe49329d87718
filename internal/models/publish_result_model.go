package models

import "time"

// PublishResult is the outcome of one platform attempt within a job
// execution. Immutable once recorded.
type PublishResult struct {
	ID             int64     `db:"id" json:"id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	JobID          string    `db:"job_id" json:"job_id"`
	Platform       string    `db:"platform" json:"platform"`
	Success        bool      `db:"success" json:"success"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id,omitempty"`
	ErrorKind      string    `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage   string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
