package transfer

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/syndicateapp/syndicate/internal/models"
)

type PostCreation struct {
	Caption       string
	Title         string
	ScheduledTime string
	Platforms     string
}

type ScheduleRequest struct {
	PostID        int64  `json:"post_id"`
	ScheduledTime string `json:"scheduled_time"`
}

type PublishNowRequest struct {
	PostID int64 `json:"post_id"`
}

type CancelRequest struct {
	PostID int64 `json:"post_id"`
}

type PostStatus struct {
	PostID  int64                   `json:"post_id"`
	Status  string                  `json:"status"`
	Results []*models.PublishResult `json:"results"`
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
