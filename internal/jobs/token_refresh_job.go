package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/syndicateapp/syndicate/internal/models"
	"github.com/syndicateapp/syndicate/internal/repository"
	"github.com/syndicateapp/syndicate/internal/service"
)

// TokenRefreshJob renews platform tokens shortly before they expire so the
// credential store can always hand the orchestrator a valid token.
type TokenRefreshJob struct {
	sr    repository.SocialAccountRepository
	creds service.CredentialService
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, creds service.CredentialService) *TokenRefreshJob {
	return &TokenRefreshJob{sr: sr, creds: creds}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := j.sr.ListExpiringBetween(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.creds.RefreshAccount(ctx, acc); err != nil {
				slog.Info("unable to refresh tokens", "platform", acc.Platform, "account_id", acc.ID, "error", err)
			}
		}(acc)
	}

	wg.Wait()
}
