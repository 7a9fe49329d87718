package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	config "github.com/syndicateapp/syndicate/configs"
	"github.com/syndicateapp/syndicate/internal/models"
	"github.com/syndicateapp/syndicate/internal/publisher"
	"github.com/syndicateapp/syndicate/internal/repository"
	"github.com/syndicateapp/syndicate/pkg/utils"
)

// Credential is a resolved, currently-valid platform credential.
type Credential struct {
	AccessToken string
	// AccountID is the platform-side account identity (page id, business
	// account id, person URN).
	AccountID string
}

// CredentialStore supplies valid access tokens per user and platform.
// Refresh-on-expiry is the store's responsibility, not the orchestrator's.
type CredentialStore interface {
	Resolve(ctx context.Context, userID int64, platform string) (*Credential, error)
}

type CredentialService interface {
	CredentialStore
	RefreshAccount(ctx context.Context, acc *models.SocialAccount) error
}

type credentialService struct {
	cfg config.Config
	sa  repository.SocialAccountRepository
}

func NewCredentialService(cfg config.Config, sa repository.SocialAccountRepository) CredentialService {
	return &credentialService{cfg: cfg, sa: sa}
}

// Resolve loads the stored account, decrypts its token and checks expiry.
// An expired or missing credential is an auth failure: the job must not
// retry it, the user has to reconnect the account.
func (s *credentialService) Resolve(ctx context.Context, userID int64, platform string) (*Credential, error) {
	acc, err := s.sa.GetByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, publisher.Errorf(platform, publisher.KindAuth, "no connected %s account", platform)
	}

	if !acc.TokenExpiresAt.IsZero() && acc.TokenExpiresAt.Before(time.Now()) {
		return nil, publisher.Errorf(platform, publisher.KindAuth, "%s token expired at %s", platform, acc.TokenExpiresAt.Format(time.RFC3339))
	}

	token, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, publisher.NewError(platform, publisher.KindAuth, fmt.Errorf("decrypting access token: %w", err))
	}

	return &Credential{AccessToken: token, AccountID: acc.AccountID}, nil
}

// RefreshAccount renews the stored tokens for one account using the
// platform's refresh flow. Called by the cron refresh job for accounts
// whose tokens are about to expire.
func (s *credentialService) RefreshAccount(ctx context.Context, acc *models.SocialAccount) error {
	switch acc.Platform {
	case publisher.PlatformInstagram:
		return s.refreshInstagram(ctx, acc)
	case publisher.PlatformTiktok:
		return s.refreshTiktok(ctx, acc)
	case publisher.PlatformYoutube:
		return s.refreshGoogle(ctx, acc)
	default:
		// Facebook, Twitter and LinkedIn tokens are long-lived; nothing to do.
		return nil
	}
}

func (s *credentialService) refreshInstagram(ctx context.Context, acc *models.SocialAccount) error {
	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf(
		"https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=%s",
		refreshToken,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	// Instagram long-lived tokens refresh in place; the new token serves as
	// both access and refresh token.
	encrypted, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.sa.UpdateTokens(ctx, acc.ID, encrypted, encrypted, GetExpiresAt(int(result.ExpiresIn)))
}

func (s *credentialService) refreshTiktok(ctx context.Context, acc *models.SocialAccount) error {
	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	data := url.Values{}
	data.Set("client_key", s.cfg.TiktokClientKey)
	data.Set("client_secret", s.cfg.TiktokClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://open.tiktokapis.com/v2/oauth/token/", strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	encryptedAccess, err := utils.Encrypt([]byte(result.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encryptedRefresh, err := utils.Encrypt([]byte(result.RefreshToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	return s.sa.UpdateTokens(ctx, acc.ID, encryptedAccess, encryptedRefresh, GetExpiresAt(int(result.ExpiresIn)))
}

func (s *credentialService) refreshGoogle(ctx context.Context, acc *models.SocialAccount) error {
	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	conf := &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		Endpoint:     googleoauth.Endpoint,
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}
	encryptedRefresh := acc.RefreshToken
	if token.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	return s.sa.UpdateTokens(ctx, acc.ID, encryptedAccess, encryptedRefresh, token.Expiry)
}

func decodeJSON(resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusOK {
		return errors.New("unexpected status " + resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
