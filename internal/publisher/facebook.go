package publisher

import (
	"context"
	"fmt"
	"net/http"
)

const facebookGraphURL = "https://graph.facebook.com/v18.0"

type FacebookPublisher struct {
	baseURL string
	client  *http.Client
}

func NewFacebookPublisher() *FacebookPublisher {
	return &FacebookPublisher{baseURL: facebookGraphURL, client: http.DefaultClient}
}

func (p *FacebookPublisher) Platform() string { return PlatformFacebook }

// Publish posts to the page feed when an account id is present, otherwise
// to the user's own feed.
func (p *FacebookPublisher) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	target := "me"
	if req.AccountID != "" {
		target = req.AccountID
	}
	url := fmt.Sprintf("%s/%s/feed", p.baseURL, target)

	payload := map[string]any{
		"message":      req.Caption,
		"access_token": req.AccessToken,
	}
	if len(req.MediaURLs) > 0 {
		payload["link"] = req.MediaURLs[0]
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, p.client, PlatformFacebook, url, nil, payload, &result); err != nil {
		return "", err
	}

	if result.ID == "" {
		return "", Errorf(PlatformFacebook, KindPermanent, "no post id returned")
	}
	return result.ID, nil
}
