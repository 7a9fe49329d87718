package publisher

import (
	"context"
	"net/http"
)

const twitterAPIURL = "https://api.twitter.com/2"

type TwitterPublisher struct {
	baseURL string
	client  *http.Client
}

func NewTwitterPublisher() *TwitterPublisher {
	return &TwitterPublisher{baseURL: twitterAPIURL, client: http.DefaultClient}
}

func (p *TwitterPublisher) Platform() string { return PlatformTwitter }

func (p *TwitterPublisher) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + req.AccessToken,
	}

	payload := map[string]any{
		"text": req.Caption,
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := postJSON(ctx, p.client, PlatformTwitter, p.baseURL+"/tweets", headers, payload, &result); err != nil {
		return "", err
	}

	if result.Data.ID == "" {
		return "", Errorf(PlatformTwitter, KindPermanent, "no tweet id returned")
	}
	return result.Data.ID, nil
}
