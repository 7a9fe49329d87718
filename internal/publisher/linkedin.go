package publisher

import (
	"context"
	"net/http"
)

const linkedinAPIURL = "https://api.linkedin.com/v2"

type LinkedinPublisher struct {
	baseURL string
	client  *http.Client
}

func NewLinkedinPublisher() *LinkedinPublisher {
	return &LinkedinPublisher{baseURL: linkedinAPIURL, client: http.DefaultClient}
}

func (p *LinkedinPublisher) Platform() string { return PlatformLinkedin }

func (p *LinkedinPublisher) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	if req.AccountID == "" {
		return "", Errorf(PlatformLinkedin, KindConfig, "missing author urn")
	}

	headers := map[string]string{
		"Authorization":             "Bearer " + req.AccessToken,
		"X-Restli-Protocol-Version": "2.0.0",
	}

	payload := map[string]any{
		"author":         req.AccountID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary": map[string]any{
					"text": req.Caption,
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, p.client, PlatformLinkedin, p.baseURL+"/ugcPosts", headers, payload, &result); err != nil {
		return "", err
	}

	if result.ID == "" {
		return "", Errorf(PlatformLinkedin, KindPermanent, "no share id returned")
	}
	return result.ID, nil
}
