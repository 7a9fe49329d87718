package publisher

import (
	"context"
	"fmt"
	"net/http"
)

const instagramGraphURL = "https://graph.instagram.com/v21.0"

type InstagramPublisher struct {
	baseURL string
	client  *http.Client
}

func NewInstagramPublisher() *InstagramPublisher {
	return &InstagramPublisher{baseURL: instagramGraphURL, client: http.DefaultClient}
}

func (p *InstagramPublisher) Platform() string { return PlatformInstagram }

// Publish runs the two-step container flow: create a media container, then
// publish it. The sequence is one logical operation; a failure on the
// second call fails the whole attempt even though a container was created.
func (p *InstagramPublisher) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	if len(req.MediaURLs) == 0 {
		return "", Errorf(PlatformInstagram, KindConfig, "instagram requires at least one media url")
	}

	containerID, err := p.createContainer(ctx, req)
	if err != nil {
		return "", err
	}

	return p.publishContainer(ctx, req, containerID)
}

func (p *InstagramPublisher) createContainer(ctx context.Context, req *PublishRequest) (string, error) {
	url := fmt.Sprintf("%s/%s/media", p.baseURL, req.AccountID)

	payload := map[string]any{
		"image_url":    req.MediaURLs[0],
		"caption":      req.Caption,
		"access_token": req.AccessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, p.client, PlatformInstagram, url, nil, payload, &result); err != nil {
		return "", fmt.Errorf("creating media container: %w", err)
	}

	if result.ID == "" {
		return "", Errorf(PlatformInstagram, KindPermanent, "no container id returned")
	}
	return result.ID, nil
}

func (p *InstagramPublisher) publishContainer(ctx context.Context, req *PublishRequest, containerID string) (string, error) {
	url := fmt.Sprintf("%s/%s/media_publish", p.baseURL, req.AccountID)

	payload := map[string]any{
		"creation_id":  containerID,
		"access_token": req.AccessToken,
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, p.client, PlatformInstagram, url, nil, payload, &result); err != nil {
		return "", fmt.Errorf("publishing media container %s: %w", containerID, err)
	}

	if result.ID == "" {
		return "", Errorf(PlatformInstagram, KindPermanent, "no media id returned")
	}
	return result.ID, nil
}
