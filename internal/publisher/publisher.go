package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PublishTimeout bounds every adapter attempt. A call that outlives it is
// treated as a transient failure.
const PublishTimeout = 30 * time.Second

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
	PlatformLinkedin  = "linkedin"
	PlatformTiktok    = "tiktok"
	PlatformYoutube   = "youtube"
)

// PublishRequest carries everything an adapter needs for one attempt. The
// caller validates content constraints; the adapter only talks to the
// platform.
type PublishRequest struct {
	PostID      int64
	Caption     string
	Title       string
	AccessToken string
	// AccountID is the platform-side identity to publish as (page id,
	// Instagram business account id, LinkedIn person URN).
	AccountID string
	MediaURLs []string
}

// Publisher is the uniform adapter contract: one logical publish per call,
// returning the platform-assigned post id.
type Publisher interface {
	Platform() string
	Publish(ctx context.Context, req *PublishRequest) (string, error)
}

// Registry dispatches by platform name. An unknown platform is a
// configuration error, not a retryable fault.
type Registry map[string]Publisher

func NewRegistry(pubs ...Publisher) Registry {
	r := make(Registry, len(pubs))
	for _, p := range pubs {
		r[p.Platform()] = p
	}
	return r
}

func (r Registry) Get(platform string) (Publisher, error) {
	p, ok := r[platform]
	if !ok {
		return nil, Errorf(platform, KindConfig, "unsupported platform %q", platform)
	}
	return p, nil
}

func (r Registry) Supported(platform string) bool {
	_, ok := r[platform]
	return ok
}

// postJSON issues a JSON POST and decodes the reply into out, classifying
// HTTP failures into the adapter error taxonomy.
func postJSON(ctx context.Context, client *http.Client, platform, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return NewError(platform, KindPermanent, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return NewError(platform, KindPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return NewError(platform, KindTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewError(platform, KindTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Errorf(platform, classifyStatus(resp.StatusCode),
			"unexpected status %d: %s", resp.StatusCode, truncate(respBody, 512))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return NewError(platform, KindTransient, fmt.Errorf("decoding response: %w", err))
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
