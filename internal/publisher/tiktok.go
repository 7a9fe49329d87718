package publisher

import (
	"context"
	"net/http"
)

const tiktokAPIURL = "https://open.tiktokapis.com/v2"

type videoPostInfo struct {
	Title                 string `json:"title"`
	PrivacyLevel          string `json:"privacy_level"`
	DisableDuet           bool   `json:"disable_duet"`
	DisableComment        bool   `json:"disable_comment"`
	DisableStitch         bool   `json:"disable_stitch"`
	VideoCoverTimestampMs int    `json:"video_cover_timestamp_ms"`
}

type videoSourceInfo struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
}

type videoInitRequest struct {
	PostInfo   videoPostInfo   `json:"post_info"`
	SourceInfo videoSourceInfo `json:"source_info"`
}

type TiktokPublisher struct {
	baseURL string
	client  *http.Client
}

func NewTiktokPublisher() *TiktokPublisher {
	return &TiktokPublisher{baseURL: tiktokAPIURL, client: http.DefaultClient}
}

func (p *TiktokPublisher) Platform() string { return PlatformTiktok }

// Publish initiates a direct video post with TikTok pulling the media from
// our storage URL.
func (p *TiktokPublisher) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	if len(req.MediaURLs) == 0 {
		return "", Errorf(PlatformTiktok, KindConfig, "tiktok requires a video url")
	}

	headers := map[string]string{
		"Authorization": "Bearer " + req.AccessToken,
	}

	payload := videoInitRequest{
		PostInfo: videoPostInfo{
			Title:                 req.Caption,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: videoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: req.MediaURLs[0],
		},
	}

	var result struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := postJSON(ctx, p.client, PlatformTiktok, p.baseURL+"/post/publish/video/init/", headers, payload, &result); err != nil {
		return "", err
	}

	if result.Data.PublishID == "" {
		return "", Errorf(PlatformTiktok, KindPermanent, "tiktok rejected the post: %s", result.Error.Message)
	}
	return result.Data.PublishID, nil
}
