package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type YoutubePublisher struct {
	client *http.Client
}

func NewYoutubePublisher() *YoutubePublisher {
	return &YoutubePublisher{client: http.DefaultClient}
}

func (p *YoutubePublisher) Platform() string { return PlatformYoutube }

// Publish uploads the post's video to YouTube. The video bytes are streamed
// from our storage URL straight into the resumable upload.
func (p *YoutubePublisher) Publish(ctx context.Context, req *PublishRequest) (string, error) {
	if len(req.MediaURLs) == 0 {
		return "", Errorf(PlatformYoutube, KindConfig, "youtube requires a video url")
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: req.AccessToken})
	service, err := youtube.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return "", NewError(PlatformYoutube, KindTransient, err)
	}

	media, err := p.fetchMedia(ctx, req.MediaURLs[0])
	if err != nil {
		return "", err
	}
	defer media.Body.Close()

	title := req.Title
	if title == "" {
		title = req.Caption
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: req.Caption,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	uploaded, err := call.Media(media.Body).Context(ctx).Do()
	if err != nil {
		return "", classifyGoogleError(err)
	}

	return uploaded.Id, nil
}

func (p *YoutubePublisher) fetchMedia(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewError(PlatformYoutube, KindPermanent, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, NewError(PlatformYoutube, KindTransient, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, Errorf(PlatformYoutube, KindTransient, "fetching media: status %d", resp.StatusCode)
	}
	return resp, nil
}

func classifyGoogleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return NewError(PlatformYoutube, classifyStatus(gerr.Code), fmt.Errorf("youtube upload: %w", err))
	}
	return NewError(PlatformYoutube, KindTransient, err)
}
