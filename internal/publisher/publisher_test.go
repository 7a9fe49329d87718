package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
		{http.StatusBadRequest, KindPermanent},
		{http.StatusNotFound, KindPermanent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.code), "status %d", tt.code)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuth, KindOf(Errorf("twitter", KindAuth, "401")))
	assert.Equal(t, KindConfig, KindOf(NewError("instagram", KindConfig, assert.AnError)))
	// Unclassified errors fall back to transient so retries still happen.
	assert.Equal(t, KindTransient, KindOf(assert.AnError))
	assert.Equal(t, KindTransient, KindOf(context.DeadlineExceeded))
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(NewTwitterPublisher())

	pub, err := r.Get("twitter")
	require.NoError(t, err)
	assert.Equal(t, "twitter", pub.Platform())
	assert.True(t, r.Supported("twitter"))

	_, err = r.Get("myspace")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.False(t, r.Supported("myspace"))
}

func TestFacebookPublish(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"id": "page_123"})
	}))
	defer srv.Close()

	p := NewFacebookPublisher()
	p.baseURL = srv.URL

	id, err := p.Publish(context.Background(), &PublishRequest{
		Caption:     "hello",
		AccessToken: "tok",
		AccountID:   "page-1",
		MediaURLs:   []string{"https://cdn.example/a.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "page_123", id)
	assert.Equal(t, "/page-1/feed", gotPath)
	assert.Equal(t, "hello", gotBody["message"])
	assert.Equal(t, "tok", gotBody["access_token"])
	assert.Equal(t, "https://cdn.example/a.jpg", gotBody["link"])
}

func TestFacebookPublishAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewFacebookPublisher()
	p.baseURL = srv.URL

	_, err := p.Publish(context.Background(), &PublishRequest{Caption: "hello", AccessToken: "bad"})
	require.Error(t, err)
	assert.Equal(t, KindAuth, KindOf(err))
}

func TestFacebookPublishRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewFacebookPublisher()
	p.baseURL = srv.URL

	_, err := p.Publish(context.Background(), &PublishRequest{Caption: "hello"})
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestTwitterPublish(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/tweets", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "1789"}})
	}))
	defer srv.Close()

	p := NewTwitterPublisher()
	p.baseURL = srv.URL

	id, err := p.Publish(context.Background(), &PublishRequest{Caption: "gm", AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "1789", id)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestTwitterPublishMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{}})
	}))
	defer srv.Close()

	p := NewTwitterPublisher()
	p.baseURL = srv.URL

	_, err := p.Publish(context.Background(), &PublishRequest{Caption: "gm"})
	require.Error(t, err)
	assert.Equal(t, KindPermanent, KindOf(err))
}

func TestInstagramPublishTwoStep(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/ig-1/media":
			assert.Equal(t, "https://cdn.example/a.jpg", body["image_url"])
			json.NewEncoder(w).Encode(map[string]string{"id": "container-9"})
		case "/ig-1/media_publish":
			assert.Equal(t, "container-9", body["creation_id"])
			json.NewEncoder(w).Encode(map[string]string{"id": "media-42"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	p := NewInstagramPublisher()
	p.baseURL = srv.URL

	id, err := p.Publish(context.Background(), &PublishRequest{
		Caption:     "hello",
		AccessToken: "tok",
		AccountID:   "ig-1",
		MediaURLs:   []string{"https://cdn.example/a.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "media-42", id)
	assert.Equal(t, []string{"/ig-1/media", "/ig-1/media_publish"}, paths)
}

func TestInstagramPublishFailsAfterContainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ig-1/media" {
			json.NewEncoder(w).Encode(map[string]string{"id": "container-9"})
			return
		}
		http.Error(w, "media not ready", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewInstagramPublisher()
	p.baseURL = srv.URL

	// The container was created, but the attempt as a whole fails.
	_, err := p.Publish(context.Background(), &PublishRequest{
		Caption:   "hello",
		AccountID: "ig-1",
		MediaURLs: []string{"https://cdn.example/a.jpg"},
	})
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestInstagramPublishRequiresMedia(t *testing.T) {
	p := NewInstagramPublisher()

	_, err := p.Publish(context.Background(), &PublishRequest{Caption: "hello", AccountID: "ig-1"})
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestLinkedinPublish(t *testing.T) {
	var gotHeaders http.Header
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "/ugcPosts", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"id": "urn:li:share:55"})
	}))
	defer srv.Close()

	p := NewLinkedinPublisher()
	p.baseURL = srv.URL

	id, err := p.Publish(context.Background(), &PublishRequest{
		Caption:     "hiring",
		AccessToken: "tok",
		AccountID:   "urn:li:person:AbC123",
	})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:55", id)
	assert.Equal(t, "Bearer tok", gotHeaders.Get("Authorization"))
	assert.Equal(t, "2.0.0", gotHeaders.Get("X-Restli-Protocol-Version"))
	assert.Equal(t, "urn:li:person:AbC123", gotBody["author"])
}

func TestLinkedinPublishRequiresAccount(t *testing.T) {
	p := NewLinkedinPublisher()

	_, err := p.Publish(context.Background(), &PublishRequest{Caption: "hiring", AccessToken: "tok"})
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestTiktokPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/post/publish/video/init/", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		source := body["source_info"].(map[string]any)
		assert.Equal(t, "PULL_FROM_URL", source["source"])
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"publish_id": "v09.123"}})
	}))
	defer srv.Close()

	p := NewTiktokPublisher()
	p.baseURL = srv.URL

	id, err := p.Publish(context.Background(), &PublishRequest{
		Caption:     "dance",
		AccessToken: "tok",
		MediaURLs:   []string{"https://cdn.example/v.mp4"},
	})
	require.NoError(t, err)
	assert.Equal(t, "v09.123", id)
}
