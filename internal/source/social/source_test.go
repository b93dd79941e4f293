package social

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_resolver/internal/classifier"
	"content_resolver/internal/domain"
	"content_resolver/internal/source/fetch"
)

const threadJSON = `{
  "thread": {
    "$type": "app.bsky.feed.defs#threadViewPost",
    "post": {
      "uri": "at://did:plc:abc123/app.bsky.feed.post/3kxyz",
      "author": {
        "did": "did:plc:abc123",
        "handle": "alice.bsky.social",
        "displayName": "Alice",
        "avatar": "https://cdn.bsky.app/avatar.jpg"
      },
      "record": {"text": "Hello from the sky\nsecond line", "createdAt": "2024-05-01T10:00:00.000Z"},
      "embed": {
        "$type": "app.bsky.embed.images#view",
        "images": [{"thumb": "https://cdn.bsky.app/thumb.jpg", "fullsize": "https://cdn.bsky.app/full.jpg"}]
      },
      "likeCount": 7
    }
  }
}`

const oembedJSON = `{
  "url": "https://twitter.com/jack/status/20",
  "author_name": "jack",
  "author_url": "https://twitter.com/jack",
  "html": "<blockquote class=\"twitter-tweet\"><p lang=\"en\" dir=\"ltr\">just setting up my twttr</p>&mdash; jack (@jack) <a href=\"https://twitter.com/jack/status/20\">March 21, 2006</a></blockquote>",
  "provider_name": "Twitter",
  "type": "rich"
}`

func newSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	fetcher := fetch.New(fetch.Config{Timeout: time.Second, MaxAttempts: 1}, logger)
	return New(Config{BlueskyBaseURL: srv.URL, OEmbedURL: srv.URL + "/oembed"}, fetcher, logger)
}

func classify(t *testing.T, u string) classifier.Classification {
	t.Helper()
	c, err := classifier.Classify(u)
	require.NoError(t, err)
	return c
}

func TestResolve_BlueskyPost(t *testing.T) {
	src := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/app.bsky.feed.getPostThread", r.URL.Path)
		assert.Equal(t, "at://alice.bsky.social/app.bsky.feed.post/3kxyz", r.URL.Query().Get("uri"))
		assert.Equal(t, "0", r.URL.Query().Get("depth"))
		_, _ = w.Write([]byte(threadJSON))
	})

	raw, err := src.Resolve(context.Background(), classify(t, "https://bsky.app/profile/alice.bsky.social/post/3kxyz"))
	require.NoError(t, err)

	assert.Equal(t, domain.ContentPost, raw.Type)
	assert.Equal(t, "Hello from the sky", raw.Title)
	assert.Equal(t, "Hello from the sky\nsecond line", raw.Description)
	assert.Equal(t, "https://cdn.bsky.app/full.jpg", raw.Image)
	require.NotNil(t, raw.PublishedAt)
	assert.Equal(t, 2024, raw.PublishedAt.Year())
	assert.Equal(t, "7", raw.Extra["like_count"])

	require.NotNil(t, raw.APICreator)
	assert.Equal(t, "Alice", raw.APICreator.Name)
	assert.Equal(t, "did:plc:abc123", raw.APICreator.ExternalID)
	assert.Equal(t, "https://bsky.app/profile/alice.bsky.social", raw.APICreator.ProfileURL)
}

func TestResolve_BlueskyNotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "xrpc error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"NotFound","message":"Post not found"}`))
			},
		},
		{
			name: "not found post",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"thread":{"$type":"app.bsky.feed.defs#notFoundPost","notFound":true}}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource(t, tt.handler)
			_, err := src.Resolve(context.Background(), classify(t, "https://bsky.app/profile/alice.bsky.social/post/gone"))
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestResolve_BlueskyBadRequestIsUnavailable(t *testing.T) {
	src := newSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"InvalidRequest","message":"bad uri"}`))
	})

	_, err := src.Resolve(context.Background(), classify(t, "https://bsky.app/profile/alice.bsky.social/post/3kxyz"))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_XPost(t *testing.T) {
	src := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oembed", r.URL.Path)
		assert.Equal(t, "https://twitter.com/jack/status/20", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte(oembedJSON))
	})

	raw, err := src.Resolve(context.Background(), classify(t, "https://x.com/jack/status/20"))
	require.NoError(t, err)

	assert.Equal(t, "just setting up my twttr", raw.Description)
	assert.Equal(t, "just setting up my twttr", raw.Title)
	require.NotNil(t, raw.PublishedAt)
	assert.Equal(t, time.Date(2006, time.March, 21, 0, 0, 0, 0, time.UTC), *raw.PublishedAt)

	require.NotNil(t, raw.APICreator)
	assert.Equal(t, "jack", raw.APICreator.Name)
	assert.Equal(t, "jack", raw.APICreator.ExternalID)
}

func TestResolve_XDeleted(t *testing.T) {
	src := newSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := src.Resolve(context.Background(), classify(t, "https://twitter.com/jack/status/1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTitleFromText(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "word "
	}
	title := titleFromText(long)
	assert.LessOrEqual(t, len([]rune(title)), maxTitleRunes+1)
	assert.Equal(t, "", titleFromText(""))
}
