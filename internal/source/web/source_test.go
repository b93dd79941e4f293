package web

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

const structuredPage = `<!doctype html>
<html><head>
<title>Ignored document title</title>
<meta property="og:title" content="  Structured   Title ">
<meta property="og:description" content="Structured description">
<meta property="og:image" content="/images/cover.jpg">
<meta property="og:type" content="article">
<meta property="og:site_name" content="Example News">
<meta property="article:published_time" content="2024-05-01T12:30:00+02:00">
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"WebSite","name":"Example News"},
  {"@type":"NewsArticle","headline":"LD headline","author":[{"@type":"Person","name":"Jane Reporter","url":"/authors/jane"}]}
]}
</script>
</head><body>
<h1>Body heading</h1>
<p>Body paragraph that must not be used.</p>
</body></html>`

const plainPage = `<!doctype html>
<html><head></head><body>
<h1> Plain   Heading </h1>
<span class="byline">By Jane Smith</span>
<p>   </p>
<p>First real paragraph.</p>
<p>Second paragraph.</p>
</body></html>`

const videoPage = `<html><head>
<meta property="og:type" content="video.other">
<meta name="twitter:title" content="Clip">
<meta name="author" content="Studio Nine">
</head><body></body></html>`

const ldTypePage = `<html><head>
<title>Episode page</title>
<script type="application/ld+json">{"@type":"PodcastEpisode","name":"Ep 12","datePublished":"2024-02-03"}</script>
</head><body></body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(path, contentType, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", contentType)
			_, _ = w.Write([]byte(body))
		})
	}
	serve("/structured", "text/html; charset=utf-8", structuredPage)
	serve("/plain", "text/html", plainPage)
	serve("/video", "text/html", videoPage)
	serve("/episode", "text/html", ldTypePage)
	serve("/files/photo.png", "image/png", "\x89PNG")
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSource() *Source {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(fetch.New(fetch.Config{Timeout: time.Second, MaxAttempts: 1}, logger), logger)
}

func resolve(t *testing.T, rawURL string) (*domain.RawMetadata, error) {
	t.Helper()
	c, err := classifier.Classify(rawURL)
	require.NoError(t, err)
	require.Equal(t, domain.SourceWeb, c.Kind)
	return newSource().Resolve(context.Background(), c)
}

func TestResolve_StructuredTagsWin(t *testing.T) {
	srv := newServer(t)

	raw, err := resolve(t, srv.URL+"/structured")
	require.NoError(t, err)

	assert.Equal(t, "Structured Title", raw.Title)
	assert.Equal(t, "Structured description", raw.Description)
	assert.Equal(t, srv.URL+"/images/cover.jpg", raw.Image)
	assert.Equal(t, domain.ContentArticle, raw.Type)
	assert.Equal(t, "Example News", raw.SiteName)
	require.NotNil(t, raw.PublishedAt)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), *raw.PublishedAt)
	assert.NotContains(t, raw.Extra, "heuristic_fields")

	require.NotNil(t, raw.StructuredAuthor)
	assert.Equal(t, "Jane Reporter", raw.StructuredAuthor.Name)
	assert.Equal(t, srv.URL+"/authors/jane", raw.StructuredAuthor.ProfileURL)
}

func TestResolve_HeuristicFallback(t *testing.T) {
	srv := newServer(t)

	raw, err := resolve(t, srv.URL+"/plain")
	require.NoError(t, err)

	assert.Equal(t, "Plain Heading", raw.Title)
	assert.Equal(t, "First real paragraph.", raw.Description)
	assert.Equal(t, "title,description", raw.Extra["heuristic_fields"])
	assert.Empty(t, raw.Type)
	assert.Nil(t, raw.StructuredAuthor)
	assert.Contains(t, raw.Byline, "Jane Smith")
}

func TestResolve_TypeMapping(t *testing.T) {
	srv := newServer(t)

	raw, err := resolve(t, srv.URL+"/video")
	require.NoError(t, err)
	assert.Equal(t, domain.ContentVideo, raw.Type)
	assert.Equal(t, "Clip", raw.Title)
	require.NotNil(t, raw.StructuredAuthor)
	assert.Equal(t, "Studio Nine", raw.StructuredAuthor.Name)

	raw, err = resolve(t, srv.URL+"/episode")
	require.NoError(t, err)
	assert.Equal(t, domain.ContentAudio, raw.Type)
	assert.Equal(t, "Ep 12", raw.Title)
	require.NotNil(t, raw.PublishedAt)
	assert.Equal(t, 3, raw.PublishedAt.Day())
}

func TestResolve_NonHTML(t *testing.T) {
	srv := newServer(t)

	raw, err := resolve(t, srv.URL+"/files/photo.png")
	require.NoError(t, err)
	assert.Equal(t, domain.ContentImage, raw.Type)
	assert.Equal(t, "photo.png", raw.Title)
	assert.Equal(t, srv.URL+"/files/photo.png", raw.Image)
	assert.Equal(t, "image/png", raw.Extra["content_type"])
}

func TestResolve_PageMissing(t *testing.T) {
	srv := newServer(t)

	_, err := resolve(t, srv.URL+"/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPageType(t *testing.T) {
	tests := []struct {
		og, ld string
		want   domain.ContentType
	}{
		{"video.movie", "", domain.ContentVideo},
		{"music.song", "", domain.ContentAudio},
		{"article", "VideoObject", domain.ContentArticle},
		{"website", "", ""},
		{"", "BlogPosting", domain.ContentArticle},
		{"", "ImageObject", domain.ContentImage},
		{"profile", "Organization", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pageType(tt.og, tt.ld), "og=%q ld=%q", tt.og, tt.ld)
	}
}
