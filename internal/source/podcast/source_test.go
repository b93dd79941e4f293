package podcast

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

const lookupJSON = `{
  "resultCount": 2,
  "results": [
    {
      "wrapperType": "track",
      "kind": "podcast",
      "collectionId": 1200361736,
      "artistId": 121664449,
      "artistName": "The New York Times",
      "collectionName": "The Daily",
      "feedUrl": "https://feeds.simplecast.com/54nAGcIl",
      "artworkUrl600": "https://is1.mzstatic.com/show600.jpg",
      "collectionViewUrl": "https://podcasts.apple.com/us/podcast/the-daily/id1200361736",
      "artistViewUrl": "https://podcasts.apple.com/us/artist/the-new-york-times/121664449",
      "releaseDate": "2024-05-01T09:45:00Z",
      "primaryGenreName": "Daily News"
    },
    {
      "wrapperType": "podcastEpisode",
      "kind": "podcast-episode",
      "trackId": 1000654321000,
      "trackName": "A Big Story",
      "description": "Today on the show.",
      "releaseDate": "2024-04-30T09:45:00Z",
      "trackTimeMillis": 1725000,
      "artworkUrl160": "https://is1.mzstatic.com/ep160.jpg",
      "trackViewUrl": "https://podcasts.apple.com/us/podcast/a-big-story/id1200361736?i=1000654321000",
      "episodeUrl": "https://dts.podtrac.com/ep.mp3"
    }
  ]
}`

func newSource(t *testing.T, body string) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup", r.URL.Path)
		assert.Equal(t, "1200361736", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	fetcher := fetch.New(fetch.Config{Timeout: time.Second, MaxAttempts: 1}, logger)
	return New(Config{BaseURL: srv.URL}, fetcher, logger)
}

func classify(t *testing.T, u string) classifier.Classification {
	t.Helper()
	c, err := classifier.Classify(u)
	require.NoError(t, err)
	return c
}

func TestResolve_Episode(t *testing.T) {
	src := newSource(t, lookupJSON)

	raw, err := src.Resolve(context.Background(), classify(t, "https://podcasts.apple.com/us/podcast/the-daily/id1200361736?i=1000654321000"))
	require.NoError(t, err)

	assert.Equal(t, domain.ContentAudio, raw.Type)
	assert.Equal(t, "A Big Story", raw.Title)
	assert.Equal(t, "Today on the show.", raw.Description)
	assert.Equal(t, "https://is1.mzstatic.com/ep160.jpg", raw.Image)
	require.NotNil(t, raw.Duration)
	assert.Equal(t, 1725, *raw.Duration)
	require.NotNil(t, raw.PublishedAt)
	assert.Equal(t, 30, raw.PublishedAt.Day())
	assert.Equal(t, "https://dts.podtrac.com/ep.mp3", raw.Extra["audio_url"])

	require.NotNil(t, raw.APICreator)
	assert.Equal(t, "The New York Times", raw.APICreator.Name)
	assert.Equal(t, "artist:121664449", raw.APICreator.ExternalID)
}

func TestResolve_Show(t *testing.T) {
	src := newSource(t, lookupJSON)

	raw, err := src.Resolve(context.Background(), classify(t, "https://podcasts.apple.com/us/podcast/the-daily/id1200361736"))
	require.NoError(t, err)

	assert.Equal(t, "The Daily", raw.Title)
	assert.Empty(t, raw.Description)
	assert.Nil(t, raw.Duration)
	assert.Equal(t, "https://podcasts.apple.com/us/podcast/the-daily/id1200361736", raw.URL)
	assert.Equal(t, "https://feeds.simplecast.com/54nAGcIl", raw.Extra["feed_url"])
}

func TestResolve_EpisodeMissing(t *testing.T) {
	src := newSource(t, lookupJSON)

	_, err := src.Resolve(context.Background(), classify(t, "https://podcasts.apple.com/us/podcast/the-daily/id1200361736?i=42"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_PodcastMissing(t *testing.T) {
	src := newSource(t, `{"resultCount": 0, "results": []}`)

	_, err := src.Resolve(context.Background(), classify(t, "https://podcasts.apple.com/us/podcast/the-daily/id1200361736"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
