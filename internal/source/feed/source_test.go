package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_resolver/internal/classifier"
	"content_resolver/internal/domain"
	"content_resolver/internal/source/fetch"
)

type mapFetcher struct {
	docs      map[string]string
	requested []string
}

func (f *mapFetcher) GetDocument(_ context.Context, rawURL string) (*fetch.Document, error) {
	f.requested = append(f.requested, rawURL)
	body, ok := f.docs[rawURL]
	if !ok {
		return nil, fmt.Errorf("%s: %w", rawURL, domain.ErrNotFound)
	}
	return &fetch.Document{URL: rawURL, ContentType: "application/rss+xml", Body: []byte(body)}, nil
}

const substackFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Platformer</title>
    <link>https://platformer.substack.com</link>
    <description>Tech and democracy</description>
    <item>
      <title>Newer post</title>
      <link>https://platformer.substack.com/p/newer-post</link>
      <description>Newer</description>
      <pubDate>Thu, 02 May 2024 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>The big story</title>
      <link>https://platformer.substack.com/p/the-big-story</link>
      <description><![CDATA[<p>What <b>happened</b> today</p>]]></description>
      <dc:creator>Casey Newton</dc:creator>
      <pubDate>Wed, 01 May 2024 10:00:00 GMT</pubDate>
      <enclosure url="https://cdn.substack.com/cover.jpg" length="0" type="image/jpeg"/>
    </item>
  </channel>
</rss>`

const podcastFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
  <channel>
    <title>Example Cast</title>
    <link>https://example.com/cast</link>
    <description>A show</description>
    <itunes:author>Example Media</itunes:author>
    <image><url>https://example.com/cast.png</url></image>
    <item>
      <title>Episode 1</title>
      <link>https://example.com/cast/1</link>
      <pubDate>Mon, 01 Jan 2024 08:00:00 GMT</pubDate>
      <itunes:duration>1:02:03</itunes:duration>
      <enclosure url="https://example.com/cast/1.mp3" length="123" type="audio/mpeg"/>
    </item>
    <item>
      <title>Episode 2</title>
      <link>https://example.com/cast/2</link>
      <pubDate>Mon, 08 Jan 2024 08:00:00 GMT</pubDate>
      <itunes:duration>25:30</itunes:duration>
      <enclosure url="https://example.com/cast/2.mp3" length="123" type="audio/mpeg"/>
    </item>
  </channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Blog</title>
  <link href="https://blog.example.org/"/>
  <updated>2024-03-01T00:00:00Z</updated>
  <author><name>Jane Doe</name></author>
  <id>urn:uuid:1</id>
  <entry>
    <title>Entry without author</title>
    <link href="https://blog.example.org/entry"/>
    <id>urn:uuid:2</id>
    <updated>2024-03-01T00:00:00Z</updated>
  </entry>
</feed>`

const emptyFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Quiet</title><link>https://quiet.example.com</link><description>Nothing yet</description></channel></rss>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func classify(t *testing.T, u string) classifier.Classification {
	t.Helper()
	c, err := classifier.Classify(u)
	require.NoError(t, err)
	return c
}

func TestNewsletter_MatchesEntry(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{"https://platformer.substack.com/feed": substackFeed}}
	src := NewNewsletter(fetcher, testLogger())

	raw, err := src.Resolve(context.Background(), classify(t, "https://platformer.substack.com/p/the-big-story/?utm_source=share"))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://platformer.substack.com/feed"}, fetcher.requested)
	assert.Equal(t, domain.SourceNewsletter, raw.Kind)
	assert.Equal(t, domain.ContentArticle, raw.Type)
	assert.Equal(t, "The big story", raw.Title)
	assert.Equal(t, "What happened today", raw.Description)
	assert.Equal(t, "https://cdn.substack.com/cover.jpg", raw.Image)
	assert.Equal(t, "https://platformer.substack.com/p/the-big-story", raw.URL)
	require.NotNil(t, raw.PublishedAt)
	assert.Equal(t, 1, raw.PublishedAt.Day())

	require.NotNil(t, raw.StructuredAuthor)
	assert.Equal(t, "Casey Newton", raw.StructuredAuthor.Name)
	assert.False(t, raw.StructuredAuthor.FeedLevel)
}

func TestNewsletter_EntryMissing(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{"https://platformer.substack.com/feed": substackFeed}}
	src := NewNewsletter(fetcher, testLogger())

	_, err := src.Resolve(context.Background(), classify(t, "https://platformer.substack.com/p/deleted"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewsletter_ButtondownFeedURL(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{}}
	src := NewNewsletter(fetcher, testLogger())

	_, err := src.Resolve(context.Background(), classify(t, "https://buttondown.email/jane/archive/issue-3/"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, []string{"https://buttondown.com/jane/rss"}, fetcher.requested)
}

func TestFeed_NewestEntryWithDuration(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{"https://example.com/cast/feed.xml": podcastFeed}}
	src := NewFeed(fetcher, testLogger())

	raw, err := src.Resolve(context.Background(), classify(t, "https://example.com/cast/feed.xml"))
	require.NoError(t, err)

	assert.Equal(t, "Episode 2", raw.Title)
	assert.Equal(t, "https://example.com/cast/2", raw.URL)
	assert.Equal(t, domain.ContentAudio, raw.Type)
	assert.Equal(t, "A show", raw.Description)
	assert.Equal(t, "https://example.com/cast.png", raw.Image)
	assert.Equal(t, "https://example.com/cast/2.mp3", raw.Extra["enclosure_url"])
	require.NotNil(t, raw.Duration)
	assert.Equal(t, 1530, *raw.Duration)

	require.NotNil(t, raw.StructuredAuthor)
	assert.Equal(t, "Example Media", raw.StructuredAuthor.Name)
}

func TestFeed_FallsBackToFeedLevelAuthor(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{"https://blog.example.org/atom.xml": atomFeed}}
	src := NewFeed(fetcher, testLogger())

	raw, err := src.Resolve(context.Background(), classify(t, "https://blog.example.org/atom.xml"))
	require.NoError(t, err)

	assert.Equal(t, "Entry without author", raw.Title)
	assert.Nil(t, raw.Duration)
	require.NotNil(t, raw.PublishedAt)

	require.NotNil(t, raw.StructuredAuthor)
	assert.Equal(t, "Jane Doe", raw.StructuredAuthor.Name)
}

func TestFeed_MalformedDurationStaysUnset(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"><channel><title>Cast</title>
<item><title>Ep</title><link>https://example.com/ep</link><itunes:duration>soon</itunes:duration></item>
</channel></rss>`
	fetcher := &mapFetcher{docs: map[string]string{"https://example.com/podcast.rss": body}}
	src := NewFeed(fetcher, testLogger())

	raw, err := src.Resolve(context.Background(), classify(t, "https://example.com/podcast.rss"))
	require.NoError(t, err)
	assert.Equal(t, "Ep", raw.Title)
	assert.Nil(t, raw.Duration)
}

func TestFeed_NoEntries(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{"https://quiet.example.com/rss": emptyFeed}}
	src := NewFeed(fetcher, testLogger())

	raw, err := src.Resolve(context.Background(), classify(t, "https://quiet.example.com/rss"))
	require.NoError(t, err)

	assert.Equal(t, "Quiet", raw.Title)
	assert.Equal(t, "Nothing yet", raw.Description)
	assert.Equal(t, "https://quiet.example.com", raw.URL)
	assert.Empty(t, raw.Type)
	assert.Nil(t, raw.StructuredAuthor)
}

func TestFeed_NotAFeed(t *testing.T) {
	fetcher := &mapFetcher{docs: map[string]string{"https://example.com/sitemap.xml": "just some text"}}
	src := NewFeed(fetcher, testLogger())

	_, err := src.Resolve(context.Background(), classify(t, "https://example.com/sitemap.xml"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNormalizeLink(t *testing.T) {
	assert.Equal(t, normalizeLink("https://www.Example.com/p/a/?x=1#y"), normalizeLink("http://example.com/p/a"))
	assert.NotEqual(t, normalizeLink("https://example.com/p/a"), normalizeLink("https://example.com/p/b"))
	assert.Empty(t, normalizeLink("not a url"))
}
