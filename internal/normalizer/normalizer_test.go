package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_resolver/internal/domain"
	"content_resolver/internal/utils"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

func TestNormalize_FullMapping(t *testing.T) {
	published := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	raw := &domain.RawMetadata{
		URL:         "https://www.youtube.com/watch?v=abc",
		Title:       "  Title ",
		Description: "Desc",
		Image:       "https://i.ytimg.com/vi/abc/maxres.jpg",
		Type:        domain.ContentVideo,
		PublishedAt: &published,
		Duration:    utils.Ptr(213),
	}

	c := Normalize(raw, nil, domain.SourceVideo, "https://youtu.be/abc", now)

	assert.Equal(t, "https://www.youtube.com/watch?v=abc", c.URL)
	require.NotNil(t, c.Title)
	assert.Equal(t, "Title", *c.Title)
	assert.Equal(t, "Desc", *c.Description)
	assert.Equal(t, domain.ContentVideo, c.Type)
	assert.Equal(t, "https://i.ytimg.com/vi/abc/maxres.jpg", *c.Image)
	assert.Equal(t, 213, *c.Duration)
	assert.Equal(t, published, *c.PublishedDate)
	assert.Nil(t, c.AuthorID)
}

func TestNormalize_MissingOptionalFields(t *testing.T) {
	c := Normalize(&domain.RawMetadata{}, nil, domain.SourceWeb, "https://example.com/a", now)

	assert.Equal(t, "https://example.com/a", c.URL)
	assert.Nil(t, c.Title)
	assert.Nil(t, c.Description)
	assert.Nil(t, c.Image)
	assert.Nil(t, c.Duration)
	assert.Equal(t, domain.ContentLink, c.Type)
	require.NotNil(t, c.PublishedDate)
	assert.Equal(t, now.UTC(), *c.PublishedDate)
	assert.Equal(t, time.UTC, c.PublishedDate.Location())
}

func TestNormalize_NilRaw(t *testing.T) {
	c := Normalize(nil, nil, domain.SourceFeed, "https://example.com/feed", now)
	assert.Equal(t, domain.ContentLink, c.Type)
	assert.Equal(t, "https://example.com/feed", c.URL)
}

func TestNormalize_TypeDefaults(t *testing.T) {
	tests := []struct {
		kind domain.SourceKind
		raw  domain.ContentType
		want domain.ContentType
	}{
		{domain.SourceVideo, "", domain.ContentVideo},
		{domain.SourceAudio, "", domain.ContentAudio},
		{domain.SourceShortPost, "", domain.ContentPost},
		{domain.SourceNewsletter, "", domain.ContentArticle},
		{domain.SourceFeed, "", domain.ContentLink},
		{domain.SourceWeb, "", domain.ContentLink},
		{domain.SourceWeb, domain.ContentArticle, domain.ContentArticle},
		{domain.SourceWeb, "podcast", domain.ContentLink},
		{domain.SourceKind("unknown"), "", domain.ContentLink},
	}
	for _, tt := range tests {
		c := Normalize(&domain.RawMetadata{Type: tt.raw}, nil, tt.kind, "https://example.com", now)
		assert.Equal(t, tt.want, c.Type, "kind=%s raw=%s", tt.kind, tt.raw)
		assert.True(t, c.Type.Valid())
	}
}

func TestNormalize_RejectsNegativeDurationAndRelativeImage(t *testing.T) {
	c := Normalize(&domain.RawMetadata{Duration: utils.Ptr(-1), Image: "/cover.jpg"}, nil, domain.SourceAudio, "https://example.com", now)
	assert.Nil(t, c.Duration)
	assert.Nil(t, c.Image)

	c = Normalize(&domain.RawMetadata{Duration: utils.Ptr(8640000000)}, nil, domain.SourceAudio, "https://example.com", now)
	assert.Nil(t, c.Duration, "value does not fit the duration column")

	c = Normalize(&domain.RawMetadata{Duration: utils.Ptr(0)}, nil, domain.SourceAudio, "https://example.com", now)
	require.NotNil(t, c.Duration)
	assert.Equal(t, 0, *c.Duration)
}

func TestNormalize_PostTitleFromCreator(t *testing.T) {
	creator := &domain.CreatorResult{Name: "Alice"}

	c := Normalize(&domain.RawMetadata{}, creator, domain.SourceShortPost, "https://bsky.app/profile/a/post/b", now)
	require.NotNil(t, c.Title)
	assert.Equal(t, "Post by Alice", *c.Title)

	c = Normalize(&domain.RawMetadata{}, creator, domain.SourceWeb, "https://example.com", now)
	assert.Nil(t, c.Title)
}
