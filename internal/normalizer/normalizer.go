// Package normalizer turns resolver output into the canonical Content row.
package normalizer

import (
	"net/url"
	"strings"
	"time"

	"content_resolver/internal/domain"
	"content_resolver/internal/duration"
	"content_resolver/internal/utils"
)

// defaultTypes is used when the resolver supplies no valid type.
var defaultTypes = map[domain.SourceKind]domain.ContentType{
	domain.SourceVideo:      domain.ContentVideo,
	domain.SourceAudio:      domain.ContentAudio,
	domain.SourceShortPost:  domain.ContentPost,
	domain.SourceNewsletter: domain.ContentArticle,
	domain.SourceFeed:       domain.ContentLink,
	domain.SourceWeb:        domain.ContentLink,
}

// Normalize never fails. IDs and timestamps other than PublishedDate are
// left for the store; AuthorID and ServiceID are set by the caller once
// those rows exist.
//
//	Content field   RawMetadata source          when absent
//	URL             raw.URL, else requestURL    -
//	Title           raw.Title                   nil ("Post by <creator>" for posts)
//	Description     raw.Description             nil
//	Type            raw.Type if valid           per kind default, else link
//	Image           raw.Image (absolute URL)    nil
//	Duration        raw.Duration if storable    nil
//	PublishedDate   raw.PublishedAt (UTC)       now (UTC)
func Normalize(raw *domain.RawMetadata, creator *domain.CreatorResult, kind domain.SourceKind, requestURL string, now time.Time) domain.Content {
	if raw == nil {
		raw = &domain.RawMetadata{}
	}

	c := domain.Content{
		URL:         firstNonEmpty(raw.URL, requestURL),
		Title:       optional(raw.Title),
		Description: optional(raw.Description),
		Type:        contentType(raw.Type, kind),
		Image:       imageURL(raw.Image),
	}

	if c.Title == nil && kind == domain.SourceShortPost && creator != nil {
		c.Title = optional("Post by " + creator.Name)
	}

	if raw.Duration != nil && *raw.Duration >= 0 && *raw.Duration <= duration.MaxSeconds {
		c.Duration = utils.Ptr(*raw.Duration)
	}

	published := now.UTC()
	if raw.PublishedAt != nil && !raw.PublishedAt.IsZero() {
		published = raw.PublishedAt.UTC()
	}
	c.PublishedDate = utils.Ptr(published)

	return c
}

func contentType(t domain.ContentType, kind domain.SourceKind) domain.ContentType {
	if t.Valid() {
		return t
	}
	if d, ok := defaultTypes[kind]; ok {
		return d
	}
	return domain.ContentLink
}

// imageURL drops values that are not absolute http(s) URLs.
func imageURL(s string) *string {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	return &s
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
