// Package social resolves short-form posts. Bluesky posts go through the
// public AppView; X posts through the publish oEmbed endpoint, which needs
// no credentials.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"content_resolver/internal/classifier"
	"content_resolver/internal/domain"
	"content_resolver/internal/source/fetch"
)

const (
	SourceID             = "social"
	DefaultBlueskyURL    = "https://public.api.bsky.app"
	DefaultOEmbedURL     = "https://publish.twitter.com/oembed"
	maxTitleRunes        = 100
	blueskyNotFoundError = "NotFound"
)

type Config struct {
	BlueskyBaseURL string
	OEmbedURL      string
}

type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, query map[string]string, out any) error
}

type Source struct {
	fetcher    Fetcher
	blueskyURL string
	oembedURL  string
	logger     *slog.Logger
}

func New(cfg Config, fetcher Fetcher, logger *slog.Logger) *Source {
	if cfg.BlueskyBaseURL == "" {
		cfg.BlueskyBaseURL = DefaultBlueskyURL
	}
	if cfg.OEmbedURL == "" {
		cfg.OEmbedURL = DefaultOEmbedURL
	}
	return &Source{
		fetcher:    fetcher,
		blueskyURL: strings.TrimSuffix(cfg.BlueskyBaseURL, "/"),
		oembedURL:  cfg.OEmbedURL,
		logger:     logger.With("source", SourceID),
	}
}

func (s *Source) Kind() domain.SourceKind {
	return domain.SourceShortPost
}

func (s *Source) Resolve(ctx context.Context, target classifier.Classification) (*domain.RawMetadata, error) {
	switch target.Platform {
	case classifier.PlatformBluesky:
		return s.resolveBluesky(ctx, target)
	case classifier.PlatformX:
		return s.resolveX(ctx, target)
	default:
		return nil, fmt.Errorf("short post platform %q: %w", target.Platform, domain.ErrUnrecognizedURL)
	}
}

func (s *Source) resolveBluesky(ctx context.Context, target classifier.Classification) (*domain.RawMetadata, error) {
	uri := fmt.Sprintf("at://%s/app.bsky.feed.post/%s", target.Actor, target.ID)

	var resp threadResponse
	err := s.fetcher.GetJSON(ctx, s.blueskyURL+"/xrpc/app.bsky.feed.getPostThread", map[string]string{
		"uri":   uri,
		"depth": "0",
	}, &resp)
	if err != nil {
		if isXRPCNotFound(err) {
			return nil, fmt.Errorf("bluesky post %s: %w", uri, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get post thread %s: %w", uri, err)
	}

	if resp.Thread.NotFound || resp.Thread.Blocked || resp.Thread.Post == nil {
		return nil, fmt.Errorf("bluesky post %s: %w", uri, domain.ErrNotFound)
	}

	post := resp.Thread.Post
	text := strings.TrimSpace(post.Record.Text)
	raw := &domain.RawMetadata{
		Kind:        domain.SourceShortPost,
		URL:         fmt.Sprintf("https://bsky.app/profile/%s/post/%s", firstNonEmpty(post.Author.Handle, target.Actor), target.ID),
		Title:       titleFromText(text),
		Description: text,
		Image:       post.Embed.image(),
		Type:        domain.ContentPost,
		SiteName:    "Bluesky",
		Extra: map[string]string{
			"at_uri":       post.URI,
			"like_count":   strconv.FormatInt(post.LikeCount, 10),
			"repost_count": strconv.FormatInt(post.RepostCount, 10),
			"reply_count":  strconv.FormatInt(post.ReplyCount, 10),
		},
	}
	if !post.Record.CreatedAt.IsZero() {
		published := post.Record.CreatedAt
		raw.PublishedAt = &published
	}

	if post.Author.DID != "" || post.Author.Handle != "" {
		raw.APICreator = &domain.CreatorCandidate{
			Name:        firstNonEmpty(post.Author.DisplayName, post.Author.Handle),
			ExternalID:  firstNonEmpty(post.Author.DID, post.Author.Handle),
			ProfileURL:  "https://bsky.app/profile/" + firstNonEmpty(post.Author.Handle, post.Author.DID),
			Image:       post.Author.Avatar,
			Description: post.Author.Description,
		}
	}

	return raw, nil
}

// isXRPCNotFound recognises the AppView's 400 response for deleted or
// unknown posts.
func isXRPCNotFound(err error) bool {
	var statusErr *fetch.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 400 {
		return false
	}
	var body xrpcError
	if json.Unmarshal(statusErr.Body, &body) != nil {
		return false
	}
	return body.Error == blueskyNotFoundError
}

func (s *Source) resolveX(ctx context.Context, target classifier.Classification) (*domain.RawMetadata, error) {
	postURL := fmt.Sprintf("https://twitter.com/%s/status/%s", target.Actor, target.ID)

	var resp oembedResponse
	err := s.fetcher.GetJSON(ctx, s.oembedURL, map[string]string{
		"url":         postURL,
		"omit_script": "true",
		"dnt":         "true",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("oembed %s: %w", postURL, err)
	}

	text, published, err := parseEmbedHTML(resp.HTML)
	if err != nil {
		s.logger.Warn("failed to parse oembed html", "post_id", target.ID, "error", err)
	}

	raw := &domain.RawMetadata{
		Kind:        domain.SourceShortPost,
		URL:         firstNonEmpty(resp.URL, postURL),
		Title:       titleFromText(text),
		Description: text,
		Type:        domain.ContentPost,
		SiteName:    "X",
		PublishedAt: published,
		Extra:       map[string]string{"post_id": target.ID},
	}

	if name := strings.TrimSpace(resp.AuthorName); name != "" {
		raw.APICreator = &domain.CreatorCandidate{
			Name:       name,
			ExternalID: handleFromProfile(resp.AuthorURL, target.Actor),
			ProfileURL: resp.AuthorURL,
		}
	}

	return raw, nil
}

// parseEmbedHTML extracts the post text and the date link from the
// blockquote markup returned by oEmbed.
func parseEmbedHTML(html string) (string, *time.Time, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, fmt.Errorf("parse html: %w", err)
	}

	quote := doc.Find("blockquote").First()
	text := strings.TrimSpace(quote.Find("p").First().Text())

	var published *time.Time
	if dateText := strings.TrimSpace(quote.Children().Filter("a").Last().Text()); dateText != "" {
		if t, err := time.Parse("January 2, 2006", dateText); err == nil {
			published = &t
		}
	}
	return text, published, nil
}

// handleFromProfile returns the lower-cased account handle, which is stable
// across display name changes.
func handleFromProfile(profileURL, fallback string) string {
	if u, err := url.Parse(profileURL); err == nil {
		if handle := strings.Trim(u.Path, "/"); handle != "" && !strings.Contains(handle, "/") {
			return strings.ToLower(handle)
		}
	}
	return strings.ToLower(fallback)
}

func titleFromText(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxTitleRunes {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:maxTitleRunes])) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
