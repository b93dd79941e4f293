// Package feed resolves RSS, Atom and JSON feeds. The same parser serves two
// source kinds: generic feeds, where the submitted URL is the feed itself,
// and newsletters, where the feed is derived from the post URL and the
// matching entry is picked out of it.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"content_resolver/internal/classifier"
	"content_resolver/internal/domain"
	"content_resolver/internal/duration"
	"content_resolver/internal/source/fetch"
)

const SourceID = "feed"

type Fetcher interface {
	GetDocument(ctx context.Context, rawURL string) (*fetch.Document, error)
}

type Source struct {
	kind    domain.SourceKind
	fetcher Fetcher
	parser  *gofeed.Parser
	logger  *slog.Logger
}

// NewFeed returns the resolver for URLs that point at a feed document.
func NewFeed(fetcher Fetcher, logger *slog.Logger) *Source {
	return newSource(domain.SourceFeed, fetcher, logger)
}

// NewNewsletter returns the resolver for hosted newsletter posts.
func NewNewsletter(fetcher Fetcher, logger *slog.Logger) *Source {
	return newSource(domain.SourceNewsletter, fetcher, logger)
}

func newSource(kind domain.SourceKind, fetcher Fetcher, logger *slog.Logger) *Source {
	return &Source{
		kind:    kind,
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		logger:  logger.With("source", SourceID, "kind", string(kind)),
	}
}

func (s *Source) Kind() domain.SourceKind {
	return s.kind
}

func (s *Source) Resolve(ctx context.Context, target classifier.Classification) (*domain.RawMetadata, error) {
	feedURL := target.URL
	if s.kind == domain.SourceNewsletter {
		var err error
		if feedURL, err = newsletterFeedURL(target); err != nil {
			return nil, err
		}
	}

	feed, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var item *gofeed.Item
	if s.kind == domain.SourceNewsletter {
		item = matchEntry(feed.Items, target.URL)
		if item == nil {
			return nil, fmt.Errorf("entry %s in %s: %w", target.URL, feedURL, domain.ErrNotFound)
		}
	} else {
		item = newestEntry(feed.Items)
	}

	raw := s.transform(feed, item, feedURL)
	s.logger.Debug("feed resolved", "feed_url", feedURL, "items", len(feed.Items), "entry", raw.URL)
	return raw, nil
}

func (s *Source) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	doc, err := s.fetcher.GetDocument(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}

	feed, err := s.parser.Parse(bytes.NewReader(doc.Body))
	if err != nil {
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, fmt.Errorf("no feed at %s: %w", feedURL, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("parse feed %s: %w: %w", feedURL, domain.ErrUpstreamUnavailable, err)
	}
	return feed, nil
}

// newsletterFeedURL derives the publication feed from a post URL.
func newsletterFeedURL(target classifier.Classification) (string, error) {
	switch target.Platform {
	case classifier.PlatformSubstack, classifier.PlatformBeehiiv:
		return "https://" + target.Host + "/feed", nil
	case classifier.PlatformButtondown:
		return "https://buttondown.com/" + url.PathEscape(target.Actor) + "/rss", nil
	default:
		return "", fmt.Errorf("newsletter platform %q: %w", target.Platform, domain.ErrUnrecognizedURL)
	}
}

func matchEntry(items []*gofeed.Item, postURL string) *gofeed.Item {
	want := normalizeLink(postURL)
	for _, item := range items {
		if normalizeLink(item.Link) == want {
			return item
		}
		for _, link := range item.Links {
			if normalizeLink(link) == want {
				return item
			}
		}
	}
	return nil
}

// normalizeLink compares links by host and path only: scheme, www. prefix,
// query, fragment and trailing slash are ignored.
func normalizeLink(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "buttondown.email" {
		host = "buttondown.com"
	}
	return host + strings.TrimSuffix(u.Path, "/")
}

// newestEntry picks the most recent item by published date, then updated
// date. Items without either keep document order, which feeds usually sort
// newest first.
func newestEntry(items []*gofeed.Item) *gofeed.Item {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]*gofeed.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := entryTime(sorted[i]), entryTime(sorted[j])
		if ti == nil || tj == nil {
			return ti != nil
		}
		return ti.After(*tj)
	})
	return sorted[0]
}

func entryTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// transform maps a feed and its selected entry onto RawMetadata. Entry
// fields win; feed level fields fill the gaps.
//
//	URL          entry link, else feed link, else feed URL
//	Title        entry title, else feed title
//	Description  entry description, else content, else feed description (text only)
//	Image        entry image, itunes image, image enclosure, feed image
//	PublishedAt  entry published, updated, else feed published, updated
//	Duration     itunes:duration as HH:MM:SS, MM:SS or seconds
//	Type         enclosure media type, else article for entries
//	Author       entry author, dc:creator, itunes author, else feed author
func (s *Source) transform(feed *gofeed.Feed, item *gofeed.Item, feedURL string) *domain.RawMetadata {
	raw := &domain.RawMetadata{
		Kind:        s.kind,
		URL:         firstNonEmpty(feed.Link, feedURL),
		Title:       strings.TrimSpace(feed.Title),
		Description: plainText(feed.Description),
		Image:       feedImage(feed),
		PublishedAt: firstTime(feed.PublishedParsed, feed.UpdatedParsed),
		SiteName:    strings.TrimSpace(feed.Title),
		Extra:       map[string]string{"feed_url": feedURL},
	}
	if s.kind == domain.SourceNewsletter {
		raw.Type = domain.ContentArticle
	}

	if feedAuthor := feedLevelAuthor(feed); feedAuthor != "" {
		raw.StructuredAuthor = &domain.CreatorCandidate{
			Name:       feedAuthor,
			ProfileURL: strings.TrimSpace(feed.Link),
			FeedLevel:  true,
		}
	}

	if item == nil {
		return raw
	}

	raw.URL = firstNonEmpty(item.Link, raw.URL)
	raw.Title = firstNonEmpty(item.Title, raw.Title)
	raw.Description = firstNonEmpty(plainText(item.Description), plainText(item.Content), raw.Description)
	raw.Image = firstNonEmpty(itemImage(item), raw.Image)
	if published := firstTime(item.PublishedParsed, item.UpdatedParsed); published != nil {
		raw.PublishedAt = published
	}
	raw.Type = entryType(item, s.kind)

	if enclosure := mediaEnclosure(item); enclosure != nil {
		raw.Extra["enclosure_url"] = enclosure.URL
	}

	if item.ITunesExt != nil {
		d, err := duration.Optional(item.ITunesExt.Duration, duration.ParseClock)
		if err != nil {
			s.logger.Warn("malformed duration", "entry", item.Link, "duration", item.ITunesExt.Duration, "error", err)
		}
		raw.Duration = d
	}

	if name := entryAuthor(item); name != "" {
		raw.StructuredAuthor = &domain.CreatorCandidate{Name: name}
	}

	return raw
}

func entryType(item *gofeed.Item, kind domain.SourceKind) domain.ContentType {
	if enclosure := mediaEnclosure(item); enclosure != nil {
		switch major, _, _ := strings.Cut(strings.ToLower(enclosure.Type), "/"); major {
		case "audio":
			return domain.ContentAudio
		case "video":
			return domain.ContentVideo
		case "image":
			if kind != domain.SourceNewsletter {
				return domain.ContentImage
			}
		}
	}
	return domain.ContentArticle
}

// mediaEnclosure returns the first enclosure carrying a media type.
func mediaEnclosure(item *gofeed.Item) *gofeed.Enclosure {
	for _, e := range item.Enclosures {
		if e == nil || e.URL == "" {
			continue
		}
		t := strings.ToLower(e.Type)
		if strings.HasPrefix(t, "audio/") || strings.HasPrefix(t, "video/") || strings.HasPrefix(t, "image/") {
			return e
		}
	}
	return nil
}

func entryAuthor(item *gofeed.Item) string {
	if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	if item.DublinCoreExt != nil {
		for _, c := range item.DublinCoreExt.Creator {
			if c = strings.TrimSpace(c); c != "" {
				return c
			}
		}
	}
	if item.ITunesExt != nil {
		return strings.TrimSpace(item.ITunesExt.Author)
	}
	return ""
}

func feedLevelAuthor(feed *gofeed.Feed) string {
	if feed.Author != nil && strings.TrimSpace(feed.Author.Name) != "" {
		return strings.TrimSpace(feed.Author.Name)
	}
	for _, a := range feed.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	if feed.ITunesExt != nil {
		if author := strings.TrimSpace(feed.ITunesExt.Author); author != "" {
			return author
		}
		if feed.ITunesExt.Owner != nil {
			return strings.TrimSpace(feed.ITunesExt.Owner.Name)
		}
	}
	return ""
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	if item.ITunesExt != nil && item.ITunesExt.Image != "" {
		return item.ITunesExt.Image
	}
	for _, e := range item.Enclosures {
		if e != nil && strings.HasPrefix(strings.ToLower(e.Type), "image/") {
			return e.URL
		}
	}
	return ""
}

func feedImage(feed *gofeed.Feed) string {
	if feed.Image != nil && feed.Image.URL != "" {
		return feed.Image.URL
	}
	if feed.ITunesExt != nil {
		return feed.ITunesExt.Image
	}
	return ""
}

// plainText strips markup from feed HTML fields.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func firstTime(values ...*time.Time) *time.Time {
	for _, v := range values {
		if v != nil && !v.IsZero() {
			t := v.UTC()
			return &t
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
