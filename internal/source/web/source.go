// Package web resolves arbitrary HTML pages. Structured metadata
// (OpenGraph, Twitter cards, meta tags, JSON-LD) is read first; the first
// heading and paragraph are used only for fields no structured tag supplies.
package web

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"content_resolver/internal/classifier"
	"content_resolver/internal/domain"
	"content_resolver/internal/source/fetch"
)

const SourceID = "web"

type Fetcher interface {
	GetDocument(ctx context.Context, rawURL string) (*fetch.Document, error)
}

type Source struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func New(fetcher Fetcher, logger *slog.Logger) *Source {
	return &Source{
		fetcher: fetcher,
		logger:  logger.With("source", SourceID),
	}
}

func (s *Source) Kind() domain.SourceKind {
	return domain.SourceWeb
}

func (s *Source) Resolve(ctx context.Context, target classifier.Classification) (*domain.RawMetadata, error) {
	doc, err := s.fetcher.GetDocument(ctx, target.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", target.URL, err)
	}

	if !fetch.IsHTML(doc.ContentType) {
		return nonHTML(doc), nil
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w: %w", doc.URL, domain.ErrUpstreamUnavailable, err)
	}

	base, err := url.Parse(doc.URL)
	if err != nil {
		base, _ = url.Parse(target.URL)
	}
	raw := s.extract(page, base)

	if article, err := readability.FromReader(bytes.NewReader(doc.Body), base); err == nil {
		raw.Byline = strings.TrimSpace(article.Byline)
		if raw.Description == "" {
			raw.Description = collapse(article.Excerpt)
		}
		if raw.SiteName == "" {
			raw.SiteName = strings.TrimSpace(article.SiteName)
		}
	} else {
		s.logger.Debug("readability failed", "url", doc.URL, "error", err)
	}
	if raw.Byline == "" {
		raw.Byline = collapse(page.Find(`.byline, [rel="author"], [itemprop="author"], .author`).First().Text())
	}

	return raw, nil
}

// extract maps page tags onto RawMetadata in priority order.
//
//	URL          og:url, link[rel=canonical], fetched URL
//	Title        og:title, twitter:title, JSON-LD headline, <title>, first <h1>
//	Description  og:description, twitter:description, meta description, JSON-LD description, first <p>
//	Image        og:image, twitter:image, JSON-LD image
//	PublishedAt  article:published_time, JSON-LD datePublished, meta date
//	Type         og:type, JSON-LD @type
//	Author       JSON-LD author, meta author, article:author, link[rel=author]
func (s *Source) extract(page *goquery.Document, base *url.URL) *domain.RawMetadata {
	ld := extractLinkedData(page)
	if ld == nil {
		ld = &linkedData{}
	}

	raw := &domain.RawMetadata{
		Kind: domain.SourceWeb,
		URL: firstNonEmpty(
			absolute(base, meta(page, "og:url")),
			absolute(base, attr(page, `link[rel="canonical"]`, "href")),
			base.String(),
		),
		Title: firstNonEmpty(
			meta(page, "og:title"),
			meta(page, "twitter:title"),
			ld.Headline,
			collapse(page.Find("head title").First().Text()),
		),
		Description: firstNonEmpty(
			meta(page, "og:description"),
			meta(page, "twitter:description"),
			meta(page, "description"),
			ld.Description,
		),
		Image: absolute(base, firstNonEmpty(
			meta(page, "og:image"),
			meta(page, "og:image:url"),
			meta(page, "twitter:image"),
			meta(page, "twitter:image:src"),
			ld.Image,
		)),
		SiteName: meta(page, "og:site_name"),
		Type:     pageType(meta(page, "og:type"), ld.Type),
		Extra:    map[string]string{},
	}

	published := firstNonEmpty(meta(page, "article:published_time"), ld.DatePublished, meta(page, "date"), meta(page, "pubdate"))
	if published != "" {
		if t, ok := parseTime(published); ok {
			raw.PublishedAt = &t
		} else {
			s.logger.Debug("unparsed published time", "url", raw.URL, "value", published)
		}
	}

	var heuristic []string
	if raw.Title == "" {
		if raw.Title = collapse(page.Find("h1").First().Text()); raw.Title != "" {
			heuristic = append(heuristic, "title")
		}
	}
	if raw.Description == "" {
		page.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			raw.Description = collapse(p.Text())
			return raw.Description == ""
		})
		if raw.Description != "" {
			heuristic = append(heuristic, "description")
		}
	}
	if len(heuristic) > 0 {
		raw.Extra["heuristic_fields"] = strings.Join(heuristic, ",")
	}

	raw.StructuredAuthor = structuredAuthor(page, base, ld)
	return raw
}

func structuredAuthor(page *goquery.Document, base *url.URL, ld *linkedData) *domain.CreatorCandidate {
	if ld.AuthorName != "" {
		return &domain.CreatorCandidate{Name: ld.AuthorName, ProfileURL: absolute(base, ld.AuthorURL)}
	}
	if name := meta(page, "author"); name != "" {
		return &domain.CreatorCandidate{Name: name}
	}

	articleAuthor := meta(page, "article:author")
	relAuthor := page.Find(`link[rel="author"], a[rel="author"]`).First()
	relHref, _ := relAuthor.Attr("href")
	relName := collapse(relAuthor.Text())

	switch {
	case articleAuthor != "" && !isURL(articleAuthor):
		return &domain.CreatorCandidate{Name: articleAuthor, ProfileURL: absolute(base, relHref)}
	case relName != "":
		return &domain.CreatorCandidate{Name: relName, ProfileURL: absolute(base, relHref)}
	case articleAuthor != "":
		// article:author often carries only a profile URL; use its last
		// path segment as the name.
		return &domain.CreatorCandidate{Name: nameFromProfile(articleAuthor), ProfileURL: articleAuthor}
	}
	return nil
}

// pageType maps og:type and the JSON-LD @type onto a content type. Unknown
// values leave the type empty so the normalizer applies its default.
func pageType(ogType, ldType string) domain.ContentType {
	og := strings.ToLower(strings.TrimSpace(ogType))
	switch {
	case strings.HasPrefix(og, "video"):
		return domain.ContentVideo
	case strings.HasPrefix(og, "music"):
		return domain.ContentAudio
	case og == "article":
		return domain.ContentArticle
	}
	if t, ok := linkedDataTypes[strings.ToLower(ldType)]; ok {
		return t
	}
	return ""
}

// nonHTML describes a direct link to a media file or other document.
func nonHTML(doc *fetch.Document) *domain.RawMetadata {
	mediaType, _, _ := mime.ParseMediaType(doc.ContentType)
	raw := &domain.RawMetadata{
		Kind:  domain.SourceWeb,
		URL:   doc.URL,
		Extra: map[string]string{"content_type": mediaType},
	}
	if u, err := url.Parse(doc.URL); err == nil {
		if name := path.Base(u.Path); name != "/" && name != "." {
			raw.Title = name
		}
	}

	switch major, _, _ := strings.Cut(mediaType, "/"); major {
	case "image":
		raw.Type = domain.ContentImage
		raw.Image = doc.URL
	case "audio":
		raw.Type = domain.ContentAudio
	case "video":
		raw.Type = domain.ContentVideo
	default:
		raw.Type = domain.ContentLink
	}
	return raw
}

func meta(page *goquery.Document, key string) string {
	sel := page.Find(fmt.Sprintf(`meta[property="%s"], meta[name="%s"], meta[itemprop="%s"]`, key, key, key)).First()
	content, _ := sel.Attr("content")
	return collapse(content)
}

func attr(page *goquery.Document, selector, name string) string {
	v, _ := page.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

func absolute(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func nameFromProfile(profile string) string {
	u, err := url.Parse(profile)
	if err != nil {
		return ""
	}
	name := path.Base(strings.TrimSuffix(u.Path, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimPrefix(name, "@")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
