package web

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"content_resolver/internal/domain"
)

// linkedData is the subset of a schema.org node the resolver reads.
type linkedData struct {
	Type          string
	Headline      string
	Description   string
	Image         string
	DatePublished string
	AuthorName    string
	AuthorURL     string
}

var linkedDataTypes = map[string]domain.ContentType{
	"article":             domain.ContentArticle,
	"newsarticle":         domain.ContentArticle,
	"blogposting":         domain.ContentArticle,
	"techarticle":         domain.ContentArticle,
	"report":              domain.ContentArticle,
	"videoobject":         domain.ContentVideo,
	"audioobject":         domain.ContentAudio,
	"podcastepisode":      domain.ContentAudio,
	"musicrecording":      domain.ContentAudio,
	"imageobject":         domain.ContentImage,
	"photograph":          domain.ContentImage,
	"socialmediaposting":  domain.ContentPost,
	"discussionforumpost": domain.ContentPost,
}

// extractLinkedData returns the first content node found in the page's
// JSON-LD blocks. Site wide nodes such as WebSite or BreadcrumbList are
// skipped unless nothing else is present.
func extractLinkedData(doc *goquery.Document) *linkedData {
	var fallback *linkedData
	var found *linkedData

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(strings.TrimSpace(sel.Text())), &payload); err != nil {
			return true
		}
		for _, node := range flattenNodes(payload) {
			ld := toLinkedData(node)
			if _, ok := linkedDataTypes[strings.ToLower(ld.Type)]; ok {
				found = ld
				return false
			}
			if fallback == nil && (ld.Headline != "" || ld.Description != "") {
				fallback = ld
			}
		}
		return true
	})

	if found != nil {
		return found
	}
	return fallback
}

func flattenNodes(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		var out []map[string]any
		for _, item := range t {
			out = append(out, flattenNodes(item)...)
		}
		return out
	case map[string]any:
		if graph, ok := t["@graph"]; ok {
			return flattenNodes(graph)
		}
		return []map[string]any{t}
	default:
		return nil
	}
}

func toLinkedData(node map[string]any) *linkedData {
	ld := &linkedData{
		Type:          firstString(node["@type"]),
		Headline:      firstNonEmpty(firstString(node["headline"]), firstString(node["name"])),
		Description:   firstString(node["description"]),
		Image:         imageURL(node["image"]),
		DatePublished: firstNonEmpty(firstString(node["datePublished"]), firstString(node["uploadDate"])),
	}
	ld.AuthorName, ld.AuthorURL = author(node["author"])
	if ld.AuthorName == "" {
		ld.AuthorName, ld.AuthorURL = author(node["creator"])
	}
	return ld
}

// firstString reads a string, or the first string of an array.
func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s := firstString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func imageURL(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s := imageURL(item); s != "" {
				return s
			}
		}
	case map[string]any:
		return firstNonEmpty(firstString(t["url"]), firstString(t["contentUrl"]))
	}
	return ""
}

func author(v any) (string, string) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), ""
	case []any:
		for _, item := range t {
			if name, u := author(item); name != "" {
				return name, u
			}
		}
	case map[string]any:
		return firstString(t["name"]), firstNonEmpty(firstString(t["url"]), firstString(t["@id"]))
	}
	return "", ""
}
