// Package creator decides who made a piece of content and how sure we are.
//
// Evidence is tried tier by tier: a platform API identity, then structured
// author markup, then heuristics over bylines and the host name. The first
// tier that yields a usable name wins.
package creator

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"content_resolver/internal/domain"
)

const (
	ConfidenceAPI                = 0.95
	ConfidenceAPIWithoutID       = 0.9
	ConfidenceStructured         = 0.7
	ConfidenceStructuredFeed     = 0.6
	ConfidenceHeuristicByline    = 0.4
	ConfidenceHeuristicSiteGuess = 0.2

	maxNameRunes = 120
)

var (
	bylinePattern = regexp.MustCompile(`(?i)^\s*(?:written\s+)?by[:\s]+(.+?)\s*(?:[|,•·]|\bon\b|\bupdated\b|$)`)
	emailInName   = regexp.MustCompile(`\s*[<(]?[^\s<>()]+@[^\s<>()]+\.[a-z]{2,}[>)]?\s*`)
)

// Resolve returns nil when no tier produces a usable creator.
func Resolve(raw *domain.RawMetadata) *domain.CreatorResult {
	if raw == nil {
		return nil
	}
	if r := fromAPI(raw.APICreator); r != nil {
		return r
	}
	if r := fromStructured(raw.StructuredAuthor); r != nil {
		return r
	}
	return fromHeuristics(raw)
}

func fromAPI(c *domain.CreatorCandidate) *domain.CreatorResult {
	if c == nil {
		return nil
	}
	name, ok := usableName(c.Name)
	if !ok {
		return nil
	}
	confidence := ConfidenceAPI
	if strings.TrimSpace(c.ExternalID) == "" {
		confidence = ConfidenceAPIWithoutID
	}
	return result(name, c, confidence, domain.MethodAPI)
}

func fromStructured(c *domain.CreatorCandidate) *domain.CreatorResult {
	if c == nil {
		return nil
	}
	name, ok := usableName(c.Name)
	if !ok {
		return nil
	}
	confidence := ConfidenceStructured
	if c.FeedLevel {
		confidence = ConfidenceStructuredFeed
	}
	return result(name, c, confidence, domain.MethodStructured)
}

func fromHeuristics(raw *domain.RawMetadata) *domain.CreatorResult {
	if name, ok := bylineName(raw.Byline); ok {
		return result(name, &domain.CreatorCandidate{}, ConfidenceHeuristicByline, domain.MethodHeuristic)
	}

	guess := strings.TrimSpace(raw.SiteName)
	if _, ok := usableName(guess); !ok {
		guess = domainOwner(raw.URL)
	}
	name, ok := usableName(guess)
	if !ok {
		return nil
	}
	return result(name, &domain.CreatorCandidate{ProfileURL: siteRoot(raw.URL)}, ConfidenceHeuristicSiteGuess, domain.MethodHeuristic)
}

func result(name string, c *domain.CreatorCandidate, confidence float64, method domain.CreatorMethod) *domain.CreatorResult {
	r := &domain.CreatorResult{
		Name:        name,
		ExternalID:  strings.TrimSpace(c.ExternalID),
		ProfileURL:  optional(c.ProfileURL),
		Image:       optional(c.Image),
		Description: optional(c.Description),
		Confidence:  confidence,
		Method:      method,
	}
	if r.ExternalID == "" {
		r.ExternalID = externalID(name, c.ProfileURL)
	}
	return r
}

// externalID is the natural key used when the source has no stable id:
// the profile URL when present, the lower-cased name otherwise.
func externalID(name, profileURL string) string {
	if p := strings.TrimSpace(profileURL); p != "" {
		return strings.TrimSuffix(p, "/")
	}
	return strings.ToLower(name)
}

// usableName collapses whitespace, strips a trailing e-mail address and
// rejects values that cannot name a person or organisation.
func usableName(s string) (string, bool) {
	name := strings.Join(strings.Fields(s), " ")
	if name == "" {
		return "", false
	}
	if _, err := mail.ParseAddress(name); err == nil && !strings.Contains(name, " ") {
		return "", false
	}
	name = strings.TrimSpace(emailInName.ReplaceAllString(name, " "))
	if name == "" || utf8.RuneCountInString(name) > maxNameRunes {
		return "", false
	}
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
		return "", false
	}
	return name, true
}

func bylineName(byline string) (string, bool) {
	byline = strings.Join(strings.Fields(byline), " ")
	if byline == "" {
		return "", false
	}
	if m := bylinePattern.FindStringSubmatch(byline); m != nil {
		return usableName(m[1])
	}
	// Readability bylines usually carry the bare name.
	if utf8.RuneCountInString(byline) <= 60 && !strings.ContainsAny(byline, "0123456789") {
		return usableName(byline)
	}
	return "", false
}

// domainOwner guesses a publisher name from the registrable part of the
// host, e.g. "blog.example.co.uk" gives "example".
func domainOwner(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return ""
	}
	i := len(labels) - 2
	if i > 0 && len(labels[i]) <= 3 && len(labels[len(labels)-1]) == 2 {
		i--
	}
	if digitsOnly(labels[i]) {
		return ""
	}
	return labels[i]
}

func siteRoot(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
