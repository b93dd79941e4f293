// Package classifier maps a URL onto the source kind that can resolve it.
//
// Classification is pure: no network access, and the same URL always yields
// the same result. Any http(s) URL that matches no platform rule falls back
// to the generic web kind; URLs that cannot be parsed, lack a host or use
// another scheme are reported as domain.ErrUnrecognizedURL.
package classifier

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"content_resolver/internal/domain"
)

// Sub platforms sharing a source kind.
const (
	PlatformYouTube    = "youtube"
	PlatformApple      = "apple_podcasts"
	PlatformBluesky    = "bluesky"
	PlatformX          = "x"
	PlatformSubstack   = "substack"
	PlatformButtondown = "buttondown"
	PlatformBeehiiv    = "beehiiv"
)

type Classification struct {
	Kind     domain.SourceKind
	Platform string
	URL      string // normalized input
	Host     string // lower case, without www. or m.
	ID       string // primary identifier: video id, podcast id, post id
	SubID    string // secondary identifier: episode id
	Actor    string // account handle for posts and newsletters
}

var (
	youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	digits    = regexp.MustCompile(`^\d+$`)
	appleID   = regexp.MustCompile(`/id(\d+)$`)
)

// Classify returns the source kind for rawURL.
func Classify(rawURL string) (Classification, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %v", domain.ErrUnrecognizedURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Classification{}, fmt.Errorf("%w: unsupported scheme %q", domain.ErrUnrecognizedURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return Classification{}, fmt.Errorf("%w: missing host", domain.ErrUnrecognizedURL)
	}

	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	path := strings.ToLower(strings.TrimSuffix(u.EscapedPath(), "/"))
	segments := splitPath(u.Path)

	c := Classification{URL: u.String(), Host: host}

	for _, rule := range rules {
		if rule(&c, host, path, segments, u.Query()) {
			return c, nil
		}
	}

	c.Kind = domain.SourceWeb
	return c, nil
}

type rule func(c *Classification, host, path string, segments []string, q url.Values) bool

var rules = []rule{
	matchYouTube,
	matchApplePodcast,
	matchBluesky,
	matchX,
	matchNewsletter,
	matchFeed,
}

func matchYouTube(c *Classification, host, path string, segments []string, q url.Values) bool {
	var id string
	switch host {
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if path == "/watch" {
			id = q.Get("v")
		} else if len(segments) >= 2 {
			switch strings.ToLower(segments[0]) {
			case "shorts", "embed", "live", "v":
				id = segments[1]
			}
		}
	case "youtu.be":
		if len(segments) >= 1 {
			id = segments[0]
		}
	default:
		return false
	}

	if !youtubeID.MatchString(id) {
		return false
	}
	c.Kind = domain.SourceVideo
	c.Platform = PlatformYouTube
	c.ID = id
	return true
}

func matchApplePodcast(c *Classification, host, path string, _ []string, q url.Values) bool {
	if host != "podcasts.apple.com" {
		return false
	}
	m := appleID.FindStringSubmatch(path)
	if m == nil {
		return false
	}
	c.Kind = domain.SourceAudio
	c.Platform = PlatformApple
	c.ID = m[1]
	if ep := q.Get("i"); digits.MatchString(ep) {
		c.SubID = ep
	}
	return true
}

// bsky.app/profile/<actor>/post/<rkey>
func matchBluesky(c *Classification, host, _ string, segments []string, _ url.Values) bool {
	if host != "bsky.app" || len(segments) < 4 {
		return false
	}
	if !strings.EqualFold(segments[0], "profile") || !strings.EqualFold(segments[2], "post") {
		return false
	}
	c.Kind = domain.SourceShortPost
	c.Platform = PlatformBluesky
	c.Actor = segments[1]
	c.ID = segments[3]
	return true
}

// twitter.com|x.com/<user>/status/<id>
func matchX(c *Classification, host, _ string, segments []string, _ url.Values) bool {
	switch host {
	case "twitter.com", "x.com", "mobile.twitter.com":
	default:
		return false
	}
	if len(segments) < 3 || !strings.EqualFold(segments[1], "status") || !digits.MatchString(segments[2]) {
		return false
	}
	c.Kind = domain.SourceShortPost
	c.Platform = PlatformX
	c.Actor = segments[0]
	c.ID = segments[2]
	return true
}

func matchNewsletter(c *Classification, host, _ string, segments []string, _ url.Values) bool {
	switch {
	case strings.HasSuffix(host, ".substack.com") && len(segments) >= 2 && strings.EqualFold(segments[0], "p"):
		c.Platform = PlatformSubstack
		c.Actor = strings.TrimSuffix(host, ".substack.com")
		c.ID = segments[1]
	case strings.HasSuffix(host, ".beehiiv.com") && len(segments) >= 2 && strings.EqualFold(segments[0], "p"):
		c.Platform = PlatformBeehiiv
		c.Actor = strings.TrimSuffix(host, ".beehiiv.com")
		c.ID = segments[1]
	case (host == "buttondown.com" || host == "buttondown.email") && len(segments) >= 3 && strings.EqualFold(segments[1], "archive"):
		c.Platform = PlatformButtondown
		c.Actor = segments[0]
		c.ID = segments[2]
	default:
		return false
	}
	c.Kind = domain.SourceNewsletter
	return true
}

var feedSuffixes = []string{".rss", ".atom", ".xml", "/feed", "/rss", "/atom", "/feed.xml", "/rss.xml", "/atom.xml", "/index.xml"}

func matchFeed(c *Classification, host, path string, _ []string, _ url.Values) bool {
	isFeed := strings.HasPrefix(host, "feeds.")
	for _, suffix := range feedSuffixes {
		if strings.HasSuffix(path, suffix) {
			isFeed = true
			break
		}
	}
	if !isFeed {
		return false
	}
	c.Kind = domain.SourceFeed
	return true
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
