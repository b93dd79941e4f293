package domain

import "time"

// ServiceName identifies an external platform. The set is closed.
type ServiceName string

const (
	ServiceVideoPlatform      ServiceName = "video-platform"
	ServiceAudioPlatform      ServiceName = "audio-platform"
	ServiceShortPostPlatform  ServiceName = "short-post-platform"
	ServiceNewsletterPlatform ServiceName = "newsletter-platform"
	ServiceGenericFeed        ServiceName = "generic-feed"
	ServiceGenericWeb         ServiceName = "generic-web"
)

func (n ServiceName) Valid() bool {
	switch n {
	case ServiceVideoPlatform, ServiceAudioPlatform, ServiceShortPostPlatform,
		ServiceNewsletterPlatform, ServiceGenericFeed, ServiceGenericWeb:
		return true
	}
	return false
}

type Service struct {
	ID        int64       `db:"id" json:"id"`
	Name      ServiceName `db:"name" json:"name"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// SourceKind is the classifier's verdict for a URL. Every kind maps to
// exactly one service.
type SourceKind string

const (
	SourceVideo      SourceKind = "video"
	SourceAudio      SourceKind = "audio"
	SourceShortPost  SourceKind = "short_post"
	SourceNewsletter SourceKind = "newsletter"
	SourceFeed       SourceKind = "feed"
	SourceWeb        SourceKind = "web"
)

var sourceServices = map[SourceKind]ServiceName{
	SourceVideo:      ServiceVideoPlatform,
	SourceAudio:      ServiceAudioPlatform,
	SourceShortPost:  ServiceShortPostPlatform,
	SourceNewsletter: ServiceNewsletterPlatform,
	SourceFeed:       ServiceGenericFeed,
	SourceWeb:        ServiceGenericWeb,
}

func (k SourceKind) Valid() bool {
	_, ok := sourceServices[k]
	return ok
}

// Service returns the platform a source kind is persisted under.
func (k SourceKind) Service() ServiceName {
	return sourceServices[k]
}
