package domain

import "time"

// RawMetadata is what a source resolver hands to the rest of the pipeline.
// Empty strings and nil pointers mean the upstream did not provide the field;
// resolvers never leak upstream sentinels past this struct.
type RawMetadata struct {
	Kind        SourceKind
	URL         string
	Title       string
	Description string
	Image       string
	Type        ContentType // empty when the source gives no type signal
	PublishedAt *time.Time
	Duration    *int // seconds; nil when absent or malformed upstream
	SiteName    string

	// Creator evidence, one field per resolution tier.
	APICreator       *CreatorCandidate
	StructuredAuthor *CreatorCandidate
	Byline           string

	// Source specific attributes that have no canonical column.
	Extra map[string]string
}

type CreatorCandidate struct {
	Name        string
	ExternalID  string
	ProfileURL  string
	Image       string
	Description string
	// FeedLevel marks an author taken from document level metadata rather
	// than from the item itself.
	FeedLevel bool
}
