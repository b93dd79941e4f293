// Package podcast resolves Apple Podcasts shows and episodes through the
// public iTunes Lookup API.
package podcast

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"content_resolver/internal/classifier"
	"content_resolver/internal/domain"
	"content_resolver/internal/duration"
	"content_resolver/internal/utils"
)

const (
	SourceID       = "itunes"
	DefaultBaseURL = "https://itunes.apple.com"
)

type Config struct {
	BaseURL string
	Country string
}

type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, query map[string]string, out any) error
}

type LookupResponse struct {
	ResultCount int      `json:"resultCount"`
	Results     []Result `json:"results"`
}

// Result covers both the podcast ("track") and episode ("podcastEpisode")
// wrapper types returned by the lookup endpoint.
type Result struct {
	WrapperType       string `json:"wrapperType"`
	Kind              string `json:"kind"`
	CollectionID      int64  `json:"collectionId"`
	TrackID           int64  `json:"trackId"`
	ArtistID          int64  `json:"artistId"`
	ArtistName        string `json:"artistName"`
	CollectionName    string `json:"collectionName"`
	TrackName         string `json:"trackName"`
	Description       string `json:"description"`
	ShortDescription  string `json:"shortDescription"`
	ReleaseDate       string `json:"releaseDate"`
	TrackTimeMillis   int64  `json:"trackTimeMillis"`
	ArtworkURL600     string `json:"artworkUrl600"`
	ArtworkURL160     string `json:"artworkUrl160"`
	ArtworkURL100     string `json:"artworkUrl100"`
	FeedURL           string `json:"feedUrl"`
	TrackViewURL      string `json:"trackViewUrl"`
	CollectionViewURL string `json:"collectionViewUrl"`
	ArtistViewURL     string `json:"artistViewUrl"`
	EpisodeURL        string `json:"episodeUrl"`
	PrimaryGenreName  string `json:"primaryGenreName"`
}

func (r Result) artwork() string {
	return firstNonEmpty(r.ArtworkURL600, r.ArtworkURL160, r.ArtworkURL100)
}

type Source struct {
	fetcher Fetcher
	baseURL string
	country string
	logger  *slog.Logger
}

func New(cfg Config, fetcher Fetcher, logger *slog.Logger) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Source{
		fetcher: fetcher,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		country: cfg.Country,
		logger:  logger.With("source", SourceID),
	}
}

func (s *Source) Kind() domain.SourceKind {
	return domain.SourceAudio
}

func (s *Source) Resolve(ctx context.Context, target classifier.Classification) (*domain.RawMetadata, error) {
	query := map[string]string{"id": target.ID}
	if target.SubID != "" {
		query["entity"] = "podcastEpisode"
		query["limit"] = "200"
	}
	if s.country != "" {
		query["country"] = s.country
	}

	var resp LookupResponse
	if err := s.fetcher.GetJSON(ctx, s.baseURL+"/lookup", query, &resp); err != nil {
		return nil, fmt.Errorf("lookup podcast %s: %w", target.ID, err)
	}

	var show, episode *Result
	for i := range resp.Results {
		r := &resp.Results[i]
		switch {
		case r.WrapperType == "track" && show == nil:
			show = r
		case r.WrapperType == "podcastEpisode" && target.SubID != "" && strconv.FormatInt(r.TrackID, 10) == target.SubID:
			episode = r
		}
	}

	if show == nil {
		return nil, fmt.Errorf("podcast %s: %w", target.ID, domain.ErrNotFound)
	}
	if target.SubID != "" && episode == nil {
		s.logger.Debug("episode not in lookup window", "podcast_id", target.ID, "episode_id", target.SubID)
		return nil, fmt.Errorf("episode %s of podcast %s: %w", target.SubID, target.ID, domain.ErrNotFound)
	}

	return s.transform(target, show, episode), nil
}

// transform maps lookup results onto RawMetadata.
//
//	Title        episode.trackName, else show.collectionName     ""
//	Description  episode.description, else shortDescription    ""
//	Image        episode artwork, else show artwork             ""
//	PublishedAt  episode/show releaseDate (RFC 3339)            nil
//	Duration     episode.trackTimeMillis / 1000 when in range   nil
//	Creator      show.artistName, collectionName as fallback
func (s *Source) transform(target classifier.Classification, show, episode *Result) *domain.RawMetadata {
	raw := &domain.RawMetadata{
		Kind:     domain.SourceAudio,
		URL:      firstNonEmpty(show.CollectionViewURL, target.URL),
		Title:    strings.TrimSpace(show.CollectionName),
		Image:    show.artwork(),
		Type:     domain.ContentAudio,
		SiteName: "Apple Podcasts",
		Extra: map[string]string{
			"collection_id": strconv.FormatInt(show.CollectionID, 10),
		},
	}
	if show.FeedURL != "" {
		raw.Extra["feed_url"] = show.FeedURL
	}
	if show.PrimaryGenreName != "" {
		raw.Extra["genre"] = show.PrimaryGenreName
	}
	releaseDate := show.ReleaseDate

	if episode != nil {
		raw.URL = firstNonEmpty(episode.TrackViewURL, target.URL)
		raw.Title = firstNonEmpty(episode.TrackName, show.CollectionName)
		raw.Description = firstNonEmpty(episode.Description, episode.ShortDescription)
		raw.Image = firstNonEmpty(episode.artwork(), show.artwork())
		releaseDate = episode.ReleaseDate
		if episode.TrackTimeMillis > 0 && episode.TrackTimeMillis/1000 <= duration.MaxSeconds {
			raw.Duration = utils.Ptr(int(episode.TrackTimeMillis / 1000))
		}
		raw.Extra["episode_id"] = strconv.FormatInt(episode.TrackID, 10)
		if episode.EpisodeURL != "" {
			raw.Extra["audio_url"] = episode.EpisodeURL
		}
	}

	if releaseDate != "" {
		if t, err := time.Parse(time.RFC3339, releaseDate); err == nil {
			raw.PublishedAt = &t
		} else {
			s.logger.Warn("failed to parse release date", "podcast_id", target.ID, "release_date", releaseDate)
		}
	}

	externalID := "collection:" + strconv.FormatInt(show.CollectionID, 10)
	if show.ArtistID != 0 {
		externalID = "artist:" + strconv.FormatInt(show.ArtistID, 10)
	}
	raw.APICreator = &domain.CreatorCandidate{
		Name:       firstNonEmpty(show.ArtistName, show.CollectionName),
		ExternalID: externalID,
		ProfileURL: firstNonEmpty(show.ArtistViewURL, show.CollectionViewURL),
		Image:      show.artwork(),
	}

	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
