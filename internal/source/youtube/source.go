package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"content_resolver/internal/cache"
	"content_resolver/internal/classifier"
	"content_resolver/internal/domain"
	"content_resolver/internal/duration"
)

const (
	SourceID       = "youtube"
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"
)

var ErrMissingAPIKey = errors.New("youtube: api key is required")

type Config struct {
	APIKey  string
	BaseURL string
}

type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, query map[string]string, out any) error
}

// Cache is optional; a nil Cache disables channel caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Source resolves YouTube videos with two dependent Data API lookups: the
// video, then the channel named by the video.
type Source struct {
	fetcher Fetcher
	cache   Cache
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// New fails without an API key. There is no built in credential.
func New(cfg Config, fetcher Fetcher, c Cache, logger *slog.Logger) (*Source, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Source{
		fetcher: fetcher,
		cache:   c,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  logger.With("source", SourceID),
	}, nil
}

func (s *Source) Kind() domain.SourceKind {
	return domain.SourceVideo
}

func (s *Source) Resolve(ctx context.Context, target classifier.Classification) (*domain.RawMetadata, error) {
	video, err := s.fetchVideo(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	if video.Snippet.ChannelID == "" {
		return nil, fmt.Errorf("video %s has no channel: %w", target.ID, domain.ErrNotFound)
	}

	channel, err := s.fetchChannel(ctx, video.Snippet.ChannelID)
	if err != nil {
		return nil, err
	}

	return s.transform(target, video, channel), nil
}

func (s *Source) fetchVideo(ctx context.Context, id string) (*Video, error) {
	var resp VideoListResponse
	err := s.fetcher.GetJSON(ctx, s.baseURL+"/videos", map[string]string{
		"part": "snippet,contentDetails,statistics",
		"id":   id,
		"key":  s.apiKey,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch video %s: %w", id, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s: %w", id, domain.ErrNotFound)
	}
	return &resp.Items[0], nil
}

func (s *Source) fetchChannel(ctx context.Context, id string) (*Channel, error) {
	key := cache.Key("yt-channel", id)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("channel cache read failed", "channel_id", id, "error", err)
		} else if ok {
			var ch Channel
			if err := json.Unmarshal(data, &ch); err == nil {
				s.logger.Debug("channel cache hit", "channel_id", id)
				return &ch, nil
			}
		}
	}

	var resp ChannelListResponse
	err := s.fetcher.GetJSON(ctx, s.baseURL+"/channels", map[string]string{
		"part": "snippet,statistics,brandingSettings",
		"id":   id,
		"key":  s.apiKey,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", id, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("channel %s: %w", id, domain.ErrNotFound)
	}
	ch := &resp.Items[0]

	if s.cache != nil {
		if data, err := json.Marshal(ch); err == nil {
			if err := s.cache.Set(ctx, key, data); err != nil {
				s.logger.Warn("channel cache write failed", "channel_id", id, "error", err)
			}
		}
	}
	return ch, nil
}

// transform maps API fields onto RawMetadata.
//
//	Title        snippet.title                         ""
//	Description  snippet.description                   ""
//	Image        best video thumbnail                  ""
//	PublishedAt  snippet.publishedAt (RFC 3339)        nil
//	Duration     contentDetails.duration (ISO 8601)    nil, also when malformed
//	Creator      channel snippet, channelTitle as name fallback
func (s *Source) transform(target classifier.Classification, v *Video, ch *Channel) *domain.RawMetadata {
	raw := &domain.RawMetadata{
		Kind:        domain.SourceVideo,
		URL:         "https://www.youtube.com/watch?v=" + v.ID,
		Title:       strings.TrimSpace(v.Snippet.Title),
		Description: strings.TrimSpace(v.Snippet.Description),
		Image:       v.Snippet.Thumbnails.Best(),
		Type:        domain.ContentVideo,
		SiteName:    "YouTube",
		Extra: map[string]string{
			"video_id":   v.ID,
			"channel_id": ch.ID,
		},
	}
	if v.ID == "" {
		raw.URL = target.URL
	}

	if v.Snippet.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			raw.PublishedAt = &t
		} else {
			s.logger.Warn("failed to parse published date",
				"video_id", v.ID,
				"published_at", v.Snippet.PublishedAt,
			)
		}
	}

	d, err := duration.Optional(v.ContentDetails.Duration, duration.Parse)
	if err != nil {
		s.logger.Warn("malformed duration",
			"video_id", v.ID,
			"duration", v.ContentDetails.Duration,
		)
	}
	raw.Duration = d

	setExtra(raw.Extra, "view_count", v.Statistics.ViewCount)
	setExtra(raw.Extra, "like_count", v.Statistics.LikeCount)
	setExtra(raw.Extra, "subscriber_count", ch.Statistics.SubscriberCount)
	setExtra(raw.Extra, "live_broadcast", v.Snippet.LiveBroadcastContent)

	name := firstNonEmpty(ch.Snippet.Title, ch.BrandingSettings.Channel.Title, v.Snippet.ChannelTitle)
	profile := "https://www.youtube.com/channel/" + ch.ID
	if handle := strings.TrimSpace(ch.Snippet.CustomURL); handle != "" {
		profile = "https://www.youtube.com/" + handle
	}
	raw.APICreator = &domain.CreatorCandidate{
		Name:        name,
		ExternalID:  ch.ID,
		ProfileURL:  profile,
		Image:       ch.Snippet.Thumbnails.Best(),
		Description: firstNonEmpty(ch.Snippet.Description, ch.BrandingSettings.Channel.Description),
	}

	return raw
}

func setExtra(extra map[string]string, key, value string) {
	if value != "" {
		extra[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
