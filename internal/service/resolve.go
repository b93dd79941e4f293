package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"content_resolver/internal/classifier"
	"content_resolver/internal/config"
	"content_resolver/internal/creator"
	"content_resolver/internal/domain"
	"content_resolver/internal/normalizer"
)

type ResolveService struct {
	resolvers map[domain.SourceKind]Resolver
	services  ServiceStore
	authors   AuthorStore
	contents  ContentStore
	publisher Publisher
	logger    *slog.Logger
	config    config.ResolveConfig
	now       func() time.Time
}

// NewResolveService registers one resolver per source kind; a later
// resolver for the same kind replaces an earlier one. publisher may be nil.
func NewResolveService(
	resolvers []Resolver,
	services ServiceStore,
	authors AuthorStore,
	contents ContentStore,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.ResolveConfig,
) *ResolveService {
	registry := make(map[domain.SourceKind]Resolver, len(resolvers))
	for _, r := range resolvers {
		registry[r.Kind()] = r
	}

	return &ResolveService{
		resolvers: registry,
		services:  services,
		authors:   authors,
		contents:  contents,
		publisher: publisher,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Resolve runs one URL through the pipeline. The returned Resolution is
// never nil and always carries the terminal outcome; the error, when set,
// matches one of the domain sentinels.
func (s *ResolveService) Resolve(ctx context.Context, rawURL string) (*domain.Resolution, error) {
	startTime := time.Now()
	res := &domain.Resolution{
		RequestID: uuid.NewString(),
		URL:       rawURL,
	}
	res.Advance(domain.StateSubmitted)
	logger := s.logger.With("request_id", res.RequestID, "url", rawURL)

	err := s.run(ctx, res, logger)
	res.Duration = time.Since(startTime)

	if err != nil {
		level := slog.LevelWarn
		if res.Outcome == domain.OutcomeSourceNotFound || res.Outcome == domain.OutcomeUnrecognizedURL {
			level = slog.LevelInfo
		}
		logger.Log(ctx, level, "resolution failed",
			"outcome", res.Outcome,
			"kind", res.Kind,
			"duration", res.Duration,
			"error", err,
		)
		return res, err
	}

	logger.Info("resolution completed",
		"kind", res.Kind,
		"content_id", res.Content.ID,
		"service", res.Service.Name,
		"author_id", res.Content.AuthorID,
		"degraded", res.Degraded,
		"duration", res.Duration,
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, res); err != nil {
			logger.Warn("failed to publish resolution", "content_id", res.Content.ID, "error", err)
		}
	}

	return res, nil
}

func (s *ResolveService) run(ctx context.Context, res *domain.Resolution, logger *slog.Logger) error {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	target, err := classifier.Classify(res.URL)
	if err != nil {
		res.Outcome = domain.OutcomeUnrecognizedURL
		return fmt.Errorf("classify: %w", err)
	}
	res.Kind = target.Kind
	res.Advance(domain.StateClassified)
	logger.Debug("url classified", "kind", target.Kind, "platform", target.Platform)

	raw, kind, err := s.resolveSource(ctx, target, res, logger)
	if err != nil {
		return err
	}
	res.Kind = kind
	res.Advance(domain.StateSourceResolved)

	res.Creator = creator.Resolve(raw)
	if res.Creator != nil {
		res.Advance(domain.StateCreatorResolved)
	} else {
		res.Advance(domain.StateCreatorAbsent)
	}

	content := normalizer.Normalize(raw, res.Creator, kind, target.URL, s.now())
	res.Advance(domain.StateNormalized)

	if err := s.persist(ctx, res, kind, &content); err != nil {
		res.Outcome = domain.OutcomePersistenceFailed
		res.Advance(domain.StatePersistenceFailed)
		if !errors.Is(err, domain.ErrPersistenceFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, err)
		}
		return err
	}

	res.Content = &content
	res.Outcome = domain.OutcomePersisted
	res.Advance(domain.StatePersisted)
	return nil
}

// resolveSource calls the resolver for the target kind and, when enabled,
// retries a NotFound from a platform resolver as a generic web page.
func (s *ResolveService) resolveSource(ctx context.Context, target classifier.Classification, res *domain.Resolution, logger *slog.Logger) (*domain.RawMetadata, domain.SourceKind, error) {
	resolver, ok := s.resolvers[target.Kind]
	if !ok {
		res.Outcome = domain.OutcomeUpstreamUnavailable
		return nil, target.Kind, fmt.Errorf("no resolver for %s: %w", target.Kind, domain.ErrUpstreamUnavailable)
	}

	kind := target.Kind
	raw, err := resolver.Resolve(ctx, target)

	if errors.Is(err, domain.ErrNotFound) && s.config.DegradeToWeb && kind != domain.SourceWeb {
		if web, ok := s.resolvers[domain.SourceWeb]; ok {
			logger.Info("source not found, degrading to web", "kind", kind, "error", err)
			res.Degraded = true
			kind = domain.SourceWeb
			webTarget := target
			webTarget.Kind = domain.SourceWeb
			raw, err = web.Resolve(ctx, webTarget)
		}
	}

	switch {
	case err == nil && raw == nil:
		res.Outcome = domain.OutcomeSourceNotFound
		res.Advance(domain.StateSourceNotFound)
		return nil, kind, fmt.Errorf("resolve %s: empty result: %w", kind, domain.ErrNotFound)
	case err == nil:
		return raw, kind, nil
	case errors.Is(err, domain.ErrNotFound):
		res.Outcome = domain.OutcomeSourceNotFound
		res.Advance(domain.StateSourceNotFound)
		return nil, kind, fmt.Errorf("resolve %s: %w", kind, err)
	case errors.Is(err, domain.ErrUnrecognizedURL):
		res.Outcome = domain.OutcomeUnrecognizedURL
		return nil, kind, fmt.Errorf("resolve %s: %w", kind, err)
	}

	res.Outcome = domain.OutcomeUpstreamUnavailable
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return nil, kind, fmt.Errorf("resolve %s: %w", kind, err)
	}
	return nil, kind, fmt.Errorf("resolve %s: %w: %w", kind, domain.ErrUpstreamUnavailable, err)
}

func (s *ResolveService) persist(ctx context.Context, res *domain.Resolution, kind domain.SourceKind, content *domain.Content) error {
	svc, err := s.services.GetOrCreate(ctx, kind.Service())
	if err != nil {
		return fmt.Errorf("get or create service: %w", err)
	}
	res.Service = svc
	content.ServiceID = svc.ID

	if res.Creator != nil {
		author, err := s.authors.GetOrCreate(ctx, res.Creator, svc.ID)
		if err != nil {
			return fmt.Errorf("get or create author: %w", err)
		}
		res.Author = author
		content.AuthorID = &author.ID
	}

	if err := s.contents.Insert(ctx, content); err != nil {
		return fmt.Errorf("insert content: %w", err)
	}
	return nil
}

// GetContent returns a stored content row.
func (s *ResolveService) GetContent(ctx context.Context, id int64) (*domain.Content, error) {
	content, err := s.contents.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get content %d: %w", id, err)
	}
	return content, nil
}
