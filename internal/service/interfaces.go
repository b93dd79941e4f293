package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"content_resolver/internal/classifier"
	"content_resolver/internal/domain"
)

// Resolver fetches raw metadata for one source kind. A missing upstream
// item is reported as an error matching domain.ErrNotFound.
type Resolver interface {
	Kind() domain.SourceKind
	Resolve(ctx context.Context, target classifier.Classification) (*domain.RawMetadata, error)
}

type ServiceStore interface {
	GetOrCreate(ctx context.Context, name domain.ServiceName) (*domain.Service, error)
}

type AuthorStore interface {
	GetOrCreate(ctx context.Context, creator *domain.CreatorResult, serviceID int64) (*domain.Author, error)
}

type ContentStore interface {
	Insert(ctx context.Context, content *domain.Content) error
	GetByID(ctx context.Context, id int64) (*domain.Content, error)
}

type Publisher interface {
	Publish(ctx context.Context, resolution *domain.Resolution) error
	Close() error
}
