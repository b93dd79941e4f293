package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"content_resolver/internal/domain"
)

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

// Insert stores content and fills in its id and timestamps.
func (s *ContentStore) Insert(ctx context.Context, content *domain.Content) error {
	if !content.Type.Valid() {
		return fmt.Errorf("content type %q: %w", content.Type, domain.ErrPersistenceFailed)
	}
	if content.Duration != nil && *content.Duration < 0 {
		return fmt.Errorf("negative duration %d: %w", *content.Duration, domain.ErrPersistenceFailed)
	}

	query := `
		INSERT INTO content (
			published_date, url, title, description, type, image, duration, author_id, service_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id, created_at, updated_at`

	row := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		content.PublishedDate,
		content.URL,
		content.Title,
		content.Description,
		content.Type,
		content.Image,
		content.Duration,
		content.AuthorID,
		content.ServiceID,
	)
	if err := row.Scan(&content.ID, &content.CreatedAt, &content.UpdatedAt); err != nil {
		if isIntegrityViolation(err) {
			return fmt.Errorf("insert content: %w: %s", domain.ErrPersistenceFailed, pqCode(err).Name())
		}
		return fmt.Errorf("insert content: %w: %w", domain.ErrPersistenceFailed, err)
	}

	return nil
}

func (s *ContentStore) GetByID(ctx context.Context, id int64) (*domain.Content, error) {
	var content domain.Content
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &content, `
		SELECT id, created_at, updated_at, published_date, url, title, description,
			type, image, duration, author_id, service_id
		FROM content
		WHERE id = $1`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &content, nil
}
