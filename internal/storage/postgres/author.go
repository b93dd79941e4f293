package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"content_resolver/internal/domain"
)

const maxConflictAttempts = 3

type AuthorStore struct {
	db *sqlx.DB
	tm *TransactionManager
}

func NewAuthorStore(db *sqlx.DB, tm *TransactionManager) *AuthorStore {
	return &AuthorStore{db: db, tm: tm}
}

// GetOrCreate finds the author known on serviceID as creator.ExternalID,
// refreshing its profile, or creates the author together with its service
// link. Each attempt runs in its own transaction; an attempt that loses a
// creation race rolls back and the next one finds the winner's row.
func (s *AuthorStore) GetOrCreate(ctx context.Context, creator *domain.CreatorResult, serviceID int64) (*domain.Author, error) {
	if creator == nil || strings.TrimSpace(creator.Name) == "" || strings.TrimSpace(creator.ExternalID) == "" {
		return nil, fmt.Errorf("author without name or external id: %w", domain.ErrPersistenceFailed)
	}

	var lastErr error
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		var author *domain.Author
		err := s.tm.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			author, err = s.getOrCreate(txCtx, creator, serviceID)
			return err
		})
		if err == nil {
			return author, nil
		}
		if !errors.Is(err, domain.ErrPersistenceConflict) {
			return nil, fmt.Errorf("get or create author %q: %w", creator.ExternalID, err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("get or create author %q after %d attempts: %w: %w",
		creator.ExternalID, maxConflictAttempts, domain.ErrPersistenceFailed, lastErr)
}

func (s *AuthorStore) getOrCreate(ctx context.Context, creator *domain.CreatorResult, serviceID int64) (*domain.Author, error) {
	exec := GetExecutor(ctx, s.db)

	var authorID int64
	err := sqlx.GetContext(ctx, exec, &authorID, `
		SELECT author_id
		FROM author_services
		WHERE service_id = $1 AND external_id = $2
		FOR UPDATE`,
		serviceID, creator.ExternalID,
	)
	switch {
	case err == nil:
		return s.update(ctx, exec, authorID, serviceID, creator)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("find author link: %w: %w", domain.ErrPersistenceFailed, err)
	}

	var author domain.Author
	err = sqlx.GetContext(ctx, exec, &author, `
		INSERT INTO author (name, image, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, image, description, created_at, updated_at`,
		creator.Name, creator.Image, creator.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert author: %w: %w", domain.ErrPersistenceFailed, err)
	}

	res, err := exec.ExecContext(ctx, `
		INSERT INTO author_services (author_id, service_id, external_id, service_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`,
		author.ID, serviceID, creator.ExternalID, creator.ProfileURL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("link author: %w", domain.ErrPersistenceConflict)
		}
		return nil, fmt.Errorf("link author: %w: %w", domain.ErrPersistenceFailed, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("link author: %w: %w", domain.ErrPersistenceFailed, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("link author %q: %w", creator.ExternalID, domain.ErrPersistenceConflict)
	}

	return &author, nil
}

// update refreshes the profile of a known author. Fields the new resolution
// did not supply keep their stored values.
func (s *AuthorStore) update(ctx context.Context, exec sqlx.ExtContext, authorID, serviceID int64, creator *domain.CreatorResult) (*domain.Author, error) {
	var author domain.Author
	err := sqlx.GetContext(ctx, exec, &author, `
		UPDATE author SET
			name = $2,
			image = COALESCE($3, image),
			description = COALESCE($4, description),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, image, description, created_at, updated_at`,
		authorID, creator.Name, creator.Image, creator.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("update author %d: %w: %w", authorID, domain.ErrPersistenceFailed, err)
	}

	if creator.ProfileURL != nil {
		_, err = exec.ExecContext(ctx,
			"UPDATE author_services SET service_url = $3 WHERE author_id = $1 AND service_id = $2",
			authorID, serviceID, creator.ProfileURL,
		)
		if err != nil {
			return nil, fmt.Errorf("update author link %d: %w: %w", authorID, domain.ErrPersistenceFailed, err)
		}
	}

	return &author, nil
}
