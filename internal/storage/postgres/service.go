package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"content_resolver/internal/domain"
)

type ServiceStore struct {
	db *sqlx.DB
}

func NewServiceStore(db *sqlx.DB) *ServiceStore {
	return &ServiceStore{db: db}
}

// GetOrCreate returns the service row for name, creating it on first use.
// Concurrent callers racing on a new name all receive the same row.
func (s *ServiceStore) GetOrCreate(ctx context.Context, name domain.ServiceName) (*domain.Service, error) {
	if !name.Valid() {
		return nil, fmt.Errorf("service name %q: %w", name, domain.ErrPersistenceFailed)
	}

	exec := GetExecutor(ctx, s.db)

	query := `
		INSERT INTO services (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at`

	var service domain.Service
	err := sqlx.GetContext(ctx, exec, &service, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		err = sqlx.GetContext(ctx, exec, &service,
			"SELECT id, name, created_at FROM services WHERE name = $1",
			name,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("get or create service %s: %w: %w", name, domain.ErrPersistenceFailed, err)
	}

	return &service, nil
}
