package domain

import "time"

type Author struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Image       *string   `db:"image" json:"image"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AuthorService records that an author is known on a service under
// ExternalID. (AuthorID, ServiceID) and (ServiceID, ExternalID) are unique.
type AuthorService struct {
	AuthorID   int64     `db:"author_id" json:"author_id"`
	ServiceID  int64     `db:"service_id" json:"service_id"`
	ExternalID string    `db:"external_id" json:"external_id"`
	ServiceURL *string   `db:"service_url" json:"service_url"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
