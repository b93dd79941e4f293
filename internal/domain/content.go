package domain

import "time"

type ContentType string

const (
	ContentAudio   ContentType = "audio"
	ContentVideo   ContentType = "video"
	ContentArticle ContentType = "article"
	ContentPost    ContentType = "post"
	ContentImage   ContentType = "image"
	ContentLink    ContentType = "link"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentAudio, ContentVideo, ContentArticle, ContentPost, ContentImage, ContentLink:
		return true
	}
	return false
}

type Content struct {
	ID            int64       `db:"id" json:"id"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
	PublishedDate *time.Time  `db:"published_date" json:"published_date"`
	URL           string      `db:"url" json:"url"`
	Title         *string     `db:"title" json:"title"`
	Description   *string     `db:"description" json:"description"`
	Type          ContentType `db:"type" json:"type"`
	Image         *string     `db:"image" json:"image"`
	Duration      *int        `db:"duration" json:"duration"` // seconds
	AuthorID      *int64      `db:"author_id" json:"author_id"`
	ServiceID     int64       `db:"service_id" json:"service_id"`
}
