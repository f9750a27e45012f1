package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// VideoFilter narrows and orders a video listing.
type VideoFilter struct {
	Query    string
	OwnerID  string
	SortBy   string
	SortAsc  bool
	Page     int
	Limit    int
	Unlisted bool // include unpublished videos
}

// VideoRepository exposes data access for published videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, filter VideoFilter) ([]models.Video, int64, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}
