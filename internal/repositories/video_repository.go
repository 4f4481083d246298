package repositories

import (
	"context"

	"github.com/vidshare/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, videoID string) (models.Video, error)
	FindManyByIDs(ctx context.Context, videoIDs []string) ([]models.Video, error)
	// List returns every video, or only ownerID's videos when it is set, newest first.
	List(ctx context.Context, ownerID string) ([]models.Video, error)
	UpdateDetails(ctx context.Context, videoID, title, description, thumbnail string) (models.Video, error)
	SetPublished(ctx context.Context, videoID string, published bool) (models.Video, error)
	IncrementViews(ctx context.Context, videoID string) error
	Delete(ctx context.Context, videoID string) (models.Video, error)
}
