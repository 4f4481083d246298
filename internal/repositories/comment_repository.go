package repositories

import (
	"context"

	"github.com/vidshare/backend/internal/models"
)

// CommentRepository exposes data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, commentID string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	UpdateContent(ctx context.Context, commentID, content string) (models.Comment, error)
	Delete(ctx context.Context, commentID string) (models.Comment, error)
}
