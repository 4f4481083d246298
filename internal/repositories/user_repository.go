package repositories

import (
	"context"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/models"
)

// UserRepository defines the data access contract for users. Every read
// except the auth.CredentialStore methods returns public fields only.
type UserRepository interface {
	auth.CredentialStore

	FindByID(ctx context.Context, userID string) (models.User, error)
	FindByHandle(ctx context.Context, handle string) (models.User, error)
	FindManyByIDs(ctx context.Context, userIDs []string) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID, fullName, email string) (models.User, error)
	// UpdateAvatar stores url and returns the previous avatar url.
	UpdateAvatar(ctx context.Context, userID, url string) (string, error)
	// UpdateCoverImage stores url and returns the previous cover image url.
	UpdateCoverImage(ctx context.Context, userID, url string) (string, error)
	// AppendWatchHistory moves videoID to the most recent end of the history.
	AppendWatchHistory(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]string, error)
}
