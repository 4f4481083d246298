package repositories

import (
	"context"

	"github.com/vidshare/backend/internal/models"
)

// LikeRepository stores like edges. ToggleLike removes the edge for
// (like.TargetKind, like.TargetID, like.LikedBy) when present and creates it
// otherwise, as one serialized operation, reporting whether it now exists.
type LikeRepository interface {
	ToggleLike(ctx context.Context, like models.Like) (bool, error)
	// ListVideoLikes returns likerID's video likes, most recently updated first.
	ListVideoLikes(ctx context.Context, likerID string) ([]models.Like, error)
}

// SubscriptionRepository stores subscription edges with the same toggle
// contract as LikeRepository.
type SubscriptionRepository interface {
	ToggleSubscription(ctx context.Context, sub models.Subscription) (bool, error)
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID string) (int64, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
}
