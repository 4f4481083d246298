package handlers

import (
	"context"
	"net/http"

	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/respond"
)

// EngagementService toggles likes and subscriptions.
type EngagementService interface {
	ToggleVideoLike(ctx context.Context, actorID, videoID string) (bool, error)
	ToggleCommentLike(ctx context.Context, actorID, commentID string) (bool, error)
	ToggleTweetLike(ctx context.Context, actorID, tweetID string) (bool, error)
	ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// EngagementHandler serves the like and subscription toggles.
type EngagementHandler struct {
	Engagement EngagementService
}

type likeState struct {
	Liked bool `json:"liked"`
}

type subscriptionState struct {
	Subscribed bool `json:"subscribed"`
}

// ToggleVideoLike handles POST /api/v1/likes/toggle/v/{videoId}.
func (h EngagementHandler) ToggleVideoLike(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, "videoId", h.Engagement.ToggleVideoLike)
}

// ToggleCommentLike handles POST /api/v1/likes/toggle/c/{commentId}.
func (h EngagementHandler) ToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, "commentId", h.Engagement.ToggleCommentLike)
}

// ToggleTweetLike handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h EngagementHandler) ToggleTweetLike(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, "tweetId", h.Engagement.ToggleTweetLike)
}

func (h EngagementHandler) toggleLike(
	w http.ResponseWriter,
	r *http.Request,
	param string,
	toggle func(ctx context.Context, actorID, targetID string) (bool, error),
) {
	ctx := r.Context()

	liked, err := toggle(ctx, middleware.UserIDFromContext(ctx), r.PathValue(param))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	message := "like removed"
	if liked {
		message = "liked successfully"
	}
	respond.OK(ctx, w, http.StatusOK, message, likeState{Liked: liked})
}

// ToggleSubscription handles POST /api/v1/subscriptions/c/{channelId}.
func (h EngagementHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscribed, err := h.Engagement.ToggleSubscription(ctx, middleware.UserIDFromContext(ctx), r.PathValue("channelId"))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	message := "unsubscribed successfully"
	if subscribed {
		message = "subscribed successfully"
	}
	respond.OK(ctx, w, http.StatusOK, message, subscriptionState{Subscribed: subscribed})
}
