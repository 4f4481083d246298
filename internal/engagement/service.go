// Package engagement toggles like and subscription edges.
package engagement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/events"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
)

// LikeStore flips like edges atomically.
type LikeStore interface {
	ToggleLike(ctx context.Context, like models.Like) (bool, error)
}

// SubscriptionStore flips subscription edges atomically.
type SubscriptionStore interface {
	ToggleSubscription(ctx context.Context, sub models.Subscription) (bool, error)
}

// ChannelLookup confirms a channel exists before subscribing to it.
type ChannelLookup interface {
	FindByID(ctx context.Context, userID string) (models.User, error)
}

var (
	// ErrSelfSubscription rejects subscribing to one's own channel.
	ErrSelfSubscription = apperror.New(apperror.KindValidation, "you cannot subscribe to your own channel")
	// ErrChannelNotFound indicates the channel being subscribed to does not exist.
	ErrChannelNotFound = apperror.New(apperror.KindNotFound, "channel does not exist")
)

var likeEvents = map[models.LikeTarget][2]string{
	models.LikeTargetVideo:   {events.TypeVideoLiked, events.TypeVideoUnliked},
	models.LikeTargetComment: {events.TypeCommentLiked, events.TypeCommentUnliked},
	models.LikeTargetTweet:   {events.TypeTweetLiked, events.TypeTweetUnliked},
}

// Service serializes toggles per (target, actor) and reports each change
// to the event publisher.
type Service struct {
	likes     LikeStore
	subs      SubscriptionStore
	channels  ChannelLookup
	publisher events.Publisher
	locks     *keyLock

	NowFunc func() time.Time
}

// NewService wires a Service. A nil publisher discards events.
func NewService(likes LikeStore, subs SubscriptionStore, channels ChannelLookup, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		likes:     likes,
		subs:      subs,
		channels:  channels,
		publisher: publisher,
		locks:     newKeyLock(),
	}
}

// ToggleVideoLike likes videoID for actorID, or removes the like.
func (s *Service) ToggleVideoLike(ctx context.Context, actorID, videoID string) (bool, error) {
	return s.toggleLike(ctx, models.LikeTargetVideo, actorID, videoID)
}

// ToggleCommentLike likes commentID for actorID, or removes the like.
func (s *Service) ToggleCommentLike(ctx context.Context, actorID, commentID string) (bool, error) {
	return s.toggleLike(ctx, models.LikeTargetComment, actorID, commentID)
}

// ToggleTweetLike likes tweetID for actorID, or removes the like.
func (s *Service) ToggleTweetLike(ctx context.Context, actorID, tweetID string) (bool, error) {
	return s.toggleLike(ctx, models.LikeTargetTweet, actorID, tweetID)
}

func (s *Service) toggleLike(ctx context.Context, kind models.LikeTarget, actorID, targetID string) (bool, error) {
	if actorID == "" {
		return false, apperror.New(apperror.KindInvalidToken, "unauthorized request")
	}
	if !validID(targetID) {
		return false, apperror.Validation("please provide a valid " + string(kind) + "Id")
	}

	release := s.locks.lock("like:" + string(kind) + ":" + targetID + ":" + actorID)
	defer release()

	now := s.now()
	liked, err := s.likes.ToggleLike(ctx, models.Like{
		ID:         uuid.NewString(),
		TargetKind: kind,
		TargetID:   targetID,
		LikedBy:    actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return false, classify("failed to toggle like", err)
	}

	types := likeEvents[kind]
	eventType := types[1]
	if liked {
		eventType = types[0]
	}
	s.publish(ctx, events.Event{Type: eventType, ActorID: actorID, TargetID: targetID, OccurredAt: now})
	return liked, nil
}

// ToggleSubscription subscribes subscriberID to channelID, or unsubscribes.
func (s *Service) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if subscriberID == "" {
		return false, apperror.New(apperror.KindInvalidToken, "unauthorized request")
	}
	if !validID(channelID) {
		return false, apperror.Validation("please provide a valid channelId")
	}
	if subscriberID == channelID {
		return false, ErrSelfSubscription
	}

	if _, err := s.channels.FindByID(ctx, channelID); err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return false, ErrChannelNotFound
		}
		return false, apperror.Internal("failed to load channel", err)
	}

	release := s.locks.lock("sub:" + channelID + ":" + subscriberID)
	defer release()

	now := s.now()
	subscribed, err := s.subs.ToggleSubscription(ctx, models.Subscription{
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    now,
	})
	if err != nil {
		return false, classify("failed to toggle subscription", err)
	}

	eventType := events.TypeChannelUnsubscribed
	if subscribed {
		eventType = events.TypeChannelSubscribed
	}
	s.publish(ctx, events.Event{Type: eventType, ActorID: subscriberID, TargetID: channelID, OccurredAt: now})
	return subscribed, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("publish engagement event failed",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

// classify keeps classified store errors (conflict, not found) and wraps the rest.
func classify(message string, err error) error {
	switch apperror.KindOf(err) {
	case apperror.KindConflict, apperror.KindNotFound:
		return err
	}
	return apperror.Internal(message, err)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
