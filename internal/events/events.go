// Package events publishes engagement events to downstream consumers.
package events

import (
	"context"
	"time"
)

// Event types emitted by the engagement service.
const (
	TypeVideoLiked          = "video.liked"
	TypeVideoUnliked        = "video.unliked"
	TypeCommentLiked        = "comment.liked"
	TypeCommentUnliked      = "comment.unliked"
	TypeTweetLiked          = "tweet.liked"
	TypeTweetUnliked        = "tweet.unliked"
	TypeChannelSubscribed   = "channel.subscribed"
	TypeChannelUnsubscribed = "channel.unsubscribed"
)

// Event is the JSON payload of a published message. Type doubles as the
// routing key.
type Event struct {
	Type       string    `json:"type"`
	ActorID    string    `json:"actorId"`
	TargetID   string    `json:"targetId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }
