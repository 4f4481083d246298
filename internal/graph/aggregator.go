// Package graph computes the derived, cross-collection views of a channel and
// a viewer: profile counts, liked videos and watch history. Each view is an
// explicit pipeline of batch reads joined in memory.
package graph

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
)

// ErrChannelNotFound indicates no user owns the requested handle.
var ErrChannelNotFound = apperror.New(apperror.KindNotFound, "channel does not exist")

// UserReader is the read access the aggregator needs to identities.
type UserReader interface {
	FindByHandle(ctx context.Context, handle string) (models.User, error)
	FindManyByIDs(ctx context.Context, userIDs []string) ([]models.User, error)
	WatchHistory(ctx context.Context, userID string) ([]string, error)
}

// VideoReader resolves video ids in batches.
type VideoReader interface {
	FindManyByIDs(ctx context.Context, videoIDs []string) ([]models.Video, error)
}

// SubscriptionReader answers edge counts and existence.
type SubscriptionReader interface {
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID string) (int64, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// LikeReader lists a viewer's video likes, most recently updated first.
type LikeReader interface {
	ListVideoLikes(ctx context.Context, likerID string) ([]models.Like, error)
}

// Aggregator runs the read-only composite queries.
type Aggregator struct {
	users  UserReader
	videos VideoReader
	subs   SubscriptionReader
	likes  LikeReader
}

// NewAggregator wires an Aggregator over its read dependencies.
func NewAggregator(users UserReader, videos VideoReader, subs SubscriptionReader, likes LikeReader) *Aggregator {
	return &Aggregator{users: users, videos: videos, subs: subs, likes: likes}
}

// ChannelProfile resolves handle case-insensitively and attaches its
// subscriber counts and whether viewerID subscribes to it. viewerID may be
// empty for anonymous viewers.
func (a *Aggregator) ChannelProfile(ctx context.Context, handle, viewerID string) (models.ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "graph.channel_profile")
	defer span.End()

	handle = strings.TrimSpace(handle)
	if handle == "" {
		return models.ChannelProfile{}, apperror.Validation("username is missing")
	}

	channel, err := a.users.FindByHandle(ctx, handle)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return models.ChannelProfile{}, ErrChannelNotFound
		}
		return models.ChannelProfile{}, apperror.Internal("failed to load channel", err)
	}

	subscribers, err := a.subs.CountSubscribers(ctx, channel.ID)
	if err != nil {
		return models.ChannelProfile{}, apperror.Internal("failed to count subscribers", err)
	}

	subscribedTo, err := a.subs.CountSubscriptions(ctx, channel.ID)
	if err != nil {
		return models.ChannelProfile{}, apperror.Internal("failed to count subscriptions", err)
	}

	var subscribed bool
	if viewerID != "" {
		subscribed, err = a.subs.IsSubscribed(ctx, viewerID, channel.ID)
		if err != nil {
			return models.ChannelProfile{}, apperror.Internal("failed to check subscription", err)
		}
	}

	return models.ChannelProfile{
		ID:                channel.ID,
		Username:          channel.Username,
		FullName:          channel.FullName,
		Email:             channel.Email,
		Avatar:            channel.Avatar,
		CoverImage:        channel.CoverImage,
		SubscriberCount:   subscribers,
		SubscribedToCount: subscribedTo,
		IsSubscribed:      subscribed,
		CreatedAt:         channel.CreatedAt,
	}, nil
}

// LikedVideos lists the videos viewerID liked, most recent like first. Likes
// whose video no longer exists are skipped. No likes yields an empty slice.
func (a *Aggregator) LikedVideos(ctx context.Context, viewerID string) ([]models.LikedVideo, error) {
	ctx, span := logging.StartSpan(ctx, "graph.liked_videos")
	defer span.End()

	if viewerID == "" {
		return nil, apperror.Validation("viewer id is required")
	}

	likes, err := a.likes.ListVideoLikes(ctx, viewerID)
	if err != nil {
		return nil, apperror.Internal("failed to load likes", err)
	}

	videoIDs := make([]string, 0, len(likes))
	for _, like := range likes {
		videoIDs = append(videoIDs, like.TargetID)
	}

	videos, owners, err := a.resolveVideos(ctx, videoIDs)
	if err != nil {
		return nil, err
	}

	result := make([]models.LikedVideo, 0, len(likes))
	dropped := 0
	for _, like := range likes {
		video, ok := videos[like.TargetID]
		if !ok {
			dropped++
			continue
		}
		owner := owners[video.OwnerID]
		result = append(result, models.LikedVideo{
			LikeID:    like.ID,
			LikedAt:   like.UpdatedAt,
			VideoID:   video.ID,
			Title:     video.Title,
			Duration:  video.Duration,
			Thumbnail: video.Thumbnail,
			Views:     video.Views,
			Owner: models.LikedVideoOwner{
				Username: owner.Username,
				Avatar:   owner.Avatar,
				Email:    owner.Email,
			},
		})
	}

	span.SetAttributes(slog.Int("items", len(result)), slog.Int("dropped", dropped))
	return result, nil
}

// WatchHistory resolves viewerID's watched videos in stored order. Entries
// referring to deleted videos are dropped.
func (a *Aggregator) WatchHistory(ctx context.Context, viewerID string) ([]models.WatchedVideo, error) {
	ctx, span := logging.StartSpan(ctx, "graph.watch_history")
	defer span.End()

	if viewerID == "" {
		return nil, apperror.Validation("viewer id is required")
	}

	history, err := a.users.WatchHistory(ctx, viewerID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return nil, apperror.New(apperror.KindNotFound, "user not found")
		}
		return nil, apperror.Internal("failed to load watch history", err)
	}

	videos, owners, err := a.resolveVideos(ctx, history)
	if err != nil {
		return nil, err
	}

	result := make([]models.WatchedVideo, 0, len(history))
	dropped := 0
	for _, id := range history {
		video, ok := videos[id]
		if !ok {
			dropped++
			continue
		}
		owner := owners[video.OwnerID]
		result = append(result, models.WatchedVideo{
			ID:          video.ID,
			Title:       video.Title,
			Description: video.Description,
			VideoFile:   video.VideoFile,
			Thumbnail:   video.Thumbnail,
			Duration:    video.Duration,
			Views:       video.Views,
			CreatedAt:   video.CreatedAt,
			Owner: models.HistoryOwner{
				FullName: owner.FullName,
				Username: owner.Username,
				Avatar:   owner.Avatar,
			},
		})
	}

	span.SetAttributes(slog.Int("items", len(result)), slog.Int("dropped", dropped))
	return result, nil
}

// resolveVideos batch-loads the videos named by ids and then their owners,
// returning both keyed by id.
func (a *Aggregator) resolveVideos(ctx context.Context, ids []string) (map[string]models.Video, map[string]models.User, error) {
	videos := make(map[string]models.Video, len(ids))
	owners := make(map[string]models.User)
	if len(ids) == 0 {
		return videos, owners, nil
	}

	found, err := a.videos.FindManyByIDs(ctx, uniq(ids))
	if err != nil {
		return nil, nil, apperror.Internal("failed to load videos", err)
	}

	ownerIDs := make([]string, 0, len(found))
	for _, video := range found {
		videos[video.ID] = video
		ownerIDs = append(ownerIDs, video.OwnerID)
	}
	if len(ownerIDs) == 0 {
		return videos, owners, nil
	}

	users, err := a.users.FindManyByIDs(ctx, uniq(ownerIDs))
	if err != nil {
		return nil, nil, apperror.Internal("failed to load video owners", err)
	}
	for _, user := range users {
		owners[user.ID] = user
	}
	return videos, owners, nil
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
