package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/models"
)

// MemoryStore implements every repository contract on in-memory maps. It is
// used by tests and by local development when no database is configured.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.User
	videos        map[string]models.Video
	comments      map[string]models.Comment
	likes         map[likeKey]models.Like
	subscriptions map[subscriptionKey]models.Subscription

	// NowFunc stamps edges and updates. Defaults to time.Now in UTC.
	NowFunc func() time.Time
}

type likeKey struct {
	kind    models.LikeTarget
	target  string
	likedBy string
}

type subscriptionKey struct {
	subscriber string
	channel    string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]models.User),
		videos:        make(map[string]models.Video),
		comments:      make(map[string]models.Comment),
		likes:         make(map[likeKey]models.Like),
		subscriptions: make(map[subscriptionKey]models.Subscription),
	}
}

func (s *MemoryStore) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

// Users returns a view of the store satisfying UserRepository.
func (s *MemoryStore) Users() *MemoryUsers { return (*MemoryUsers)(s) }

// Videos returns a view of the store satisfying VideoRepository.
func (s *MemoryStore) Videos() *MemoryVideos { return (*MemoryVideos)(s) }

// Comments returns a view of the store satisfying CommentRepository.
func (s *MemoryStore) Comments() *MemoryComments { return (*MemoryComments)(s) }

// MemoryUsers is the user view of a MemoryStore.
type MemoryUsers MemoryStore

// Create stores a new user. Handles and emails are unique case-insensitively.
func (r *MemoryUsers) Create(_ context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return ErrConflict
	}
	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return ErrConflict
		}
	}
	user.WatchHistory = append([]string(nil), user.WatchHistory...)
	r.users[user.ID] = user
	return nil
}

// FindByIdentifier matches identifier against handle or email, case-insensitively.
func (r *MemoryUsers) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Username, identifier) || strings.EqualFold(user.Email, identifier) {
			return cloneUser(user), nil
		}
	}
	return models.User{}, ErrNotFound
}

// FindCredentialsByID returns the full record, secrets included.
func (r *MemoryUsers) FindCredentialsByID(_ context.Context, userID string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

// SaveSession overwrites the identity's session.
func (r *MemoryUsers) SaveSession(_ context.Context, session auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[session.UserID]
	if !ok {
		return ErrNotFound
	}
	user.RefreshToken = session.RefreshToken
	user.RefreshExpiresAt = session.ExpiresAt
	r.users[user.ID] = user
	return nil
}

// RotateSession swaps the session only while previousToken is still current.
func (r *MemoryUsers) RotateSession(_ context.Context, previousToken string, next auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[next.UserID]
	if !ok || user.RefreshToken == "" || user.RefreshToken != previousToken {
		return auth.ErrSessionNotFound
	}
	user.RefreshToken = next.RefreshToken
	user.RefreshExpiresAt = next.ExpiresAt
	r.users[user.ID] = user
	return nil
}

// ClearSession removes the identity's session.
func (r *MemoryUsers) ClearSession(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.RefreshToken = ""
	user.RefreshExpiresAt = time.Time{}
	r.users[userID] = user
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *MemoryUsers) UpdatePassword(_ context.Context, userID, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = updatedAt
	r.users[userID] = user
	return nil
}

// FindByID returns the public view of a user.
func (r *MemoryUsers) FindByID(_ context.Context, userID string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user.Public(), nil
}

// FindByHandle returns the public view of the user owning handle.
func (r *MemoryUsers) FindByHandle(_ context.Context, handle string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Username, handle) {
			return user.Public(), nil
		}
	}
	return models.User{}, ErrNotFound
}

// FindManyByIDs returns the users that exist among userIDs, in no particular order.
func (r *MemoryUsers) FindManyByIDs(_ context.Context, userIDs []string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make([]models.User, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if user, ok := r.users[id]; ok {
			found = append(found, user.Public())
		}
	}
	return found, nil
}

// UpdateProfile changes the user's full name and email.
func (r *MemoryUsers) UpdateProfile(_ context.Context, userID, fullName, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	for id, existing := range r.users {
		if id != userID && strings.EqualFold(existing.Email, email) {
			return models.User{}, ErrConflict
		}
	}
	user.FullName = fullName
	user.Email = email
	user.UpdatedAt = (*MemoryStore)(r).now()
	r.users[userID] = user
	return user.Public(), nil
}

// UpdateAvatar stores url and returns the previous value.
func (r *MemoryUsers) UpdateAvatar(_ context.Context, userID, url string) (string, error) {
	return r.swapImage(userID, func(u *models.User) *string { return &u.Avatar }, url)
}

// UpdateCoverImage stores url and returns the previous value.
func (r *MemoryUsers) UpdateCoverImage(_ context.Context, userID, url string) (string, error) {
	return r.swapImage(userID, func(u *models.User) *string { return &u.CoverImage }, url)
}

func (r *MemoryUsers) swapImage(userID string, field func(*models.User) *string, url string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return "", ErrNotFound
	}
	slot := field(&user)
	previous := *slot
	*slot = url
	user.UpdatedAt = (*MemoryStore)(r).now()
	r.users[userID] = user
	return previous, nil
}

// AppendWatchHistory moves videoID to the end of the user's history.
func (r *MemoryUsers) AppendWatchHistory(_ context.Context, userID, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	history := make([]string, 0, len(user.WatchHistory)+1)
	for _, id := range user.WatchHistory {
		if id != videoID {
			history = append(history, id)
		}
	}
	user.WatchHistory = append(history, videoID)
	r.users[userID] = user
	return nil
}

// WatchHistory returns the user's watched video ids, oldest first.
func (r *MemoryUsers) WatchHistory(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string(nil), user.WatchHistory...), nil
}

// MemoryVideos is the video view of a MemoryStore.
type MemoryVideos MemoryStore

// Create stores a new video.
func (r *MemoryVideos) Create(_ context.Context, video models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.videos[video.ID]; ok {
		return ErrConflict
	}
	r.videos[video.ID] = video
	return nil
}

// FindByID returns a single video.
func (r *MemoryVideos) FindByID(_ context.Context, videoID string) (models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	video, ok := r.videos[videoID]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

// FindManyByIDs returns the videos that exist among videoIDs, in no particular order.
func (r *MemoryVideos) FindManyByIDs(_ context.Context, videoIDs []string) ([]models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make([]models.Video, 0, len(videoIDs))
	seen := make(map[string]struct{}, len(videoIDs))
	for _, id := range videoIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if video, ok := r.videos[id]; ok {
			found = append(found, video)
		}
	}
	return found, nil
}

// List returns videos newest first, optionally restricted to one owner.
func (r *MemoryVideos) List(_ context.Context, ownerID string) ([]models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []models.Video
	for _, video := range r.videos {
		if ownerID != "" && video.OwnerID != ownerID {
			continue
		}
		list = append(list, video)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// UpdateDetails replaces the title, description and thumbnail of a video.
// Empty values leave the existing field untouched.
func (r *MemoryVideos) UpdateDetails(_ context.Context, videoID, title, description, thumbnail string) (models.Video, error) {
	return r.mutate(videoID, func(v *models.Video) {
		if title != "" {
			v.Title = title
		}
		if description != "" {
			v.Description = description
		}
		if thumbnail != "" {
			v.Thumbnail = thumbnail
		}
	})
}

// SetPublished sets the publish flag.
func (r *MemoryVideos) SetPublished(_ context.Context, videoID string, published bool) (models.Video, error) {
	return r.mutate(videoID, func(v *models.Video) { v.IsPublished = published })
}

// IncrementViews adds one view.
func (r *MemoryVideos) IncrementViews(_ context.Context, videoID string) error {
	_, err := r.mutate(videoID, func(v *models.Video) { v.Views++ })
	return err
}

// Delete removes a video with its comments and returns what was stored.
func (r *MemoryVideos) Delete(_ context.Context, videoID string) (models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	video, ok := r.videos[videoID]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	delete(r.videos, videoID)
	for id, comment := range r.comments {
		if comment.VideoID == videoID {
			delete(r.comments, id)
		}
	}
	return video, nil
}

func (r *MemoryVideos) mutate(videoID string, apply func(*models.Video)) (models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	video, ok := r.videos[videoID]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	apply(&video)
	video.UpdatedAt = (*MemoryStore)(r).now()
	r.videos[videoID] = video
	return video, nil
}

// MemoryComments is the comment view of a MemoryStore.
type MemoryComments MemoryStore

// Create stores a new comment.
func (r *MemoryComments) Create(_ context.Context, comment models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.comments[comment.ID]; ok {
		return ErrConflict
	}
	r.comments[comment.ID] = comment
	return nil
}

// FindByID returns a single comment.
func (r *MemoryComments) FindByID(_ context.Context, commentID string) (models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	comment, ok := r.comments[commentID]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	return comment, nil
}

// ListForVideo returns a video's comments, newest first.
func (r *MemoryComments) ListForVideo(_ context.Context, videoID string) ([]models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []models.Comment
	for _, comment := range r.comments {
		if comment.VideoID == videoID {
			list = append(list, comment)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// UpdateContent replaces a comment's text.
func (r *MemoryComments) UpdateContent(_ context.Context, commentID, content string) (models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, ok := r.comments[commentID]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	comment.Content = content
	comment.UpdatedAt = (*MemoryStore)(r).now()
	r.comments[commentID] = comment
	return comment, nil
}

// Delete removes a comment and returns what was stored.
func (r *MemoryComments) Delete(_ context.Context, commentID string) (models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, ok := r.comments[commentID]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	delete(r.comments, commentID)
	return comment, nil
}

// ToggleLike flips the like edge under the store lock.
func (s *MemoryStore) ToggleLike(_ context.Context, like models.Like) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey{kind: like.TargetKind, target: like.TargetID, likedBy: like.LikedBy}
	if _, ok := s.likes[key]; ok {
		delete(s.likes, key)
		return false, nil
	}

	now := s.now()
	if like.ID == "" {
		like.ID = uuid.NewString()
	}
	if like.CreatedAt.IsZero() {
		like.CreatedAt = now
	}
	if like.UpdatedAt.IsZero() {
		like.UpdatedAt = like.CreatedAt
	}
	s.likes[key] = like
	return true, nil
}

// ListVideoLikes returns likerID's video likes, most recently updated first.
func (s *MemoryStore) ListVideoLikes(_ context.Context, likerID string) ([]models.Like, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []models.Like
	for key, like := range s.likes {
		if key.likedBy == likerID && key.kind == models.LikeTargetVideo {
			list = append(list, like)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

// ToggleSubscription flips the subscription edge under the store lock.
func (s *MemoryStore) ToggleSubscription(_ context.Context, sub models.Subscription) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subscriptionKey{subscriber: sub.SubscriberID, channel: sub.ChannelID}
	if _, ok := s.subscriptions[key]; ok {
		delete(s.subscriptions, key)
		return false, nil
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	s.subscriptions[key] = sub
	return true, nil
}

// CountSubscribers counts the subscribers of channelID.
func (s *MemoryStore) CountSubscribers(_ context.Context, channelID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key := range s.subscriptions {
		if key.channel == channelID {
			n++
		}
	}
	return n, nil
}

// CountSubscriptions counts the channels subscriberID follows.
func (s *MemoryStore) CountSubscriptions(_ context.Context, subscriberID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key := range s.subscriptions {
		if key.subscriber == subscriberID {
			n++
		}
	}
	return n, nil
}

// IsSubscribed reports whether the edge subscriberID -> channelID exists.
func (s *MemoryStore) IsSubscribed(_ context.Context, subscriberID, channelID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.subscriptions[subscriptionKey{subscriber: subscriberID, channel: channelID}]
	return ok, nil
}

func cloneUser(user models.User) models.User {
	user.WatchHistory = append([]string(nil), user.WatchHistory...)
	return user
}

var _ UserRepository = (*MemoryUsers)(nil)
var _ VideoRepository = (*MemoryVideos)(nil)
var _ CommentRepository = (*MemoryComments)(nil)
var _ LikeRepository = (*MemoryStore)(nil)
var _ SubscriptionRepository = (*MemoryStore)(nil)
