package models

import "time"

// User represents a channel owner / viewer account. PasswordHash and
// RefreshToken are only populated on credential read paths and never leave
// the service.
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"userName"`
	Email            string    `json:"email"`
	FullName         string    `json:"fullName"`
	Avatar           string    `json:"avatar"`
	CoverImage       string    `json:"coverImage"`
	PasswordHash     string    `json:"-"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
	WatchHistory     []string  `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Public returns a copy of the user with every secret field cleared.
func (u User) Public() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	u.RefreshExpiresAt = time.Time{}
	u.WatchHistory = nil
	return u
}

// Video is an uploaded video owned by a channel.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbNail"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Comment is a viewer comment on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LikeTarget names the kind of record a like points at.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// Valid reports whether t is one of the known like targets.
func (t LikeTarget) Valid() bool {
	switch t {
	case LikeTargetVideo, LikeTargetComment, LikeTargetTweet:
		return true
	}
	return false
}

// Like is an edge from a viewer to exactly one video, comment or tweet.
type Like struct {
	ID         string     `json:"id"`
	TargetKind LikeTarget `json:"targetKind"`
	TargetID   string     `json:"targetId"`
	LikedBy    string     `json:"likedBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Subscription is a directed edge from a subscriber to a channel.
type Subscription struct {
	SubscriberID string    `json:"subscriber"`
	ChannelID    string    `json:"channel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// ChannelProfile is the public view of a channel with its derived counts.
type ChannelProfile struct {
	ID                string    `json:"id"`
	Username          string    `json:"userName"`
	FullName          string    `json:"fullName"`
	Email             string    `json:"email"`
	Avatar            string    `json:"avatar"`
	CoverImage        string    `json:"coverImage"`
	SubscriberCount   int64     `json:"subscribersCount"`
	SubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed      bool      `json:"isSubscribed"`
	CreatedAt         time.Time `json:"createdAt"`
}

// LikedVideoOwner is the owner projection embedded in liked video listings.
type LikedVideoOwner struct {
	Username string `json:"userName"`
	Avatar   string `json:"avatar"`
	Email    string `json:"email"`
}

// LikedVideo is one entry of a viewer's liked video listing.
type LikedVideo struct {
	LikeID    string          `json:"id"`
	LikedAt   time.Time       `json:"likedAt"`
	VideoID   string          `json:"videoId"`
	Title     string          `json:"title"`
	Duration  float64         `json:"duration"`
	Thumbnail string          `json:"thumbNail"`
	Views     int64           `json:"views"`
	Owner     LikedVideoOwner `json:"owner"`
}

// HistoryOwner is the owner projection embedded in watch history entries.
type HistoryOwner struct {
	FullName string `json:"fullName"`
	Username string `json:"userName"`
	Avatar   string `json:"avatar"`
}

// WatchedVideo is one resolved entry of a viewer's watch history.
type WatchedVideo struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	VideoFile   string       `json:"videoFile"`
	Thumbnail   string       `json:"thumbNail"`
	Duration    float64      `json:"duration"`
	Views       int64        `json:"views"`
	CreatedAt   time.Time    `json:"createdAt"`
	Owner       HistoryOwner `json:"owner"`
}
