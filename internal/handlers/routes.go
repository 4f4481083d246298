package handlers

import (
	"net/http"

	"github.com/vidshare/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Sessions   SessionService
	Accounts   AccountService
	Graph      GraphService
	Engagement EngagementService
	Videos     VideoService
	// Limiter guards login and token refresh; nil disables limiting.
	Limiter RateLimiter
	// DB is pinged by the health endpoints when set.
	DB           Pinger
	CookieSecure bool
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	sessions := AuthHandler{Sessions: deps.Sessions, Cookies: CookieConfig{Secure: deps.CookieSecure}}
	users := UserHandler{Accounts: deps.Accounts, Graph: deps.Graph}
	engagement := EngagementHandler{Engagement: deps.Engagement}
	videos := VideoHandler{Videos: deps.Videos}

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(deps.Sessions)(h)
	}
	optional := func(h http.HandlerFunc) http.Handler {
		return middleware.OptionalAuth(deps.Sessions)(h)
	}

	mux.HandleFunc("GET /healthz", health.Handle)
	mux.HandleFunc("GET /api/v1/healthcheck", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", sessions.Register)
	mux.HandleFunc("POST /api/v1/users/login", limitByIP(deps.Limiter, "login", sessions.Login))
	mux.HandleFunc("POST /api/v1/users/generate-token", limitByIP(deps.Limiter, "refresh", sessions.Refresh))
	mux.Handle("POST /api/v1/users/logout", authed(sessions.Logout))
	mux.Handle("POST /api/v1/users/change-password", authed(sessions.ChangePassword))

	mux.Handle("GET /api/v1/users/current-user", authed(users.CurrentUser))
	mux.Handle("PATCH /api/v1/users/update-user-details", authed(users.UpdateDetails))
	mux.Handle("POST /api/v1/users/change-avatar", authed(users.ChangeAvatar))
	mux.Handle("POST /api/v1/users/change-coverImage", authed(users.ChangeCoverImage))
	mux.Handle("GET /api/v1/users/channel/{userName}", optional(users.Channel))
	mux.Handle("GET /api/v1/users/history", authed(users.History))

	mux.Handle("POST /api/v1/likes/toggle/v/{videoId}", authed(engagement.ToggleVideoLike))
	mux.Handle("POST /api/v1/likes/toggle/c/{commentId}", authed(engagement.ToggleCommentLike))
	mux.Handle("POST /api/v1/likes/toggle/t/{tweetId}", authed(engagement.ToggleTweetLike))
	mux.Handle("GET /api/v1/likes/videos", authed(users.LikedVideos))
	mux.Handle("POST /api/v1/subscriptions/c/{channelId}", authed(engagement.ToggleSubscription))

	mux.Handle("GET /api/v1/videos", optional(videos.List))
	mux.Handle("POST /api/v1/videos", authed(videos.Publish))
	mux.Handle("GET /api/v1/videos/{videoId}", optional(videos.Get))
	mux.Handle("PATCH /api/v1/videos/{videoId}", authed(videos.Update))
	mux.Handle("DELETE /api/v1/videos/{videoId}", authed(videos.Delete))
	mux.Handle("PATCH /api/v1/videos/toggle/publish/{videoId}", authed(videos.TogglePublish))

	mux.Handle("GET /api/v1/comments/{videoId}", optional(videos.ListComments))
	mux.Handle("POST /api/v1/comments/{videoId}", authed(videos.AddComment))
	mux.Handle("PATCH /api/v1/comments/c/{commentId}", authed(videos.UpdateComment))
	mux.Handle("DELETE /api/v1/comments/c/{commentId}", authed(videos.DeleteComment))
}
