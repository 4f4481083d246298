package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/pagination"
	"github.com/vidshare/backend/internal/respond"
)

// AccountService manages the caller's own profile.
type AccountService interface {
	CurrentUser(ctx context.Context, userID string) (models.User, error)
	UpdateDetails(ctx context.Context, userID, fullName, email string) (models.User, error)
	ReplaceAvatar(ctx context.Context, userID, filename string, r io.Reader) (string, error)
	ReplaceCoverImage(ctx context.Context, userID, filename string, r io.Reader) (string, error)
}

// GraphService computes the derived cross-collection views.
type GraphService interface {
	ChannelProfile(ctx context.Context, handle, viewerID string) (models.ChannelProfile, error)
	LikedVideos(ctx context.Context, viewerID string) ([]models.LikedVideo, error)
	WatchHistory(ctx context.Context, viewerID string) ([]models.WatchedVideo, error)
}

// UserHandler serves profile, channel and history endpoints.
type UserHandler struct {
	Accounts AccountService
	Graph    GraphService
}

type updateDetailsRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Accounts.CurrentUser(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "current user fetched successfully", user)
}

// UpdateDetails handles PATCH /api/v1/users/update-user-details.
func (h UserHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateDetailsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	user, err := h.Accounts.UpdateDetails(ctx, middleware.UserIDFromContext(ctx), req.FullName, req.Email)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "Account details updated successfully", user)
}

// ChangeAvatar handles POST /api/v1/users/change-avatar.
func (h UserHandler) ChangeAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", "Avatar updated successfully", h.Accounts.ReplaceAvatar)
}

// ChangeCoverImage handles POST /api/v1/users/change-coverImage.
func (h UserHandler) ChangeCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", "Cover image updated successfully", h.Accounts.ReplaceCoverImage)
}

func (h UserHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field, message string,
	replace func(ctx context.Context, userID, filename string, r io.Reader) (string, error),
) {
	ctx := r.Context()

	cleanup, err := parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	file, filename, err := formFile(r, field)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	if file == nil {
		respond.Error(ctx, w, apperror.Validation(field+" file is missing"))
		return
	}
	defer file.Close()

	location, err := replace(ctx, middleware.UserIDFromContext(ctx), filename, file)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	user, err := h.Accounts.CurrentUser(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	if field == "avatar" {
		user.Avatar = location
	} else {
		user.CoverImage = location
	}
	respond.OK(ctx, w, http.StatusOK, message, user)
}

// Channel handles GET /api/v1/users/channel/{userName}. Anonymous viewers
// are allowed; isSubscribed is then always false.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	handle := strings.TrimSpace(r.PathValue("userName"))
	if handle == "" {
		respond.Error(ctx, w, apperror.Validation("username is missing"))
		return
	}

	profile, err := h.Graph.ChannelProfile(ctx, handle, middleware.UserIDFromContext(ctx))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "User channel fetched successfully", profile)
}

// History handles GET /api/v1/users/history.
func (h UserHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit, err := pageQuery(r)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	history, err := h.Graph.WatchHistory(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	window, err := pagination.Paginate(history, page, limit)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "Watch history fetched successfully", window)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h UserHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	liked, err := h.Graph.LikedVideos(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	if liked == nil {
		liked = []models.LikedVideo{}
	}
	respond.OK(ctx, w, http.StatusOK, "liked videos fetched successfully", liked)
}
