package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/pagination"
	"github.com/vidshare/backend/internal/respond"
	"github.com/vidshare/backend/internal/videos"
)

// VideoService implements the catalog and comment operations.
type VideoService interface {
	List(ctx context.Context, q videos.ListQuery) (pagination.Page[models.Video], error)
	Get(ctx context.Context, videoID, viewerID string) (models.Video, error)
	Publish(ctx context.Context, ownerID string, in videos.PublishInput) (models.Video, error)
	Update(ctx context.Context, callerID, videoID string, in videos.UpdateInput) (models.Video, error)
	Delete(ctx context.Context, callerID, videoID string) (models.Video, error)
	TogglePublish(ctx context.Context, callerID, videoID string) (models.Video, error)

	ListComments(ctx context.Context, videoID, viewerID string, page, limit int) (pagination.Page[models.Comment], error)
	AddComment(ctx context.Context, authorID, videoID, content string) (models.Comment, error)
	UpdateComment(ctx context.Context, callerID, commentID, content string) (models.Comment, error)
	DeleteComment(ctx context.Context, callerID, commentID string) (models.Comment, error)
}

// VideoHandler provides endpoints for publishing and browsing videos.
type VideoHandler struct {
	Videos VideoService
}

type updateVideoRequest struct {
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit, err := pageQuery(r)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	query := r.URL.Query()
	result, err := h.Videos.List(ctx, videos.ListQuery{
		OwnerID:  strings.TrimSpace(query.Get("userId")),
		ViewerID: middleware.UserIDFromContext(ctx),
		Query:    strings.TrimSpace(query.Get("query")),
		SortBy:   strings.TrimSpace(query.Get("sortBy")),
		SortType: strings.TrimSpace(query.Get("sortType")),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "videos fetched successfully", result)
}

// Get handles GET /api/v1/videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.Get(ctx, r.PathValue("videoId"), middleware.UserIDFromContext(ctx))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "video fetched successfully", video)
}

// Publish handles POST /api/v1/videos. The body is multipart with the
// videoFile and thumbNail files alongside title, description and duration.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cleanup, err := parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	var duration float64
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			respond.Error(ctx, w, apperror.Validation("duration must be a number"))
			return
		}
	}

	in := videos.PublishInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Duration:    duration,
	}

	videoFile, videoName, err := formFile(r, "videoFile")
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	if videoFile != nil {
		defer videoFile.Close()
		in.Video = videos.Upload{Filename: videoName, Body: videoFile}
	}

	thumb, thumbName, err := formFile(r, "thumbNail")
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	if thumb != nil {
		defer thumb.Close()
		in.Thumbnail = videos.Upload{Filename: thumbName, Body: thumb}
	}

	video, err := h.Videos.Publish(ctx, middleware.UserIDFromContext(ctx), in)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusCreated, "video published successfully", video)
}

// Update handles PATCH /api/v1/videos/{videoId}. A JSON body changes the
// text fields; a multipart body may also carry a new thumbNail.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in videos.UpdateInput
	if isMultipart(r) {
		cleanup, err := parseMultipart(w, r)
		defer cleanup()
		if err != nil {
			respond.Error(ctx, w, err)
			return
		}
		in.Title = r.FormValue("title")
		in.Description = r.FormValue("description")

		thumb, name, err := formFile(r, "thumbNail")
		if err != nil {
			respond.Error(ctx, w, err)
			return
		}
		if thumb != nil {
			defer thumb.Close()
			in.Thumbnail = &videos.Upload{Filename: name, Body: thumb}
		}
	} else {
		var req updateVideoRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respond.Error(ctx, w, err)
			return
		}
		in.Title = req.Title
		in.Description = req.Description
	}

	video, err := h.Videos.Update(ctx, middleware.UserIDFromContext(ctx), r.PathValue("videoId"), in)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "video updated successfully", video)
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.Delete(ctx, middleware.UserIDFromContext(ctx), r.PathValue("videoId"))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "video deleted successfully", video)
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video, err := h.Videos.TogglePublish(ctx, middleware.UserIDFromContext(ctx), r.PathValue("videoId"))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "publish status toggled", video)
}

// ListComments handles GET /api/v1/comments/{videoId}.
func (h VideoHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, limit, err := pageQuery(r)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	comments, err := h.Videos.ListComments(ctx, r.PathValue("videoId"), middleware.UserIDFromContext(ctx), page, limit)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "comments fetched successfully", comments)
}

// AddComment handles POST /api/v1/comments/{videoId}.
func (h VideoHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	comment, err := h.Videos.AddComment(ctx, middleware.UserIDFromContext(ctx), r.PathValue("videoId"), req.Content)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusCreated, "comment added", comment)
}

// UpdateComment handles PATCH /api/v1/comments/c/{commentId}.
func (h VideoHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	comment, err := h.Videos.UpdateComment(ctx, middleware.UserIDFromContext(ctx), r.PathValue("commentId"), req.Content)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "comment updated", comment)
}

// DeleteComment handles DELETE /api/v1/comments/c/{commentId}.
func (h VideoHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	comment, err := h.Videos.DeleteComment(ctx, middleware.UserIDFromContext(ctx), r.PathValue("commentId"))
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}
	respond.OK(ctx, w, http.StatusOK, "comment deleted", comment)
}
