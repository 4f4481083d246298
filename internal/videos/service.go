// Package videos manages the video catalog, its comments and the media
// objects they reference.
package videos

import (
	"context"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/pagination"
)

// VideoStore persists video records.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, videoID string) (models.Video, error)
	List(ctx context.Context, ownerID string) ([]models.Video, error)
	UpdateDetails(ctx context.Context, videoID, title, description, thumbnail string) (models.Video, error)
	SetPublished(ctx context.Context, videoID string, published bool) (models.Video, error)
	IncrementViews(ctx context.Context, videoID string) error
	Delete(ctx context.Context, videoID string) (models.Video, error)
}

// HistoryRecorder appends a watched video to a viewer's history.
type HistoryRecorder interface {
	AppendWatchHistory(ctx context.Context, userID, videoID string) error
}

// CleanupQueue schedules stored media for background deletion.
type CleanupQueue interface {
	Enqueue(ctx context.Context, locations ...string) error
}

var (
	// ErrVideoNotFound indicates the requested video does not exist or is hidden from the caller.
	ErrVideoNotFound = apperror.New(apperror.KindNotFound, "video not found")
	// ErrNotVideoOwner rejects mutations by anyone but the uploader.
	ErrNotVideoOwner = apperror.New(apperror.KindForbidden, "only the owner can modify this video")
)

// Sort fields accepted by List.
const (
	SortByCreatedAt = "createdAt"
	SortByViews     = "views"
	SortByDuration  = "duration"
	SortByTitle     = "title"
)

// ListQuery filters and windows the catalog.
type ListQuery struct {
	OwnerID  string
	ViewerID string
	// Query matches titles and descriptions case-insensitively.
	Query    string
	SortBy   string
	SortType string
	Page     int
	Limit    int
}

// Upload is one file received from a client.
type Upload struct {
	Filename string
	Body     io.Reader
}

// PublishInput describes a new video. Video and Thumbnail are both required.
type PublishInput struct {
	Title       string
	Description string
	Duration    float64
	Video       Upload
	Thumbnail   Upload
}

// UpdateInput carries the fields to change. Empty strings and a nil
// Thumbnail leave the current value in place.
type UpdateInput struct {
	Title       string
	Description string
	Thumbnail   *Upload
}

// Service implements the catalog operations.
type Service struct {
	videos   VideoStore
	comments CommentStore
	history  HistoryRecorder
	storage  AssetStorage
	cleanup  CleanupQueue

	NowFunc func() time.Time
}

// NewService wires a Service. storage may be nil, in which case uploads fail
// with ErrAssetStorageUnavailable.
func NewService(videos VideoStore, comments CommentStore, history HistoryRecorder, storage AssetStorage, cleanup CleanupQueue) *Service {
	return &Service{
		videos:   videos,
		comments: comments,
		history:  history,
		storage:  storage,
		cleanup:  cleanup,
	}
}

// List returns a page of videos. Unpublished videos are only listed for their owner.
func (s *Service) List(ctx context.Context, q ListQuery) (pagination.Page[models.Video], error) {
	ctx, span := logging.StartSpan(ctx, "videos.list")
	defer span.End()

	if q.OwnerID != "" && !validID(q.OwnerID) {
		return pagination.Page[models.Video]{}, apperror.Validation("please provide a valid userId")
	}
	less, err := sorter(q.SortBy, q.SortType)
	if err != nil {
		return pagination.Page[models.Video]{}, err
	}

	all, err := s.videos.List(ctx, q.OwnerID)
	if err != nil {
		return pagination.Page[models.Video]{}, apperror.Internal("failed to list videos", err)
	}

	needle := strings.ToLower(strings.TrimSpace(q.Query))
	visible := make([]models.Video, 0, len(all))
	for _, video := range all {
		if !video.IsPublished && video.OwnerID != q.ViewerID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(video.Title), needle) &&
			!strings.Contains(strings.ToLower(video.Description), needle) {
			continue
		}
		visible = append(visible, video)
	}
	if less != nil {
		sort.SliceStable(visible, func(i, j int) bool { return less(visible[i], visible[j]) })
	}
	span.SetAttributes(slog.Int("matched", len(visible)))

	return pagination.Paginate(visible, q.Page, q.Limit)
}

func sorter(sortBy, sortType string) (func(a, b models.Video) bool, error) {
	if sortBy == "" {
		return nil, nil
	}

	var asc func(a, b models.Video) bool
	switch sortBy {
	case SortByCreatedAt:
		asc = func(a, b models.Video) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortByViews:
		asc = func(a, b models.Video) bool { return a.Views < b.Views }
	case SortByDuration:
		asc = func(a, b models.Video) bool { return a.Duration < b.Duration }
	case SortByTitle:
		asc = func(a, b models.Video) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	default:
		return nil, apperror.Validation("unsupported sortBy " + sortBy)
	}

	switch strings.ToLower(sortType) {
	case "", "asc":
		return asc, nil
	case "desc":
		return func(a, b models.Video) bool { return asc(b, a) }, nil
	default:
		return nil, apperror.Validation("sortType must be asc or desc")
	}
}

// Get returns a video and records the view for an authenticated viewer.
func (s *Service) Get(ctx context.Context, videoID, viewerID string) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "videos.get")
	defer span.End()

	video, err := s.load(ctx, videoID)
	if err != nil {
		return models.Video{}, err
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return models.Video{}, ErrVideoNotFound
	}
	if viewerID == "" {
		return video, nil
	}

	if err := s.videos.IncrementViews(ctx, video.ID); err != nil {
		return models.Video{}, apperror.Internal("failed to record view", err)
	}
	video.Views++

	if err := s.history.AppendWatchHistory(ctx, viewerID, video.ID); err != nil {
		logging.FromContext(ctx).Warn("record watch history failed",
			slog.String("video_id", video.ID),
			slog.String("error", err.Error()),
		)
	}
	return video, nil
}

// Publish uploads the media and creates a published video owned by ownerID.
func (s *Service) Publish(ctx context.Context, ownerID string, in PublishInput) (models.Video, error) {
	if ownerID == "" {
		return models.Video{}, apperror.New(apperror.KindInvalidToken, "unauthorized request")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	var details []string
	if in.Title == "" {
		details = append(details, "title is required")
	}
	if in.Description == "" {
		details = append(details, "description is required")
	}
	if in.Video.Body == nil {
		details = append(details, "videoFile is required")
	}
	if in.Thumbnail.Body == nil {
		details = append(details, "thumbNail is required")
	}
	if in.Duration < 0 {
		details = append(details, "duration must not be negative")
	}
	if len(details) > 0 {
		return models.Video{}, apperror.Validation("fields are required", details...)
	}

	id := uuid.NewString()
	videoURL, err := s.save(ctx, "videos/"+id+"/video", in.Video)
	if err != nil {
		return models.Video{}, err
	}
	thumbURL, err := s.save(ctx, "videos/"+id+"/thumbnail", in.Thumbnail)
	if err != nil {
		s.discard(ctx, videoURL)
		return models.Video{}, err
	}

	now := s.now()
	video := models.Video{
		ID:          id,
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		VideoFile:   videoURL,
		Thumbnail:   thumbURL,
		Duration:    in.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		s.discard(ctx, videoURL, thumbURL)
		return models.Video{}, apperror.Internal("failed to publish video", err)
	}
	return video, nil
}

// Update changes title, description or thumbnail of callerID's video.
func (s *Service) Update(ctx context.Context, callerID, videoID string, in UpdateInput) (models.Video, error) {
	video, err := s.owned(ctx, callerID, videoID)
	if err != nil {
		return models.Video{}, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" && in.Description == "" && in.Thumbnail == nil {
		return models.Video{}, apperror.Validation("nothing to update")
	}

	var thumbURL string
	if in.Thumbnail != nil {
		thumbURL, err = s.save(ctx, "videos/"+video.ID+"/thumbnail-"+uuid.NewString(), *in.Thumbnail)
		if err != nil {
			return models.Video{}, err
		}
	}

	updated, err := s.videos.UpdateDetails(ctx, video.ID, in.Title, in.Description, thumbURL)
	if err != nil {
		s.discard(ctx, thumbURL)
		if apperror.KindOf(err) == apperror.KindNotFound {
			return models.Video{}, ErrVideoNotFound
		}
		return models.Video{}, apperror.Internal("failed to update video", err)
	}
	if thumbURL != "" {
		s.discard(ctx, video.Thumbnail)
	}
	return updated, nil
}

// Delete removes callerID's video, its comments and, in the background, its media.
func (s *Service) Delete(ctx context.Context, callerID, videoID string) (models.Video, error) {
	if _, err := s.owned(ctx, callerID, videoID); err != nil {
		return models.Video{}, err
	}

	deleted, err := s.videos.Delete(ctx, videoID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return models.Video{}, ErrVideoNotFound
		}
		return models.Video{}, apperror.Internal("failed to delete video", err)
	}
	s.discard(ctx, deleted.VideoFile, deleted.Thumbnail)
	return deleted, nil
}

// TogglePublish flips the publish flag of callerID's video.
func (s *Service) TogglePublish(ctx context.Context, callerID, videoID string) (models.Video, error) {
	video, err := s.owned(ctx, callerID, videoID)
	if err != nil {
		return models.Video{}, err
	}

	updated, err := s.videos.SetPublished(ctx, video.ID, !video.IsPublished)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return models.Video{}, ErrVideoNotFound
		}
		return models.Video{}, apperror.Internal("failed to update video", err)
	}
	return updated, nil
}

func (s *Service) load(ctx context.Context, videoID string) (models.Video, error) {
	if !validID(videoID) {
		return models.Video{}, apperror.Validation("please provide a valid videoId")
	}
	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return models.Video{}, ErrVideoNotFound
		}
		return models.Video{}, apperror.Internal("failed to load video", err)
	}
	return video, nil
}

func (s *Service) owned(ctx context.Context, callerID, videoID string) (models.Video, error) {
	if callerID == "" {
		return models.Video{}, apperror.New(apperror.KindInvalidToken, "unauthorized request")
	}
	video, err := s.load(ctx, videoID)
	if err != nil {
		return models.Video{}, err
	}
	if video.OwnerID != callerID {
		return models.Video{}, ErrNotVideoOwner
	}
	return video, nil
}

// save stores upload under key, keeping the client's file extension.
func (s *Service) save(ctx context.Context, key string, upload Upload) (string, error) {
	if s.storage == nil {
		return "", ErrAssetStorageUnavailable
	}
	location, err := s.storage.Save(ctx, key+strings.ToLower(path.Ext(upload.Filename)), upload.Body)
	if err != nil {
		return "", apperror.Internal("failed to store upload", err)
	}
	return location, nil
}

// discard hands locations to the cleanup queue. Failures only leak storage.
func (s *Service) discard(ctx context.Context, locations ...string) {
	if s.cleanup == nil {
		return
	}
	if err := s.cleanup.Enqueue(ctx, locations...); err != nil {
		logging.FromContext(ctx).Warn("schedule asset cleanup failed",
			slog.Any("locations", locations),
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

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
