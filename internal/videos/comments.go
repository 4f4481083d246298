package videos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/pagination"
)

// CommentStore persists comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, commentID string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
	UpdateContent(ctx context.Context, commentID, content string) (models.Comment, error)
	Delete(ctx context.Context, commentID string) (models.Comment, error)
}

var (
	// ErrCommentNotFound indicates the comment does not exist.
	ErrCommentNotFound = apperror.New(apperror.KindNotFound, "comment not found")
	// ErrNotCommentOwner rejects edits by anyone but the author.
	ErrNotCommentOwner = apperror.New(apperror.KindForbidden, "only the author can modify this comment")
)

const maxCommentLength = 2000

// ListComments returns a page of a video's comments, newest first.
func (s *Service) ListComments(ctx context.Context, videoID, viewerID string, page, limit int) (pagination.Page[models.Comment], error) {
	video, err := s.load(ctx, videoID)
	if err != nil {
		return pagination.Page[models.Comment]{}, err
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return pagination.Page[models.Comment]{}, ErrVideoNotFound
	}

	comments, err := s.comments.ListForVideo(ctx, video.ID)
	if err != nil {
		return pagination.Page[models.Comment]{}, apperror.Internal("failed to list comments", err)
	}
	return pagination.Paginate(comments, page, limit)
}

// AddComment posts content on videoID as authorID.
func (s *Service) AddComment(ctx context.Context, authorID, videoID, content string) (models.Comment, error) {
	if authorID == "" {
		return models.Comment{}, apperror.New(apperror.KindInvalidToken, "unauthorized request")
	}
	content, err := cleanContent(content)
	if err != nil {
		return models.Comment{}, err
	}

	video, err := s.load(ctx, videoID)
	if err != nil {
		return models.Comment{}, err
	}
	if !video.IsPublished && video.OwnerID != authorID {
		return models.Comment{}, ErrVideoNotFound
	}

	now := s.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   video.ID,
		OwnerID:   authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return models.Comment{}, ErrVideoNotFound
		}
		return models.Comment{}, apperror.Internal("failed to add comment", err)
	}
	return comment, nil
}

// UpdateComment replaces the text of callerID's comment.
func (s *Service) UpdateComment(ctx context.Context, callerID, commentID, content string) (models.Comment, error) {
	content, err := cleanContent(content)
	if err != nil {
		return models.Comment{}, err
	}
	if _, err := s.ownedComment(ctx, callerID, commentID); err != nil {
		return models.Comment{}, err
	}

	updated, err := s.comments.UpdateContent(ctx, commentID, content)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return models.Comment{}, ErrCommentNotFound
		}
		return models.Comment{}, apperror.Internal("failed to update comment", err)
	}
	return updated, nil
}

// DeleteComment removes a comment. The comment's author and the owner of the
// video it was posted on may both delete it.
func (s *Service) DeleteComment(ctx context.Context, callerID, commentID string) (models.Comment, error) {
	comment, err := s.ownedComment(ctx, callerID, commentID)
	if err != nil {
		if !errors.Is(err, ErrNotCommentOwner) {
			return models.Comment{}, err
		}
		video, lookupErr := s.videos.FindByID(ctx, comment.VideoID)
		if lookupErr != nil || video.OwnerID != callerID {
			return models.Comment{}, err
		}
	}

	deleted, err := s.comments.Delete(ctx, commentID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return models.Comment{}, ErrCommentNotFound
		}
		return models.Comment{}, apperror.Internal("failed to delete comment", err)
	}
	return deleted, nil
}

// ownedComment loads commentID and checks callerID wrote it. On
// ErrNotCommentOwner the loaded comment is still returned.
func (s *Service) ownedComment(ctx context.Context, callerID, commentID string) (models.Comment, error) {
	if callerID == "" {
		return models.Comment{}, apperror.New(apperror.KindInvalidToken, "unauthorized request")
	}
	if !validID(commentID) {
		return models.Comment{}, apperror.Validation("please provide a valid commentId")
	}

	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return models.Comment{}, ErrCommentNotFound
		}
		return models.Comment{}, apperror.Internal("failed to load comment", err)
	}
	if comment.OwnerID != callerID {
		return comment, ErrNotCommentOwner
	}
	return comment, nil
}

func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.Validation("content is required")
	}
	if len([]rune(content)) > maxCommentLength {
		return "", apperror.Validation("content is too long")
	}
	return content, nil
}
