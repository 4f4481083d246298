// Package accounts serves the profile operations of a signed-in user.
package accounts

import (
	"context"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
)

var validate = validator.New()

// ProfileStore reads and updates the public profile of a user.
type ProfileStore interface {
	FindByID(ctx context.Context, userID string) (models.User, error)
	UpdateProfile(ctx context.Context, userID, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID, url string) (string, error)
	UpdateCoverImage(ctx context.Context, userID, url string) (string, error)
}

// MediaStore saves uploaded images.
type MediaStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// CleanupQueue schedules replaced images for deletion.
type CleanupQueue interface {
	Enqueue(ctx context.Context, locations ...string) error
}

var (
	// ErrUserNotFound indicates the signed-in user no longer exists.
	ErrUserNotFound = apperror.New(apperror.KindNotFound, "user not found")
	// ErrEmailTaken rejects an email that belongs to another account.
	ErrEmailTaken = apperror.New(apperror.KindConflict, "email is already in use")
	// ErrMediaUnavailable indicates no object store is configured.
	ErrMediaUnavailable = apperror.New(apperror.KindInternal, "image storage is not configured")
)

// Service implements the account operations.
type Service struct {
	users   ProfileStore
	media   MediaStore
	cleanup CleanupQueue
}

// NewService wires a Service. media and cleanup may be nil.
func NewService(users ProfileStore, media MediaStore, cleanup CleanupQueue) *Service {
	return &Service{users: users, media: media, cleanup: cleanup}
}

// CurrentUser returns the public profile of userID.
func (s *Service) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	if userID == "" {
		return models.User{}, apperror.New(apperror.KindInvalidToken, "unauthorized request")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, classify("failed to load user", err)
	}
	return user, nil
}

// UpdateDetails changes the full name and email of userID. Both are required.
func (s *Service) UpdateDetails(ctx context.Context, userID, fullName, email string) (models.User, error) {
	if userID == "" {
		return models.User{}, apperror.New(apperror.KindInvalidToken, "unauthorized request")
	}

	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	var details []string
	if fullName == "" {
		details = append(details, "fullName is required")
	}
	if email == "" {
		details = append(details, "email is required")
	} else if err := validate.Var(email, "email"); err != nil {
		details = append(details, "email is not valid")
	}
	if len(details) > 0 {
		return models.User{}, apperror.Validation("invalid account details", details...)
	}

	user, err := s.users.UpdateProfile(ctx, userID, fullName, email)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindConflict {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, classify("failed to update account", err)
	}
	return user, nil
}

// ReplaceAvatar uploads a new avatar for userID and returns its location.
func (s *Service) ReplaceAvatar(ctx context.Context, userID, filename string, r io.Reader) (string, error) {
	return s.replaceImage(ctx, userID, "avatars", filename, r, s.users.UpdateAvatar)
}

// ReplaceCoverImage uploads a new cover image for userID and returns its location.
func (s *Service) ReplaceCoverImage(ctx context.Context, userID, filename string, r io.Reader) (string, error) {
	return s.replaceImage(ctx, userID, "covers", filename, r, s.users.UpdateCoverImage)
}

func (s *Service) replaceImage(
	ctx context.Context,
	userID, prefix, filename string,
	r io.Reader,
	swap func(ctx context.Context, userID, url string) (string, error),
) (string, error) {
	if userID == "" {
		return "", apperror.New(apperror.KindInvalidToken, "unauthorized request")
	}
	if r == nil {
		return "", apperror.Validation(prefix + " file is missing")
	}
	if s.media == nil {
		return "", ErrMediaUnavailable
	}

	key := prefix + "/" + userID + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	location, err := s.media.Save(ctx, key, r)
	if err != nil {
		return "", apperror.Internal("failed to store image", err)
	}

	previous, err := swap(ctx, userID, location)
	if err != nil {
		s.discard(ctx, location)
		return "", classify("failed to update image", err)
	}
	s.discard(ctx, previous)
	return location, nil
}

func (s *Service) discard(ctx context.Context, location string) {
	if s.cleanup == nil || location == "" {
		return
	}
	if err := s.cleanup.Enqueue(ctx, location); err != nil {
		logging.FromContext(ctx).Warn("schedule image cleanup failed",
			slog.String("location", location),
			slog.String("error", err.Error()),
		)
	}
}

func classify(message string, err error) error {
	if apperror.KindOf(err) == apperror.KindNotFound {
		return ErrUserNotFound
	}
	return apperror.Internal(message, err)
}
