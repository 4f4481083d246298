package repositories

import "github.com/vidshare/backend/internal/apperror"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = apperror.New(apperror.KindNotFound, "record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness
	// constraint or lost a race against a concurrent write to the same edge.
	ErrConflict = apperror.New(apperror.KindConflict, "record conflict")
)
