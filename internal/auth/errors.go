package auth

import "github.com/vidshare/backend/internal/apperror"

var (
	// ErrInvalidToken indicates a credential with a bad signature, the wrong kind or a malformed body.
	ErrInvalidToken = apperror.New(apperror.KindInvalidToken, "invalid token")
	// ErrTokenExpired indicates a credential presented after its expiry.
	ErrTokenExpired = apperror.New(apperror.KindExpired, "token expired")
	// ErrStaleRefreshToken indicates a refresh token that is no longer the identity's current one.
	ErrStaleRefreshToken = apperror.New(apperror.KindInvalidToken, "refresh token is stale or has been used")
	// ErrInvalidCredentials indicates a password mismatch.
	ErrInvalidCredentials = apperror.New(apperror.KindInvalidCredential, "invalid credentials")
	// ErrUserNotFound indicates the identity does not exist.
	ErrUserNotFound = apperror.New(apperror.KindNotFound, "user not found")
	// ErrAccountExists indicates the handle or email is already registered.
	ErrAccountExists = apperror.New(apperror.KindConflict, "user already exists, use a different username or email")
	// ErrSessionNotFound is returned by credential stores when a conditional
	// session update finds no matching current refresh token.
	ErrSessionNotFound = apperror.New(apperror.KindInvalidToken, "session not found")
)
