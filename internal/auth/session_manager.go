package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/models"
)

// Session is the refresh credential currently considered valid for an identity.
// It is stored inline on the identity record; at most one exists per identity.
type Session struct {
	UserID       string
	RefreshToken string
	ExpiresAt    time.Time
}

// CredentialStore persists identities together with their password hash and
// current session. Reads from this interface are internal: callers outside
// the package only ever see models.User.Public().
type CredentialStore interface {
	Create(ctx context.Context, user models.User) error
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindCredentialsByID(ctx context.Context, userID string) (models.User, error)
	// SaveSession overwrites whatever session the identity had.
	SaveSession(ctx context.Context, session Session) error
	// RotateSession replaces the session only when the stored refresh token
	// still equals previousToken, returning ErrSessionNotFound otherwise.
	RotateSession(ctx context.Context, previousToken string, next Session) error
	ClearSession(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
}

// RegisterInput carries the fields of a new identity.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     string
	CoverImage string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User   models.User
	Tokens models.SessionTokens
}

// Manager drives the Anonymous -> Authenticated -> Anonymous lifecycle of an identity.
type Manager struct {
	tokens *TokenService
	hasher PasswordHasher
	store  CredentialStore

	NowFunc func() time.Time
}

// NewManager constructs a Manager over the provided token service, hasher and store.
func NewManager(tokens *TokenService, hasher PasswordHasher, store CredentialStore) *Manager {
	if tokens == nil {
		panic("auth: token service must not be nil")
	}
	if hasher == nil {
		panic("auth: password hasher must not be nil")
	}
	if store == nil {
		panic("auth: credential store must not be nil")
	}
	return &Manager{tokens: tokens, hasher: hasher, store: store}
}

// Register creates a new identity and returns it without secrets.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	var missing []string
	for _, field := range []struct{ name, value string }{
		{"fullName", in.FullName},
		{"email", in.Email},
		{"userName", in.Username},
		{"password", in.Password},
	} {
		if field.value == "" {
			missing = append(missing, field.name+" is required")
		}
	}
	if len(missing) > 0 {
		return models.User{}, apperror.Validation("please provide all fields", missing...)
	}

	hashed, err := m.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, apperror.Internal("failed to secure password", err)
	}

	now := m.now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		Avatar:       in.Avatar,
		CoverImage:   in.CoverImage,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.store.Create(ctx, user); err != nil {
		if apperror.KindOf(err) == apperror.KindConflict {
			return models.User{}, ErrAccountExists
		}
		return models.User{}, apperror.Internal("failed to create user", err)
	}

	return user.Public(), nil
}

// Login verifies a password for the identity named by handle or email and
// opens a new session, replacing any session the identity had elsewhere.
func (m *Manager) Login(ctx context.Context, identifier, password string) (LoginResult, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return LoginResult{}, apperror.Validation("username or email and password are required")
	}

	user, err := m.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return LoginResult{}, m.lookupError(err)
	}

	if !m.hasher.Compare(user.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	tokens, session, err := m.mint(user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	if err := m.store.SaveSession(ctx, session); err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, apperror.Internal("failed to persist session", err)
	}

	return LoginResult{User: user.Public(), Tokens: tokens}, nil
}

// Logout clears the identity's session so no outstanding refresh token can be rotated.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Validation("user id is required")
	}
	if err := m.store.ClearSession(ctx, userID); err != nil {
		return m.lookupError(err)
	}
	return nil
}

// Rotate exchanges the identity's current refresh token for a new pair. A
// refresh token can be rotated at most once.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrInvalidToken
	}

	presented, err := m.tokens.Verify(refreshToken, KindRefresh)
	if err != nil {
		return models.SessionTokens{}, err
	}

	user, err := m.store.FindCredentialsByID(ctx, presented.UserID)
	if err != nil {
		return models.SessionTokens{}, m.lookupError(err)
	}

	if user.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		return models.SessionTokens{}, ErrStaleRefreshToken
	}

	tokens, session, err := m.mint(user.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.RotateSession(ctx, refreshToken, session); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return models.SessionTokens{}, ErrStaleRefreshToken
		}
		return models.SessionTokens{}, apperror.Internal("failed to persist session", err)
	}

	return tokens, nil
}

// ChangePassword replaces the identity's password after checking the old one.
// The current session stays valid.
func (m *Manager) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if userID == "" || oldPassword == "" || newPassword == "" {
		return apperror.Validation("old and new password are required")
	}

	user, err := m.store.FindCredentialsByID(ctx, userID)
	if err != nil {
		return m.lookupError(err)
	}

	if !m.hasher.Compare(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	hashed, err := m.hasher.Hash(newPassword)
	if err != nil {
		return apperror.Internal("failed to secure password", err)
	}

	if err := m.store.UpdatePassword(ctx, userID, hashed, m.now()); err != nil {
		return m.lookupError(err)
	}
	return nil
}

// Authenticate verifies an access token and returns the identity it was issued to.
func (m *Manager) Authenticate(accessToken string) (string, error) {
	token, err := m.tokens.Verify(accessToken, KindAccess)
	if err != nil {
		return "", err
	}
	return token.UserID, nil
}

func (m *Manager) mint(userID string) (models.SessionTokens, Session, error) {
	access, err := m.tokens.IssueAccess(userID)
	if err != nil {
		return models.SessionTokens{}, Session{}, apperror.Internal("failed to issue access token", err)
	}

	refresh, err := m.tokens.IssueRefresh(userID)
	if err != nil {
		return models.SessionTokens{}, Session{}, apperror.Internal("failed to issue refresh token", err)
	}

	tokens := models.SessionTokens{
		AccessToken:      access.Value,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
	}
	session := Session{
		UserID:       userID,
		RefreshToken: refresh.Value,
		ExpiresAt:    refresh.ExpiresAt,
	}
	return tokens, session, nil
}

func (m *Manager) lookupError(err error) error {
	if apperror.KindOf(err) == apperror.KindNotFound {
		return ErrUserNotFound
	}
	return apperror.Internal("failed to load user", fmt.Errorf("credential store: %w", err))
}

func (m *Manager) now() time.Time {
	if m.NowFunc != nil {
		return m.NowFunc()
	}
	return time.Now().UTC()
}
