package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/respond"
)

// RefreshTokenCookie is the cookie carrying the refresh credential.
const RefreshTokenCookie = "refreshToken"

// SessionService drives registration and the session lifecycle.
type SessionService interface {
	Register(ctx context.Context, in auth.RegisterInput) (models.User, error)
	Login(ctx context.Context, identifier, password string) (auth.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	Authenticate(accessToken string) (string, error)
}

// CookieConfig controls the attributes of the session cookies.
type CookieConfig struct {
	Secure bool
}

// AuthHandler implements registration and session endpoints.
type AuthHandler struct {
	Sessions SessionService
	Cookies  CookieConfig
}

type registerRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"userName" validate:"required,alphanum,min=3,max=30"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required_without=Username"`
	Username string `json:"userName"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72,nefield=OldPassword"`
}

type loginResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	user, err := h.Sessions.Register(ctx, auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	respond.OK(ctx, w, http.StatusCreated, "User Created", user)
}

// Login handles POST /api/v1/users/login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}

	result, err := h.Sessions.Login(ctx, identifier, req.Password)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	h.setSessionCookies(w, result.Tokens)
	respond.OK(ctx, w, http.StatusOK, "User Logged in Successfully", loginResponse{
		User:         result.User,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

// Logout handles POST /api/v1/users/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Sessions.Logout(ctx, middleware.UserIDFromContext(ctx)); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	h.clearSessionCookies(w)
	respond.OK(ctx, w, http.StatusOK, "User logged out", struct{}{})
}

// Refresh handles POST /api/v1/users/generate-token. The refresh token is
// taken from the cookie, or from the JSON body when no cookie is sent.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := ""
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respond.Error(ctx, w, err)
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		respond.Error(ctx, w, apperror.New(apperror.KindInvalidToken, "unauthorized request"))
		return
	}

	tokens, err := h.Sessions.Rotate(ctx, token)
	if err != nil {
		respond.Error(ctx, w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respond.OK(ctx, w, http.StatusOK, "accessToken and refreshToken generated successfully", tokens)
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	if err := h.Sessions.ChangePassword(ctx, middleware.UserIDFromContext(ctx), req.OldPassword, req.NewPassword); err != nil {
		respond.Error(ctx, w, err)
		return
	}

	respond.OK(ctx, w, http.StatusOK, "Password Change successfully", struct{}{})
}

func (h AuthHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h AuthHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
