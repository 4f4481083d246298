package handlers

import (
	"net/http"
	"testing"

	"github.com/vidshare/backend/internal/models"
)

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/register", body: map[string]string{
		"email":    "not-an-email",
		"userName": "a!",
	}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	env := decodeEnvelope(t, rec, nil)
	if env.Success {
		t.Fatal("expected success=false")
	}
	// fullName, email, userName and password are all rejected.
	if len(env.Errors) != 4 {
		t.Fatalf("expected 4 field errors, got %v", env.Errors)
	}
}

func TestRegisterEmptyBody(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/register"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec, nil)
	if env.Message != "request body is required" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if env.Errors == nil {
		t.Fatal("errors must be an array, not null")
	}
}

func TestRegisterDuplicateHandle(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.signUp(t, "alice")

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/register", body: map[string]string{
		"fullName": "Alice Again",
		"email":    "other@example.com",
		"userName": "ALICE",
		"password": "password123",
	}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestLoginSetsSessionCookies(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := srv.signUp(t, "alice")

	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatalf("expected tokens in body, got %+v", sess)
	}

	found := map[string]*http.Cookie{}
	for _, c := range sess.Cookies {
		found[c.Name] = c
	}
	for _, name := range []string{"accessToken", RefreshTokenCookie} {
		c, ok := found[name]
		if !ok {
			t.Fatalf("missing %s cookie", name)
		}
		if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.Path != "/" {
			t.Fatalf("unexpected cookie attributes %+v", c)
		}
	}
	if found[RefreshTokenCookie].Value != sess.RefreshToken {
		t.Fatal("refresh cookie does not match body token")
	}
}

func TestLoginByEmailAndWrongPassword(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.signUp(t, "alice")

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/login", body: map[string]string{
		"email":    "Alice@Example.com",
		"password": "password123",
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var data loginResponse
	decodeEnvelope(t, rec, &data)
	if data.User.Username != "alice" {
		t.Fatalf("unexpected user %+v", data.User)
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/login", body: map[string]string{
		"userName": "alice",
		"password": "wrong-password",
	}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/login", body: map[string]string{
		"userName": "nobody",
		"password": "password123",
	}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestRefreshRotatesOnce(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := srv.signUp(t, "alice")

	var refreshCookie *http.Cookie
	for _, c := range sess.Cookies {
		if c.Name == RefreshTokenCookie {
			refreshCookie = c
		}
	}

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/generate-token", cookies: []*http.Cookie{refreshCookie}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var tokens models.SessionTokens
	decodeEnvelope(t, rec, &tokens)
	if tokens.RefreshToken == "" || tokens.RefreshToken == sess.RefreshToken {
		t.Fatal("expected a fresh refresh token")
	}

	// Replaying the consumed token is rejected.
	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/generate-token", body: map[string]string{
		"refreshToken": sess.RefreshToken,
	}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for replay got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/generate-token", body: map[string]string{
		"refreshToken": tokens.RefreshToken,
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected rotated token to be accepted got %d", rec.Code)
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/generate-token"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestLogoutRevokesRefresh(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := srv.signUp(t, "alice")

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/logout"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected anonymous logout to be rejected, got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/logout", token: sess.AccessToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Fatalf("expected %s cookie to be cleared", c.Name)
		}
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/generate-token", body: map[string]string{
		"refreshToken": sess.RefreshToken,
	}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout got %d", rec.Code)
	}
}

func TestChangePassword(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := srv.signUp(t, "alice")

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/change-password", token: sess.AccessToken, body: map[string]string{
		"oldPassword": "password123",
		"newPassword": "password123",
	}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected unchanged password to be rejected, got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/change-password", token: sess.AccessToken, body: map[string]string{
		"oldPassword": "wrong-password",
		"newPassword": "brand-new-pass",
	}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/change-password", token: sess.AccessToken, body: map[string]string{
		"oldPassword": "password123",
		"newPassword": "brand-new-pass",
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/login", body: map[string]string{
		"userName": "alice",
		"password": "brand-new-pass",
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login with new password, got %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	srv := newTestServer(t, denyLimiter{})

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/login", body: map[string]string{
		"userName": "alice",
		"password": "password123",
	}})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestClientIP(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Fatalf("unexpected ip %q", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.7" {
		t.Fatalf("unexpected forwarded ip %q", got)
	}
}
