package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/logging"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalRateLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newLocalRateLimiter(1, time.Second, 2, time.Minute, func() time.Time { return now })
	ctx := context.Background()

	if !limiter.Allow(ctx, "1.2.3.4") || !limiter.Allow(ctx, "1.2.3.4") {
		t.Fatal("expected burst of two to be allowed")
	}
	if limiter.Allow(ctx, "1.2.3.4") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow(ctx, "5.6.7.8") {
		t.Fatal("other keys have their own bucket")
	}

	now = now.Add(time.Second)
	if !limiter.Allow(ctx, "1.2.3.4") {
		t.Fatal("expected a token after one window")
	}
}

func TestLocalRateLimiterForgetsIdleKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newLocalRateLimiter(1, time.Hour, 1, time.Minute, func() time.Time { return now })
	ctx := context.Background()

	limiter.Allow(ctx, "a")
	now = now.Add(2 * time.Minute)
	limiter.Allow(ctx, "b")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if _, ok := limiter.buckets["a"]; ok {
		t.Fatal("expected idle bucket to be collected")
	}
}

type scripterStub struct {
	redis.Scripter
	result []interface{}
	err    error
	keys   []string
	args   []interface{}
}

func (s *scripterStub) EvalSha(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	s.keys = keys
	s.args = args
	return redis.NewCmdResult(s.result, s.err)
}

func (s *scripterStub) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	s.keys = keys
	s.args = args
	return redis.NewCmdResult(s.result, s.err)
}

func TestRedisRateLimiterReadsScriptVerdict(t *testing.T) {
	stub := &scripterStub{result: []interface{}{int64(1), int64(4)}}
	limiter := NewRedisRateLimiter(stub, "vidshare:ratelimit", 10, time.Minute, 5)

	if !limiter.Allow(context.Background(), "login:1.2.3.4") {
		t.Fatal("expected request to be allowed")
	}
	if len(stub.keys) != 1 || stub.keys[0] != "vidshare:ratelimit:login:1.2.3.4" {
		t.Fatalf("unexpected keys %v", stub.keys)
	}

	stub.result = []interface{}{int64(0), int64(0)}
	if limiter.Allow(context.Background(), "login:1.2.3.4") {
		t.Fatal("expected request to be limited")
	}
}

func TestRedisRateLimiterRefillIntervalNeverZero(t *testing.T) {
	stub := &scripterStub{result: []interface{}{int64(1), int64(0)}}
	limiter := NewRedisRateLimiter(stub, "rl", 1_000_000, time.Second, 1)

	limiter.Allow(context.Background(), "k")
	if len(stub.args) < 4 {
		t.Fatalf("unexpected script args %v", stub.args)
	}
	if interval, ok := stub.args[3].(int64); !ok || interval < 1 {
		t.Fatalf("expected a refill interval of at least 1ms, got %v", stub.args[3])
	}
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	stub := &scripterStub{err: errors.New("connection refused")}
	limiter := NewRedisRateLimiter(stub, "rl", 1, time.Minute, 1)

	if !limiter.Allow(context.Background(), "k") {
		t.Fatal("expected request to be allowed while redis is down")
	}
}

func TestRequestLoggerPropagatesRequestID(t *testing.T) {
	var seen string
	handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("expected inbound id to be reused, got ctx=%q header=%q", seen, rec.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\n")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got == "" || got == "bad id\n" {
		t.Fatalf("expected a generated id, got %q", got)
	}
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	handler := RequestLogger(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false {
		t.Fatalf("expected failure envelope, got %v", body)
	}
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return tokens
}

type tokenAuthenticator struct{ tokens *auth.TokenService }

func (a tokenAuthenticator) Authenticate(raw string) (string, error) {
	token, err := a.tokens.Verify(raw, auth.KindAccess)
	if err != nil {
		return "", err
	}
	return token.UserID, nil
}

func TestRequireAuth(t *testing.T) {
	tokens := newTestTokens(t)
	access, err := tokens.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	refresh, err := tokens.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen string
	handler := RequireAuth(tokenAuthenticator{tokens})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	cases := []struct {
		name   string
		setup  func(*http.Request)
		status int
		userID string
	}{
		{name: "bearer header", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+access.Value) }, status: http.StatusOK, userID: "user-1"},
		{name: "cookie", setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access.Value}) }, status: http.StatusOK, userID: "user-1"},
		{name: "missing", setup: func(*http.Request) {}, status: http.StatusUnauthorized},
		{name: "refresh token is not an access token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+refresh.Value) }, status: http.StatusUnauthorized},
		{name: "garbage", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, status: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if seen != tc.userID {
				t.Fatalf("expected user %q, got %q", tc.userID, seen)
			}
		})
	}
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	tokens := newTestTokens(t)
	var seen = "unset"
	handler := OptionalAuth(tokenAuthenticator{tokens})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || seen != "" {
		t.Fatalf("expected anonymous pass-through, got %d %q", rec.Code, seen)
	}
}
