package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vidshare/backend/internal/accounts"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/engagement"
	"github.com/vidshare/backend/internal/graph"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/videos"
)

type mediaStub struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (m *mediaStub) Save(_ context.Context, name string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[name] = body
	return "https://cdn.test/" + name, nil
}

func (m *mediaStub) Delete(context.Context, string) error { return nil }

type cleanupStub struct {
	mu        sync.Mutex
	locations []string
}

func (c *cleanupStub) Enqueue(_ context.Context, locations ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locations = append(c.locations, locations...)
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) bool { return false }

type testServer struct {
	handler http.Handler
	store   *repositories.MemoryStore
	media   *mediaStub
	cleanup *cleanupStub
}

func newTestServer(t *testing.T, limiter RateLimiter) *testServer {
	t.Helper()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}

	store := repositories.NewMemoryStore()
	media := &mediaStub{}
	cleanup := &cleanupStub{}

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Sessions:   auth.NewManager(tokens, auth.NewBcryptHasher(4), store.Users()),
		Accounts:   accounts.NewService(store.Users(), media, cleanup),
		Graph:      graph.NewAggregator(store.Users(), store.Videos(), store, store),
		Engagement: engagement.NewService(store, store, store.Users(), nil),
		Videos:     videos.NewService(store.Videos(), store.Comments(), store.Users(), media, cleanup),
		Limiter:    limiter,
	})

	return &testServer{handler: mux, store: store, media: media, cleanup: cleanup}
}

type request struct {
	method  string
	path    string
	body    any
	token   string
	cookies []*http.Cookie
	// form, when set, is sent as multipart with files keyed by field name.
	form  map[string]string
	files map[string]string
}

func (s *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.form != nil || req.files != nil:
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		for k, v := range req.form {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
		for field, name := range req.files {
			part, err := mw.CreateFormFile(field, name)
			if err != nil {
				t.Fatalf("create form file: %v", err)
			}
			_, _ = part.Write([]byte("content of " + name))
		}
		if err := mw.Close(); err != nil {
			t.Fatalf("close multipart: %v", err)
		}
		body, contentType = buf, mw.FormDataContentType()
	case req.body != nil:
		raw, err := json.Marshal(req.body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body, contentType = bytes.NewReader(raw), "application/json"
	}

	r := httptest.NewRequest(req.method, req.path, body)
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Errors     []string        `json:"errors"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, dst any) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.StatusCode != rec.Code {
		t.Fatalf("envelope status %d does not match response status %d", env.StatusCode, rec.Code)
	}
	if dst != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env
}

type session struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Cookies      []*http.Cookie
}

// signUp registers handle and logs it in.
func (s *testServer) signUp(t *testing.T, handle string) session {
	t.Helper()

	rec := s.do(t, request{method: http.MethodPost, path: "/api/v1/users/register", body: map[string]string{
		"fullName": handle + " Example",
		"email":    handle + "@example.com",
		"userName": handle,
		"password": "password123",
	}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", handle, rec.Code, rec.Body.String())
	}

	rec = s.do(t, request{method: http.MethodPost, path: "/api/v1/users/login", body: map[string]string{
		"userName": handle,
		"password": "password123",
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", handle, rec.Code, rec.Body.String())
	}

	var data loginResponse
	decodeEnvelope(t, rec, &data)
	return session{
		UserID:       data.User.ID,
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		Cookies:      rec.Result().Cookies(),
	}
}
