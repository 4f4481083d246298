package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vidshare/backend/internal/apperror"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestTokenService(t *testing.T, clock *fakeClock) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "vidshare",
	}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService(t, clock)

	access, err := svc.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if !access.ExpiresAt.Equal(clock.now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected access expiry %v", access.ExpiresAt)
	}

	verified, err := svc.Verify(access.Value, KindAccess)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if verified.UserID != "user-1" {
		t.Fatalf("expected subject user-1, got %q", verified.UserID)
	}
}

func TestTokenServiceRefreshTokensAreUnique(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService(t, clock)

	first, err := svc.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	second, err := svc.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if first.Value == second.Value {
		t.Fatal("expected refresh tokens issued in the same second to differ")
	}
}

func TestTokenServiceDeterministicWithFixedIDSource(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := TokenConfig{
		AccessSecret:  []byte("a"),
		RefreshSecret: []byte("r"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
	fixed := func() string { return "jti-1" }

	one, _ := NewTokenService(cfg, WithClock(clock.Now), WithIDSource(fixed))
	two, _ := NewTokenService(cfg, WithClock(clock.Now), WithIDSource(fixed))

	a, err := one.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, err := two.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a.Value != b.Value {
		t.Fatal("expected identical tokens for identical inputs")
	}
}

func TestTokenServiceVerifyFailures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService(t, clock)

	access, err := svc.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	refresh, err := svc.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if _, err := svc.Verify(access.Value, KindRefresh); apperror.KindOf(err) != apperror.KindInvalidToken {
		t.Fatalf("expected access token to be rejected as refresh, got %v", err)
	}
	if _, err := svc.Verify(refresh.Value, KindAccess); apperror.KindOf(err) != apperror.KindInvalidToken {
		t.Fatalf("expected refresh token to be rejected as access, got %v", err)
	}

	parts := strings.Split(access.Value, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := svc.Verify(tampered, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected tampered token to be invalid, got %v", err)
	}

	if _, err := svc.Verify("", KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected empty token to be invalid, got %v", err)
	}

	clock.now = clock.now.Add(16 * time.Minute)
	if _, err := svc.Verify(access.Value, KindAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired access token, got %v", err)
	}
	if _, err := svc.Verify(refresh.Value, KindRefresh); err != nil {
		t.Fatalf("expected refresh token to outlive access token, got %v", err)
	}
}

func TestNewTokenServiceValidation(t *testing.T) {
	if _, err := NewTokenService(TokenConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour}); err == nil {
		t.Fatal("expected error for missing secrets")
	}
	if _, err := NewTokenService(TokenConfig{AccessSecret: []byte("a"), RefreshSecret: []byte("r")}); err == nil {
		t.Fatal("expected error for missing lifetimes")
	}
}
