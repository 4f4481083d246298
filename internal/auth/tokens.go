package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes access credentials from refresh credentials.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// TokenConfig holds the signing material and lifetimes for issued credentials.
// It is read once at startup and never mutated.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Token is a signed credential together with the claims it was minted with.
type Token struct {
	Value     string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is the claim set carried by both credential kinds.
type Claims struct {
	Kind TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies HS256 credentials. Issuing is deterministic
// for a fixed config, clock and id source.
type TokenService struct {
	cfg   TokenConfig
	now   func() time.Time
	newID func() string
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDSource overrides the generator of the per-token jti claim.
func WithIDSource(newID func() string) TokenOption {
	return func(s *TokenService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewTokenService validates cfg and returns a service bound to it.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("auth: access and refresh secrets must be provided")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}

	s := &TokenService{
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccess mints a short-lived access credential.
func (s *TokenService) IssueAccess(userID string) (Token, error) {
	return s.issue(userID, KindAccess)
}

// IssueRefresh mints a long-lived refresh credential.
func (s *TokenService) IssueRefresh(userID string) (Token, error) {
	return s.issue(userID, KindRefresh)
}

// Verify checks the signature, kind and expiry of raw and returns its claims.
func (s *TokenService) Verify(raw string, kind TokenKind) (Token, error) {
	if raw == "" {
		return Token{}, ErrInvalidToken
	}

	secret, _, err := s.material(kind)
	if err != nil {
		return Token{}, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Token{}, ErrTokenExpired
		}
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Kind != kind || claims.Subject == "" {
		return Token{}, ErrInvalidToken
	}
	if s.cfg.Issuer != "" && claims.Issuer != s.cfg.Issuer {
		return Token{}, ErrInvalidToken
	}

	token := Token{Value: raw, UserID: claims.Subject}
	if claims.IssuedAt != nil {
		token.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		token.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return token, nil
}

func (s *TokenService) issue(userID string, kind TokenKind) (Token, error) {
	if userID == "" {
		return Token{}, errors.New("auth: user id must be provided")
	}

	secret, ttl, err := s.material(kind)
	if err != nil {
		return Token{}, err
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	claims := Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.newID(),
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return Token{Value: signed, UserID: userID, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

func (s *TokenService) material(kind TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case KindAccess:
		return s.cfg.AccessSecret, s.cfg.AccessTTL, nil
	case KindRefresh:
		return s.cfg.RefreshSecret, s.cfg.RefreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown token kind %q", ErrInvalidToken, kind)
	}
}
