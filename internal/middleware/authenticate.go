package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/respond"
)

// AccessTokenCookie is the cookie carrying the access credential for browsers.
const AccessTokenCookie = "accessToken"

// Authenticator resolves an access credential to the identity it was issued to.
type Authenticator interface {
	Authenticate(accessToken string) (string, error)
}

type userIDKey struct{}

// WithUserID stores the authenticated identity on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the authenticated identity, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// RequireAuth rejects requests without a valid access credential.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				respond.Error(r.Context(), w, apperror.New(apperror.KindInvalidToken, "unauthorized request"))
				return
			}
			userID, err := authn.Authenticate(token)
			if err != nil {
				respond.Error(r.Context(), w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID)))
		})
	}
}

// OptionalAuth resolves the identity when a valid credential is present and
// otherwise lets the request through anonymously.
func OptionalAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := accessToken(r); token != "" {
				if userID, err := authn.Authenticate(token); err == nil {
					r = r.WithContext(withIdentity(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withIdentity(ctx context.Context, userID string) context.Context {
	ctx = WithUserID(ctx, userID)
	return logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", userID))
}

func accessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
