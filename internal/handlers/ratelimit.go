package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/vidshare/backend/internal/respond"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// limitByIP answers 429 once the caller's address exhausts its budget for scope.
func limitByIP(limiter RateLimiter, scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if limiter != nil && !limiter.Allow(r.Context(), scope+":"+clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respond.Status(r.Context(), w, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
