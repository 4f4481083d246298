package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/respond"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds with service health information.
type HealthHandler struct {
	// DB is optional; the in-memory backend has nothing to ping.
	DB Pinger
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Handle implements GET /healthz and GET /api/v1/healthcheck.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := healthStatus{Status: "ok", Database: "disabled"}
	if h.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(pingCtx); err != nil {
			respond.Error(ctx, w, apperror.Internal("database unreachable", err))
			return
		}
		status.Database = "ok"
	}

	respond.OK(ctx, w, http.StatusOK, "OK", status)
}
