// Package respond writes the JSON envelopes every endpoint answers with.
package respond

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vidshare/backend/internal/apperror"
	"github.com/vidshare/backend/internal/logging"
)

// Envelope is the body of a successful response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope is the body of a failed response.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Success    bool     `json:"success"`
}

// OK writes a success envelope carrying data.
func OK(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	write(ctx, w, status, Envelope{StatusCode: status, Message: message, Data: data, Success: true})
}

// Error classifies err and writes the matching failure envelope. Internal
// causes are logged but never echoed to the client.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := apperror.As(err)
	status := appErr.Kind.StatusCode()

	logger := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "kind", appErr.Kind.String(), "error", err)
	} else {
		logger.Warn("request returned client error", "status", status, "kind", appErr.Kind.String(), "message", appErr.Message)
	}

	message := appErr.Message
	if appErr.Kind == apperror.KindInternal && message == "" {
		message = "internal server error"
	}
	details := appErr.Details
	if details == nil {
		details = []string{}
	}
	write(ctx, w, status, ErrorEnvelope{StatusCode: status, Message: message, Errors: details})
}

// Status writes a failure envelope for a status that has no apperror kind,
// such as 405 or 429.
func Status(ctx context.Context, w http.ResponseWriter, status int, message string) {
	logging.FromContext(ctx).Warn("request rejected", "status", status, "message", message)
	write(ctx, w, status, ErrorEnvelope{StatusCode: status, Message: message, Errors: []string{}})
}

func write(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}
