// Package logging carries a request-scoped slog logger and the ids used to
// correlate log lines through the context.
package logging

import (
	"context"
	"log/slog"
)

type (
	loggerKey    struct{}
	requestIDKey struct{}
	traceIDKey   struct{}
	spanIDKey    struct{}
)

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request-scoped logger or falls back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

func withString(ctx context.Context, key any, value string) context.Context {
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// WithRequestID stores the id assigned to the inbound request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string { return stringFrom(ctx, requestIDKey{}) }

// WithTraceID stores a trace identifier on the context.
func WithTraceID(ctx context.Context, id string) context.Context {
	return withString(ctx, traceIDKey{}, id)
}

// TraceIDFromContext returns the trace id, or "".
func TraceIDFromContext(ctx context.Context) string { return stringFrom(ctx, traceIDKey{}) }

// WithSpanID stores the current span identifier on the context.
func WithSpanID(ctx context.Context, id string) context.Context {
	return withString(ctx, spanIDKey{}, id)
}

// SpanIDFromContext returns the current span id, or "".
func SpanIDFromContext(ctx context.Context) string { return stringFrom(ctx, spanIDKey{}) }
