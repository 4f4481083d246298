package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Span times one unit of work and logs it, with any attributes recorded
// along the way, when it ends.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time

	mu    sync.Mutex
	attrs []slog.Attr
}

// StartSpan derives a child span from ctx. The returned context carries a
// logger tagged with the trace and span ids, so everything logged below the
// span can be correlated.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		// the request id doubles as the trace id when one is present
		traceID = RequestIDFromContext(ctx)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	attrs := []any{slog.String("span_id", spanID), slog.String("span", name)}
	if parent := SpanIDFromContext(ctx); parent != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}
	logger = logger.With(attrs...)

	ctx = WithLogger(ctx, logger)
	ctx = WithSpanID(ctx, spanID)

	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// SetAttributes records attrs to be emitted when the span ends.
func (s *Span) SetAttributes(attrs ...slog.Attr) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.attrs = append(s.attrs, attrs...)
	s.mu.Unlock()
}

// End emits the span at debug level together with its duration.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.mu.Lock()
	attrs := append([]slog.Attr{slog.Duration("duration", time.Since(s.start))}, s.attrs...)
	s.mu.Unlock()

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "span completed", attrs...)
}
