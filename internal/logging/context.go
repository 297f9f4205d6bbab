package logging

import (
	"context"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type (
	requestCtxKey struct{}
	userCtxKey    struct{}
	noteCtxKey    struct{}
	loggerCtxKey  struct{}
)

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// validID reports whether id can be attached as a correlation field.
func validID(id string) bool {
	return id != "" && len(id) <= maxIDLen && idPattern.MatchString(id)
}

// ContextFields returns the correlation fields carried by ctx: the active
// trace and span, then request, user and note ids when present.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 5)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if id := UserIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("user.id", id))
	}
	if id := NoteIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("note.id", id))
	}
	return fields
}

// WithRequestID attaches a request id. Ids that are empty, longer than 128
// bytes or contain characters outside [A-Za-z0-9_.:-] are not attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withID(ctx, requestCtxKey{}, id)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return idFrom(ctx, requestCtxKey{})
}

// WithUserID attaches a user id under the same rules as WithRequestID.
func WithUserID(ctx context.Context, id string) context.Context {
	return withID(ctx, userCtxKey{}, id)
}

// UserIDFromContext returns the user id, or "".
func UserIDFromContext(ctx context.Context) string {
	return idFrom(ctx, userCtxKey{})
}

// WithNoteID attaches a note id under the same rules as WithRequestID.
func WithNoteID(ctx context.Context, id string) context.Context {
	return withID(ctx, noteCtxKey{}, id)
}

// NoteIDFromContext returns the note id, or "".
func NoteIDFromContext(ctx context.Context) string {
	return idFrom(ctx, noteCtxKey{})
}

func withID(ctx context.Context, key any, id string) context.Context {
	if !validID(id) {
		return ctx
	}
	return context.WithValue(ctx, key, id)
}

func idFrom(ctx context.Context, key any) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return Nop()
}
