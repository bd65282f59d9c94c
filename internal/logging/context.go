// Package logging carries a request-scoped slog.Logger through context and tags it
// with the identifiers videotube logs under: request id, authenticated user and the
// current service operation.
package logging

import (
	"context"
	"log/slog"
	"strings"
)

type ctxKey struct{}

// scope is the per-request logging state. Each With* call copies it, so a derived
// context never mutates its parent.
type scope struct {
	logger    *slog.Logger
	requestID string
	userID    string
	opID      string
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(ctxKey{}).(scope)
	return s
}

func withScope(ctx context.Context, s scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, s)
}

// ParseLevel maps VIDEOTUBE_LOG_LEVEL to a slog.Level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	s := scopeFrom(ctx)
	s.logger = logger
	return withScope(ctx, s)
}

// FromContext returns the request-scoped logger or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if s := scopeFrom(ctx); s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// WithRequestID records the request identifier. The logger is expected to be
// tagged by the caller, which already knows the id when it builds the logger.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	s := scopeFrom(ctx)
	s.requestID = requestID
	return withScope(ctx, s)
}

// RequestIDFromContext retrieves a previously stored request identifier.
func RequestIDFromContext(ctx context.Context) string {
	return scopeFrom(ctx).requestID
}

// WithUserID records the authenticated user and tags the logger with user_id.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	s := scopeFrom(ctx)
	s.userID = userID
	s.logger = FromContext(ctx).With(slog.String("user_id", userID))
	return withScope(ctx, s)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) string {
	return scopeFrom(ctx).userID
}

// OperationIDFromContext returns the id of the innermost running operation.
func OperationIDFromContext(ctx context.Context) string {
	return scopeFrom(ctx).opID
}
