package logger

import (
	"context"
	"log/slog"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// Attribute keys shared by the middleware chain so every request log line
// carries the same field names.
const (
	TraceKey = "trace_id"
	ActorKey = "actor"
)

// With returns a new context carrying a logger extended with fields.
func With(ctx context.Context, fields ...any) context.Context {
	l := From(ctx).With(fields...)
	return context.WithValue(ctx, loggerKey, l)
}

// WithTrace stamps the request trace id onto the context logger.
func WithTrace(ctx context.Context, traceID string) context.Context {
	return With(ctx, TraceKey, traceID)
}

// WithActor stamps the acting account onto the context logger once auth
// resolves it.
func WithActor(ctx context.Context, username string) context.Context {
	return With(ctx, ActorKey, username)
}

// From returns the logger stored in context, or the process logger if
// missing.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
