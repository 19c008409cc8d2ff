// Package requestctx keeps per-request values of the menu API on
// context.Context so handlers and services can reach them without extra
// parameters.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type (
	loggerKey      struct{}
	traceKey       struct{}
	cartSessionKey struct{}
)

var noopLogger = zap.NewNop()

// TraceInfo is the Cloud Trace context parsed from the inbound request.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func lookup[T any](ctx context.Context, key any) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// WithLogger binds the request logger. A nil logger binds the no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(orBackground(ctx), loggerKey{}, logger)
}

// Logger returns the request logger, or the no-op logger when none is bound.
func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := lookup[*zap.Logger](ctx, loggerKey{}); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger is the logger returned when the request carries none. Callers
// compare against it to detect a missing request logger.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace binds the parsed trace header.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	return context.WithValue(orBackground(ctx), traceKey{}, info)
}

// Trace reports the trace bound by the tracing middleware.
func Trace(ctx context.Context) (TraceInfo, bool) {
	return lookup[TraceInfo](ctx, traceKey{})
}

// TraceID is Trace(ctx).TraceID, empty when the request was not traced.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithCartSession binds the visitor's cart session id.
func WithCartSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(orBackground(ctx), cartSessionKey{}, sessionID)
}

// CartSession returns the cart session id resolved by the session middleware.
func CartSession(ctx context.Context) string {
	id, _ := lookup[string](ctx, cartSessionKey{})
	return id
}
