package observability

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey is a private type so stored values cannot collide with keys
// from other packages.
type contextKey string

const (
	correlationIDCtxKey contextKey = "correlation_id"
	requestIDCtxKey     contextKey = "request_id"
)

// Attribute keys shared by log statements across the codebase.
const (
	CorrelationIDKey = "correlation_id"
	RequestIDKey     = "request_id"
	ErrorKey         = "error"
)

// WithCorrelationID stores a correlation ID in the context, minting a fresh
// UUID when id is empty.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDCtxKey, orNewID(id))
}

// WithRequestID stores a request ID in the context, minting a fresh UUID
// when id is empty.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey, orNewID(id))
}

// CorrelationIDFromContext returns the correlation ID, or "" when unset.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDCtxKey)
}

// RequestIDFromContext returns the request ID, or "" when unset.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDCtxKey)
}

func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// contextAttrs collects the tracing IDs present in ctx as log attributes.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if id := CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String(CorrelationIDKey, id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String(RequestIDKey, id))
	}
	return attrs
}
