package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	setIDKey     contextKey = "set_id"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSetID annotates context with the clip set being built or served.
func WithSetID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, setIDKey, id)
}

// SetIDFromContext returns the clip-set identifier if present.
func SetIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(setIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
