package services

import "context"

type contextKey string

const (
	jobIDKey     contextKey = "job_id"
	handlerKey   contextKey = "handler"
	requestIDKey contextKey = "request_id"
)

// WithJobID annotates context with the queue job identifier.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the queue job identifier if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(jobIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithHandler annotates context with the handler name processing the job.
func WithHandler(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, handlerKey, name)
}

// HandlerFromContext returns the handler name if present.
func HandlerFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(handlerKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

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
