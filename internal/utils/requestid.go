package utils

import "context"

type requestIDKey struct{}

// WithRequestID returns a child context carrying the request ID so that
// services below the HTTP layer can tag their log lines.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID stored in ctx, or "-" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return "-"
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return "-"
}
