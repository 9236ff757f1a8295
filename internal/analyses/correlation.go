package analyses

import "context"

type correlationIDKey struct{}

// WithCorrelationID attaches a correlation ID to the context for logging.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if ctx == nil || correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

func correlationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// backgroundWithCorrelationID detaches background work from the request
// context while keeping the correlation ID for log continuity.
func backgroundWithCorrelationID(ctx context.Context) context.Context {
	correlationID := correlationIDFromContext(ctx)
	if correlationID == "" {
		return context.Background()
	}
	return WithCorrelationID(context.Background(), correlationID)
}
