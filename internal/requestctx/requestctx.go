// Package requestctx carries the correlation ID assigned to each HTTP
// request so audit rows and log lines can be tied back to the call.
package requestctx

import "context"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID returns the correlation ID, or "" outside a request scope.
func GetRequestID(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}
