// Package requestctx carries the request id through context without the
// transport packages importing each other.
package requestctx

import "context"

type contextKey struct{}

var requestIDKey contextKey

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
