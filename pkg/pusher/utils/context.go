package utils

import (
	"context"
)

type clientKey struct{}

// WithClientName stores the name of the subscriber, the API sets it from the owner header.
func WithClientName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, clientKey{}, name)
}

// ClientNameFromContext returns a client name from a request context.
func ClientNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(clientKey{}).(string)
	return name
}
