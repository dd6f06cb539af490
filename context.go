package esmerald

import (
	"context"
	"net/http"
)

type contextKey[T any] struct{}

// SetValue stores a typed value in the request context. For use in middleware.
// Values are keyed by type, so wrap plain strings in a named type.
func SetValue[T any](r *http.Request, val T) *http.Request {
	return r.WithContext(WithValue(r.Context(), val))
}

// WithValue returns a copy of ctx carrying val under its type.
func WithValue[T any](ctx context.Context, val T) context.Context {
	return context.WithValue(ctx, contextKey[T]{}, val)
}

// GetValue retrieves a typed value from the request context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}
