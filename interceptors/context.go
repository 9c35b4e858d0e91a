package interceptors

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	// InvocationContextKey is the key for storing the current invocation
	InvocationContextKey contextKey = "weave:interceptor:invocation"
)

// WithInvocation adds the invocation to the context
func WithInvocation(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, InvocationContextKey, inv)
}

// InvocationFromContext retrieves the innermost invocation from the context. Base operations
// use it to correlate their own logging with the invocation ID.
func InvocationFromContext(ctx context.Context) (*Invocation, bool) {
	value := ctx.Value(InvocationContextKey)
	if value == nil {
		return nil, false
	}
	inv, ok := value.(*Invocation)
	return inv, ok
}

// InvocationID returns the ID of the current invocation or an empty string
func InvocationID(ctx context.Context) string {
	if inv, ok := InvocationFromContext(ctx); ok {
		return inv.ID()
	}
	return ""
}
