package gatehouse

import "context"

type clientOriginContextKey struct{}

// WithClientOrigin attaches the caller's network origin (typically the
// client IP) to ctx. The engine keys the email-search and sign-in abuse
// budgets by it. Requests without an origin share the "unknown" bucket.
func WithClientOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, clientOriginContextKey{}, origin)
}

func clientOriginFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}

	origin, _ := ctx.Value(clientOriginContextKey{}).(string)
	if origin == "" {
		return "unknown"
	}

	return origin
}
