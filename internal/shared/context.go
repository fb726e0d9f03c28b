package shared

import "context"

type (
	sessionContextKey  struct{}
	pagePathContextKey struct{}
)

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithPagePath records the portal page the request is rendering.
func ContextWithPagePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, pagePathContextKey{}, path)
}

// PagePathFromContext returns the page path recorded by ContextWithPagePath.
func PagePathFromContext(ctx context.Context) string {
	path, _ := ctx.Value(pagePathContextKey{}).(string)
	return path
}
