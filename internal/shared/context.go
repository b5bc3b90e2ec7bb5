package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the request session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session, or nil when the session
// middleware did not run (background jobs, tests driving handlers directly).
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
