package shared

import (
	"context"

	"github.com/egepakten/cognito-student-registry/internal/session"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context. Returns nil
// for unauthenticated requests.
func SessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess
}
