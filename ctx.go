package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// SessionLocalsKey is the router locals key holding the request Session
const SessionLocalsKey = "auth.session"

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSessionContext sets the Session in the given context
func WithSessionContext(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext finds the session in the standard context
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Anonymous(), false
	}
	session, ok := ctx.Value(sessionCtxKey).(Session)
	return session, ok
}

// IdentityFromContext returns the signed in identity, if any
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok || !session.IsAuthenticated() {
		return nil, false
	}
	return session.User, true
}

// GetRouterSession extracts the Session from the router context locals
func GetRouterSession(c router.Context) (Session, bool) {
	raw := c.Locals(SessionLocalsKey)
	if raw == nil {
		return Anonymous(), false
	}
	session, ok := raw.(Session)
	return session, ok
}
