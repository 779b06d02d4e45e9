package storage

import "context"

// sessionKey is a private type for the session context key.
type sessionKey struct{}

// WithSession injects a session identifier into the context so that
// backends can attribute writes in their logs.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFrom extracts the session identifier from the context.
// Returns an empty string if none is set.
func SessionFrom(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKey{}).(string); ok {
		return v
	}
	return ""
}
