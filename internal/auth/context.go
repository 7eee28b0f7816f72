package auth

import "context"

type ctxKey int

const (
	ctxSession ctxKey = iota
	ctxRevocation
)

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxSession, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxSession).(Session)
	if !ok || s.ID == "" {
		return Session{}, false
	}
	return s, true
}

// AccessToken returns the backend bearer token of the session in ctx, or "".
func AccessToken(ctx context.Context) string {
	s, _ := SessionFrom(ctx)
	return s.AccessToken
}

// WithRevocation records why a presented session was rejected, so redirects
// can carry a reason code.
func WithRevocation(ctx context.Context, reason string) context.Context {
	if reason == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxRevocation, reason)
}

func RevocationReason(ctx context.Context) string {
	s, _ := ctx.Value(ctxRevocation).(string)
	return s
}
