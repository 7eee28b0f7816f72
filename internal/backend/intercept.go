package backend

import (
	"context"
	"strings"
)

// ReasonAPIUnauthorized is the revocation reason recorded when an
// auth-check call comes back 401.
const ReasonAPIUnauthorized = "api_401"

// DefaultAuthCheckPaths are the backend paths whose 401 means the session
// itself is dead rather than a resource being off-limits.
var DefaultAuthCheckPaths = []string{"/users/me", "/ping"}

var publicAuthPages = []string{"/auth/signin", "/auth/register", "/auth/error"}

// Termination describes a session the client decided to end.
type Termination struct {
	SessionID string
	Path      string
	Reason    string
}

// Terminator ends a session. Implementations must tolerate repeated calls
// for the same session.
type Terminator interface {
	Terminate(ctx context.Context, t Termination)
}

// TerminatorFunc adapts a plain function to Terminator.
type TerminatorFunc func(ctx context.Context, t Termination)

func (f TerminatorFunc) Terminate(ctx context.Context, t Termination) { f(ctx, t) }

type (
	pageKey  struct{}
	tokenKey struct{}
)

// WithToken makes calls in ctx use token instead of the session's bearer.
// An empty token sends no Authorization at all. Calls made with an explicit
// token are never intercepted: there is no caller session to end.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func explicitToken(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey{}).(string)
	return t, ok
}

// WithCurrentPage records the frontend page the call was made from.
func WithCurrentPage(ctx context.Context, page string) context.Context {
	return context.WithValue(ctx, pageKey{}, page)
}

func CurrentPage(ctx context.Context) string {
	p, _ := ctx.Value(pageKey{}).(string)
	return p
}

// IsPublicAuthPage reports whether page is one of the sign-in, register or
// error pages, where a 401 is expected and must not bounce the user.
func IsPublicAuthPage(page string) bool {
	for _, p := range publicAuthPages {
		if page == p || strings.HasPrefix(page, p+"/") || strings.HasPrefix(page, p+"?") {
			return true
		}
	}
	return false
}

func (c *Client) isAuthCheck(path string) bool {
	path = strings.TrimSuffix(stripQuery(path), "/")
	for _, p := range c.authCheckPaths {
		if path == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return false
}

func (c *Client) shouldTerminate(ctx context.Context, status int, path string) bool {
	if status != 401 || c.terminator == nil {
		return false
	}
	if _, explicit := explicitToken(ctx); explicit {
		return false
	}
	if !c.isAuthCheck(path) {
		return false
	}
	return !IsPublicAuthPage(CurrentPage(ctx))
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
