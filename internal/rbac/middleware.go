package rbac

import (
	"context"
	"net/http"
	"net/url"
	pathpkg "path"
	"strings"

	"hackathon-gateway/internal/auth"
	"hackathon-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	SignInPath = "/auth/signin"
	ErrorPath  = "/auth/error"
)

// RequireAnyRole allows API access if the session has any of the provided roles.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := auth.SessionFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !HasAnyRole(s.Roles, allowed...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// DenialRecorder is notified when a signed-in user is turned away by GuardPrefix.
type DenialRecorder interface {
	RecordDenied(ctx context.Context, s auth.Session, path string)
}

// GuardPrefix protects page routes under prefix before anything is rendered.
//
//   - no session: redirect to sign-in with callbackUrl set to the original path
//   - session without role: redirect to the error page with error=Forbidden
//
// Paths outside the prefix pass through unexamined.
func GuardPrefix(prefix, role string, denials DenialRecorder) gin.HandlerFunc {
	prefix = strings.TrimRight(prefix, "/")
	return func(c *gin.Context) {
		// Match on the form the file server will resolve: "//admin" and
		// "/x/../admin" both land on /admin.
		path := CanonicalPath(c.Request.URL.Path)
		if !UnderPrefix(path, prefix) {
			c.Next()
			return
		}

		s, ok := auth.SessionFrom(c.Request.Context())
		if !ok {
			c.Redirect(http.StatusFound, SignInURL(path, auth.RevocationReason(c.Request.Context())))
			c.Abort()
			return
		}

		if !s.HasRole(role) {
			logger.FromGin(c).Warn("role gate denied page",
				"path", path,
				"user_id", s.UserID,
				"roles", s.Roles,
				"required", role,
			)
			if denials != nil {
				denials.RecordDenied(c.Request.Context(), s, path)
			}
			c.Redirect(http.StatusFound, ErrorPath+"?error=Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CanonicalPath cleans p into a rooted path without dot segments or
// repeated slashes.
func CanonicalPath(p string) string {
	return pathpkg.Clean("/" + p)
}

// UnderPrefix matches prefix itself and anything below it, but not siblings
// that merely share the prefix ("/administrator" is not under "/admin").
func UnderPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// SignInURL builds the sign-in redirect for a protected page.
// A non-empty reason marks the redirect as a session expiry.
func SignInURL(callbackPath, reason string) string {
	q := url.Values{}
	if callbackPath != "" {
		q.Set("callbackUrl", callbackPath)
	}
	if reason != "" {
		q.Set("sessionExpired", "true")
		q.Set("reason", reason)
	}
	if len(q) == 0 {
		return SignInPath
	}
	return SignInPath + "?" + q.Encode()
}

// ExpiredSignInURL is the redirect used when the gateway itself ended a
// session, e.g. /auth/signin?sessionExpired=true&reason=api_401.
func ExpiredSignInURL(reason string) string {
	return SignInPath + "?sessionExpired=true&reason=" + url.QueryEscape(reason)
}
