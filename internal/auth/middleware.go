package auth

import (
	"errors"
	"net/http"
	"time"

	"hackathon-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LoadSession verifies the session cookie and injects the session into the
// request context. It never aborts: routes decide for themselves whether a
// missing session is fatal (RequireSession, rbac.GuardPrefix).
func LoadSession(m *Manager, reg Registry, cookies CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookie)
		if err != nil || raw == "" {
			c.Next()
			return
		}
		log := logger.FromGin(c)

		claims, err := m.Verify(raw, TokenTypeSession, time.Now())
		if err != nil {
			if errors.Is(err, ErrSecretNotConfigured) {
				log.Error("session cookie present but gateway has no session secret")
			} else {
				log.Debug("session cookie rejected", "err", err)
				ClearSessionCookies(c, cookies)
			}
			c.Next()
			return
		}

		if reg != nil {
			reason, revoked, err := reg.Revoked(c.Request.Context(), claims.ID)
			if err != nil {
				// Registry outage: trust the signature rather than signing everyone out.
				log.Warn("session registry lookup failed", "session_id", claims.ID, "err", err)
			} else if revoked {
				ClearSessionCookies(c, cookies)
				c.Request = c.Request.WithContext(WithRevocation(c.Request.Context(), reason))
				c.Next()
				return
			}
		}

		s := SessionFromClaims(claims)
		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), s))
		c.Set("session_id", s.ID)
		c.Set("user_id", s.UserID)
		c.Next()
	}
}

// RequireSession rejects requests without a live session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFrom(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
