package httpapi

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hackathon-gateway/internal/audit"
	"hackathon-gateway/internal/auth"
	"hackathon-gateway/internal/backend"
	"hackathon-gateway/internal/liveness"
	"hackathon-gateway/internal/rbac"
	"hackathon-gateway/internal/signin"
	"hackathon-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

const maxPassthroughBody = 8 << 20

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse input, call internal services, return JSON.
type Handlers struct {
	Sessions *signin.Service
	Client   *backend.Client
	Monitor  *liveness.Monitor
	Cookies  auth.CookieOptions
	Now      func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// ClientIP stores the resolved client IP for audit records.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Auth ---

type signInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// SignIn accepts JSON or form credentials and sets the session cookies.
func (h Handlers) SignIn(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "sign-in not configured"})
		return
	}

	var req signInRequest
	if err := c.ShouldBind(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, pair, err := h.Sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, signin.ErrMissingCredentials):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, signin.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	case errors.Is(err, auth.ErrSecretNotConfigured), errors.Is(err, backend.ErrBaseURLNotConfigured):
		log.Error("sign-in unavailable", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "gateway not configured"})
		return
	default:
		log.Error("sign-in failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "authentication service unavailable"})
		return
	}

	auth.SetSessionCookies(c, pair, h.Cookies, h.now())
	c.JSON(http.StatusOK, sess.View())
}

func (h Handlers) SignOut(c *gin.Context) {
	if s, ok := auth.SessionFrom(c.Request.Context()); ok && h.Sessions != nil {
		if err := h.Sessions.SignOut(c.Request.Context(), s, signin.ReasonUser); err != nil {
			logger.FromGin(c).Warn("sign-out revoke failed", "session_id", s.ID, "err", err)
		}
	}
	auth.ClearSessionCookies(c, h.Cookies)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Session returns the public view of the caller's session.
func (h Handlers) Session(c *gin.Context) {
	s, ok := auth.SessionFrom(c.Request.Context())
	if !ok {
		unauthorized(c, auth.RevocationReason(c.Request.Context()))
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h Handlers) Refresh(c *gin.Context) {
	log := logger.FromGin(c)
	raw, err := c.Cookie(auth.RefreshCookie)
	if err != nil || raw == "" || h.Sessions == nil {
		auth.ClearSessionCookies(c, h.Cookies)
		unauthorized(c, "")
		return
	}

	sess, pair, err := h.Sessions.Refresh(c.Request.Context(), raw)
	if err != nil {
		if !errors.Is(err, signin.ErrSessionExpired) {
			log.Error("session refresh failed", "err", err)
		}
		auth.ClearSessionCookies(c, h.Cookies)
		unauthorized(c, "")
		return
	}

	auth.SetSessionCookies(c, pair, h.Cookies, h.now())
	c.JSON(http.StatusOK, sess.View())
}

// Check runs one liveness probe for the caller's session right away.
func (h Handlers) Check(c *gin.Context) {
	s, ok := auth.SessionFrom(c.Request.Context())
	if !ok {
		unauthorized(c, auth.RevocationReason(c.Request.Context()))
		return
	}
	if h.Monitor == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": liveness.OutcomeAlive.String()})
		return
	}

	out, err := h.Monitor.Check(c.Request.Context(), s)
	if err != nil {
		logger.FromGin(c).Warn("liveness check failed", "session_id", s.ID, "err", err)
	}
	if out == liveness.OutcomeRevoked {
		auth.ClearSessionCookies(c, h.Cookies)
		unauthorized(c, liveness.ReasonBackendInvalid)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": out.String()})
}

// Ping reports whether the caller holds a session.
func (h Handlers) Ping(c *gin.Context) {
	if _, ok := auth.SessionFrom(c.Request.Context()); !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// --- Backend passthrough ---

var passthroughHeaders = []string{"Accept", "Accept-Language", "Content-Type", "If-None-Match", "X-Request-Id"}

// Backend relays ANY /api/backend/*path through the authenticated client.
// A 401 on an auth-check path from a private page ends the session here.
func (h Handlers) Backend(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Client == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "gateway not configured"})
		return
	}

	var body []byte
	if c.Request.Body != nil && c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		b, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPassthroughBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		body = b
	}

	header := http.Header{}
	for _, k := range passthroughHeaders {
		if v := c.GetHeader(k); v != "" {
			header.Set(k, v)
		}
	}

	ctx := backend.WithCurrentPage(c.Request.Context(), currentPage(c.Request))
	resp, err := h.Client.Do(ctx, backend.Request{
		Method: c.Request.Method,
		Path:   c.Param("path"),
		Query:  c.Request.URL.Query(),
		Header: header,
		Body:   body,
	})
	if err != nil {
		if errors.Is(err, backend.ErrBaseURLNotConfigured) {
			log.Error("backend passthrough without base url")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "gateway not configured"})
			return
		}
		log.Warn("backend passthrough failed", "path", c.Param("path"), "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "backend unreachable"})
		return
	}

	if resp.Terminated {
		auth.ClearSessionCookies(c, h.Cookies)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":    "session expired",
			"redirect": rbac.ExpiredSignInURL(resp.TerminationReason),
		})
		return
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	c.Data(resp.Status, ct, resp.Body)
}

// currentPage is the frontend page the call came from: X-Current-Page when
// the frontend sends it, else the Referer path.
func currentPage(r *http.Request) string {
	if p := strings.TrimSpace(r.Header.Get("X-Current-Page")); p != "" {
		return p
	}
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil {
			return u.Path
		}
	}
	return ""
}

func unauthorized(c *gin.Context, reason string) {
	body := gin.H{"error": "unauthorized"}
	if reason != "" {
		body["reason"] = reason
		body["redirect"] = rbac.ExpiredSignInURL(reason)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, body)
}
