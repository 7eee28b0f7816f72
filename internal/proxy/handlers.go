package proxy

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"hackathon-gateway/internal/auth"
	"hackathon-gateway/internal/backend"
	"hackathon-gateway/internal/upload"
	"hackathon-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	bodySlack = 1 << 20
	// defaultMaxBody bounds how much of an upload is read at all, forwarded or not.
	defaultMaxBody = 256 << 20
)

// Handlers validates multipart uploads and relays them to the backend.
//
// Files are checked before anything is forwarded; a rejected upload never
// reaches the backend.
type Handlers struct {
	Forwarder     Forwarder
	ProjectRules  upload.Rules
	AvatarRules   upload.Rules
	Limiter       Limiter
	MaxFieldBytes int64
	// MaxBodyBytes stops reading oversized uploads early. Bodies between
	// the file ceiling and this limit are still walked so the caller gets
	// the full violation list.
	MaxBodyBytes int64
}

func (h Handlers) bodyLimit(forwardable int64) int64 {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}
	return max(limit, forwardable)
}

// SubmitProjectVersion handles POST /api/projects/submit.
func (h Handlers) SubmitProjectVersion(c *gin.Context) {
	h.relay(c, h.ProjectRules, func(form *upload.Form) (string, bool) {
		id := form.Value("project_id")
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "project_id missing"})
			return "", false
		}
		return "/projects/" + url.PathEscape(id) + "/submit_version", true
	})
}

// UploadAvatar handles POST /api/users/me/avatar.
func (h Handlers) UploadAvatar(c *gin.Context) {
	h.relay(c, h.AvatarRules, func(*upload.Form) (string, bool) {
		return "/users/me/avatar", true
	})
}

func (h Handlers) relay(c *gin.Context, rules upload.Rules, target func(*upload.Form) (string, bool)) {
	log := logger.FromGin(c)

	contentType := c.GetHeader("Content-Type")
	if !upload.IsMultipart(contentType) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid content type"})
		return
	}

	limiter := h.Limiter
	if limiter == nil {
		limiter = NoopLimiter{}
	}
	release, ok, err := limiter.Acquire(c.Request.Context(), limiterKey(c))
	if err != nil {
		// Limiter outage should not block uploads.
		log.Warn("upload limiter unavailable", "err", err)
		release, ok = func() {}, true
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many concurrent uploads"})
		return
	}
	defer release()

	// The multipart walk sees the whole body so every file is sized and
	// typed. Only the first MaxBytes+slack bytes are kept for forwarding.
	kept := &cappedBuffer{limit: rules.MaxBytes + bodySlack}
	body := io.TeeReader(http.MaxBytesReader(c.Writer, c.Request.Body, h.bodyLimit(kept.limit)), kept)

	form, err := upload.ParseReader(body, contentType, h.MaxFieldBytes)
	if err == nil {
		_, err = io.Copy(io.Discard, body)
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to parse multipart form data",
			"details": []string{err.Error()},
		})
		return
	}

	if violations := upload.Validate(form.Files, rules); len(violations) > 0 {
		log.Info("upload rejected", "violations", len(violations))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "File validation failed",
			"details": upload.Messages(violations),
		})
		return
	}

	// Every file fit its ceiling but together they exceed what we relay.
	if kept.over {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}

	path, ok := target(form)
	if !ok {
		return
	}
	raw := kept.Bytes()

	res, err := h.Forwarder.Forward(c.Request.Context(), http.MethodPost, path, raw, c.Request.Header)
	if err != nil {
		if errors.Is(err, backend.ErrBaseURLNotConfigured) {
			log.Error("upload forward without backend base url")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "gateway not configured"})
			return
		}
		log.Warn("upload forward failed", "path", path, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "backend unreachable"})
		return
	}

	// Set only when the backend compressed without being asked.
	if enc := res.Header.Get("Content-Encoding"); enc != "" {
		c.Header("Content-Encoding", enc)
	}
	c.Data(res.Status, res.ContentType(), res.Body)
}

func limiterKey(c *gin.Context) string {
	if s, ok := auth.SessionFrom(c.Request.Context()); ok {
		if s.UserID != "" {
			return "user:" + s.UserID
		}
		return "session:" + s.ID
	}
	return "ip:" + c.ClientIP()
}
