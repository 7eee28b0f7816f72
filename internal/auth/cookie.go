package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "hg_session"
	RefreshCookie = "hg_refresh"
)

type CookieOptions struct {
	Secure bool
	Domain string
}

// SetSessionCookies writes both tokens as HttpOnly cookies.
func SetSessionCookies(c *gin.Context, pair TokenPair, opts CookieOptions, now time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, pair.SessionToken, maxAge(pair.ExpiresAt, now), "/", opts.Domain, opts.Secure, true)
	c.SetCookie(RefreshCookie, pair.RefreshToken, maxAge(pair.RefreshExpiresAt, now), "/", opts.Domain, opts.Secure, true)
}

func ClearSessionCookies(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", opts.Domain, opts.Secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", opts.Domain, opts.Secure, true)
}

func maxAge(exp, now time.Time) int {
	secs := int(exp.Sub(now).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}
