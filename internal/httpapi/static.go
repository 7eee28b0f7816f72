package httpapi

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"hackathon-gateway/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Pages serves prebuilt frontend pages from dir for any unmatched GET.
// It runs behind the role gate, so /admin pages are only read for admins.
func Pages(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == "" || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) ||
			strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		clean := rbac.CanonicalPath(c.Request.URL.Path)
		for _, candidate := range []string{clean, clean + ".html", path.Join(clean, "index.html")} {
			p := filepath.Join(dir, filepath.FromSlash(candidate))
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				c.File(p)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	}
}
