package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControl marks a public response as cacheable for maxAge.
func CacheControl(maxAge time.Duration) gin.HandlerFunc {
	value := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}

// ETag tags responses with a weak validator derived from version and
// answers 304 when the client already holds it. An empty version skips
// tagging so errors are never cached.
func ETag(version func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version()
		if v == "" {
			c.Next()
			return
		}

		tag := `W/"` + v + `"`
		c.Header("ETag", tag)
		if matchesETag(c.GetHeader("If-None-Match"), tag) {
			c.AbortWithStatus(http.StatusNotModified)
			return
		}
		c.Next()
	}
}

func matchesETag(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == tag || "W/"+candidate == tag {
			return true
		}
	}
	return false
}
