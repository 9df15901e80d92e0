package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// CacheControl marks a response publicly cacheable. Used on anonymous
// lookup endpoints such as certificate verification.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAgeSeconds))
		c.Next()
	}
}
