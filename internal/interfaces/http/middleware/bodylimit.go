package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// BodyLimit returns a middleware that limits request body size. Uploaded CSV
// feeds are the only large bodies the admin API accepts.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abortWithError(c, dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size")
			return
		}

		// Wrap the body with a limited reader for streaming requests
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
