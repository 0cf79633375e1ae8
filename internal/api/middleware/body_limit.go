package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"accommodation-portal/pkg/response"
)

// BodyLimit caps the request body at maxBytes (e.g. 1<<20 = 1MB).
// Declared oversize bodies are refused up front; chunked bodies fail on
// read with *http.MaxBytesError, which handlers answer with a 413.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "request body too large")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
