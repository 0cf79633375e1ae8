package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"accommodation-portal/internal/event"
)

const requestIDKey = "request_id"

// requestIDMaxLen caps a client supplied X-Request-ID to keep it out of log injection
const requestIDMaxLen = 64

// RequestID reads X-Request-ID or generates a UUID, stores it in the
// context and echoes it back in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}

// ClientInfo records the caller's IP and user agent on the request context
// so analytics events emitted downstream carry them.
func ClientInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := event.WithClientInfo(c.Request.Context(), event.ClientInfo{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
