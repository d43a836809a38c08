package middleware

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttachRequestID assigns a "<ms-time>-<pid>-<rand>" request id and
// start timestamp to the context.
func AttachRequestID() gin.HandlerFunc {
	pid := os.Getpid()
	return func(c *gin.Context) {
		start := time.Now()
		randSegment := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
		reqID := fmt.Sprintf("%d-%d-%s", start.UnixMilli(), pid, randSegment)

		c.Set(ctxRequestID, reqID)
		c.Set(ctxStartedAt, start)
		c.Next()
	}
}

// RequestID returns the request id attached by AttachRequestID.
func RequestID(c *gin.Context) string {
	if v, ok := c.Get(ctxRequestID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// StartedAt returns the monotonic start timestamp for this request.
func StartedAt(c *gin.Context) time.Time {
	if v, ok := c.Get(ctxStartedAt); ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}
