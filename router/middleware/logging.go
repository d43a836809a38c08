package middleware

import (
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// RequestLogger emits the REQUEST line before dispatch and the
// RESPONSE line after, in the single-line formats specified for the
// external log interface.
func RequestLogger(logger *log.Entry) gin.HandlerFunc {
	if logger == nil {
		logger = log.NewEntry(log.Log.(*log.Logger))
	}
	return func(c *gin.Context) {
		reqID := RequestID(c)
		ip := ClientIP(c)
		method := c.Request.Method
		path := c.Request.URL.Path

		logger.WithFields(log.Fields{
			"req_id": reqID,
			"ip":     ip,
			"method": method,
			"path":   path,
		}).Infof("REQUEST req_id=%s ip=%s %s %s", reqID, ip, method, path)

		c.Next()

		elapsed := time.Since(StartedAt(c)).Seconds()
		status := c.Writer.Status()
		logger.WithFields(log.Fields{
			"req_id": reqID,
			"ip":     ip,
			"method": method,
			"path":   path,
			"status": status,
			"time":   elapsed,
		}).Infof("RESPONSE req_id=%s ip=%s %s %s status=%d time=%f", reqID, ip, method, path, status, elapsed)
	}
}
