package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kraklabs/cmx/apierror"
)

// CaptureAndAbort maps err to an HTTP status and {ok:false, error:...}
// body. Unrecognised errors (not constructed via apierror) are treated
// as Transient failures.
func CaptureAndAbort(c *gin.Context, err error) {
	if apiErr, ok := apierror.As(err); ok {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"ok": false, "error": apiErr.Message})
		return
	}
	c.AbortWithStatusJSON(500, gin.H{"ok": false, "error": err.Error()})
}
