package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kraklabs/cmx/router/middleware"
)

// handleAction serves POST /action/:name/*cmd: dispatches the action
// token to the entry's bound service or script strategy.
func handleAction(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := resolveEntry(deps, c.Param("name"))
		if err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		token := trimWildcard(c.Param("cmd"))

		result, derr := deps.Dispatcher.Dispatch(c.Request.Context(), entry, token)
		if derr != nil {
			middleware.CaptureAndAbort(c, derr)
			return
		}
		c.JSON(200, result)
	}
}
