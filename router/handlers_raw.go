package router

import (
	"io"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kraklabs/cmx/apierror"
	"github.com/kraklabs/cmx/router/middleware"
)

// handleGetRawConfigs serves GET /raw/configs: the unparsed configs.json
// document backing the registry.
func handleGetRawConfigs(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := os.ReadFile(deps.Config.ConfigsPath)
		if err != nil {
			if os.IsNotExist(err) {
				middleware.CaptureAndAbort(c, apierror.NotFoundf("Konfigurationsdatei fehlt: %s", deps.Config.ConfigsPath))
				return
			}
			middleware.CaptureAndAbort(c, apierror.TransientWrap(err, "Konfigurationsdatei konnte nicht gelesen werden"))
			return
		}
		c.Data(200, "application/json; charset=utf-8", data)
	}
}

// handlePostRawConfigs serves POST /raw/configs: validates and persists
// a full replacement configs.json document, then rebuilds the registry.
func handlePostRawConfigs(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, rerr := io.ReadAll(c.Request.Body)
		if rerr != nil {
			middleware.CaptureAndAbort(c, apierror.Validationf("Anfrage konnte nicht gelesen werden: %v", rerr))
			return
		}
		if err := deps.Registry.ReplaceAndPersist(body, deps.Logger); err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		c.JSON(200, gin.H{"ok": true})
	}
}

// handleReloadRawConfigs serves POST /raw/configs/reload: re-reads
// configs.json from disk and rebuilds the in-memory registry from it.
func handleReloadRawConfigs(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Registry.ReloadFromDisk(deps.Logger); err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		c.JSON(200, gin.H{"ok": true, "entries": len(deps.Registry.List())})
	}
}

// handleDeleteRawConfig serves DELETE /raw/configs/:name: removes one
// entry from both the persisted document and the in-memory registry.
func handleDeleteRawConfig(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if err := deps.Registry.DeleteAndPersist(name, deps.Logger); err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		c.JSON(200, gin.H{"ok": true, "name": name})
	}
}
