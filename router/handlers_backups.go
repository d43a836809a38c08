package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kraklabs/cmx/apierror"
	"github.com/kraklabs/cmx/metaenforcer"
	"github.com/kraklabs/cmx/router/middleware"
)

// handleListBackups serves GET /backups/*name: the entry's backup
// filenames, newest first.
func handleListBackups(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := resolveEntryFromWildcard(deps, c.Param("name"))
		if err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		names, lerr := deps.Backups.List(entry.BackupDir, entry.Path)
		if lerr != nil {
			middleware.CaptureAndAbort(c, lerr)
			return
		}
		c.JSON(200, gin.H{"ok": true, "name": entry.Name, "backups": names})
	}
}

// handleGetBackupContent serves GET /backupcontent/:name/*filename: the
// raw bytes of one validated backup file.
func handleGetBackupContent(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := resolveEntry(deps, c.Param("name"))
		if err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		filename := trimWildcard(c.Param("filename"))
		data, rerr := deps.Backups.Read(entry.BackupDir, entry.Path, filename)
		if rerr != nil {
			middleware.CaptureAndAbort(c, rerr)
			return
		}
		c.Data(200, "application/octet-stream", data)
	}
}

// handleRestore serves POST /restore/:name/*filename: copies the named
// backup onto the entry's live path and re-applies its declared
// ownership/mode.
func handleRestore(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := resolveEntry(deps, c.Param("name"))
		if err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		if !deps.Guard.IsAllowed(entry.Path) {
			middleware.CaptureAndAbort(c, apierror.PathDenied("Pfad nicht erlaubt"))
			return
		}
		filename := trimWildcard(c.Param("filename"))
		if rerr := deps.Backups.Restore(entry.BackupDir, entry.Path, filename); rerr != nil {
			middleware.CaptureAndAbort(c, rerr)
			return
		}

		applied, merr := metaenforcer.Apply(metaenforcer.Request{
			User:      entry.User,
			Group:     entry.Group,
			Mode:      entry.Mode,
			ApplyMeta: entry.ApplyMeta,
		}, deps.Config.ApplyMeta, entry.Path)
		if merr != nil {
			deps.Logger.WithError(merr).WithField("name", entry.Name).Warn("restore: metadata enforcement failed")
		}

		c.JSON(200, gin.H{"ok": true, "name": entry.Name, "restored": filename, "mode": applied.Mode})
	}
}
