package router

import (
	"encoding/json"
	"io"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kraklabs/cmx/apierror"
	"github.com/kraklabs/cmx/atomicio"
	"github.com/kraklabs/cmx/metaenforcer"
	"github.com/kraklabs/cmx/router/middleware"
)

// handleListConfigs serves GET /configs: every registered entry's name,
// path, service binding, category, and declared action tokens, under
// the id/filename/filetype response naming this route uses.
func handleListConfigs(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries := deps.Registry.List()
		out := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			out = append(out, gin.H{
				"id":       e.Name,
				"filename": e.Path,
				"filetype": e.Service,
				"category": e.Category,
				"actions":  e.SortedActionTokens(),
			})
		}
		c.JSON(200, gin.H{"ok": true, "configs": out})
	}
}

// handleGetConfig serves GET /config/*name: the raw bytes of the
// entry's declared file, subject to the path guard.
func handleGetConfig(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := resolveEntryFromWildcard(deps, c.Param("name"))
		if err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		if !deps.Guard.IsAllowed(entry.Path) {
			middleware.CaptureAndAbort(c, apierror.PathDenied("Pfad nicht erlaubt"))
			return
		}
		data, rerr := os.ReadFile(entry.Path)
		if rerr != nil {
			if os.IsNotExist(rerr) {
				middleware.CaptureAndAbort(c, apierror.NotFoundf("Datei fehlt: %s", entry.Path))
				return
			}
			middleware.CaptureAndAbort(c, apierror.TransientWrap(rerr, "Datei konnte nicht gelesen werden"))
			return
		}
		c.Data(200, "application/octet-stream", data)
	}
}

type configContentBody struct {
	Content string `json:"content"`
}

// extractContent accepts either a raw body or a JSON {content:"…"}
// envelope, per the router binding.
func extractContent(c *gin.Context, raw []byte) []byte {
	ct := c.ContentType()
	if ct != "application/json" {
		return raw
	}
	var body configContentBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return raw
	}
	return []byte(body.Content)
}

// handlePostConfig serves POST /config/*name: snapshots the existing
// file (if any), atomically rewrites it with the request body, and
// applies the entry's declared ownership/mode.
func handlePostConfig(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry, err := resolveEntryFromWildcard(deps, c.Param("name"))
		if err != nil {
			middleware.CaptureAndAbort(c, err)
			return
		}
		if !deps.Guard.IsAllowed(entry.Path) {
			middleware.CaptureAndAbort(c, apierror.PathDenied("Pfad nicht erlaubt"))
			return
		}

		raw, rerr := io.ReadAll(c.Request.Body)
		if rerr != nil {
			middleware.CaptureAndAbort(c, apierror.Validationf("Anfrage konnte nicht gelesen werden: %v", rerr))
			return
		}
		body := extractContent(c, raw)

		if entry.BackupDir != "" {
			if _, berr := deps.Backups.Snapshot(entry.BackupDir, entry.Path); berr != nil {
				middleware.CaptureAndAbort(c, apierror.TransientWrap(berr, "Schreibfehler"))
				return
			}
		}

		method, werr := atomicio.Write(entry.Path, body)
		if werr != nil {
			middleware.CaptureAndAbort(c, apierror.TransientWrap(werr, "Schreibfehler"))
			return
		}

		applied, merr := metaenforcer.Apply(metaenforcer.Request{
			User:      entry.User,
			Group:     entry.Group,
			Mode:      entry.Mode,
			ApplyMeta: entry.ApplyMeta,
		}, deps.Config.ApplyMeta, entry.Path)
		if merr != nil {
			deps.Logger.WithError(merr).WithField("name", entry.Name).Warn("config: metadata enforcement failed")
		}

		c.JSON(200, gin.H{
			"ok":     true,
			"saved":  true,
			"path":   entry.Path,
			"method": string(method),
			"requested": gin.H{
				"user":       entry.User,
				"group":      entry.Group,
				"mode":       entry.Mode,
				"apply_meta": entry.ApplyMeta,
			},
			"applied": gin.H{
				"uid":  applied.UID,
				"gid":  applied.GID,
				"mode": applied.Mode,
			},
		})
	}
}
