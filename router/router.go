// Package router binds HTTP method+path to the request pipeline,
// registry, path guard, backup store, and action dispatcher.
package router

import (
	"strings"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"github.com/kraklabs/cmx/apierror"
	"github.com/kraklabs/cmx/backupstore"
	"github.com/kraklabs/cmx/config"
	"github.com/kraklabs/cmx/dispatcher"
	"github.com/kraklabs/cmx/pathguard"
	"github.com/kraklabs/cmx/registry"
	"github.com/kraklabs/cmx/router/middleware"
)

// Version is set at build time via -ldflags; "dev" otherwise.
var Version = "dev"

// Deps bundles every component a handler may need. Handlers take a
// *Deps via closure rather than a global, mirroring the teacher's
// Configure(m *wserver.Manager, ...) *gin.Engine dependency shape.
type Deps struct {
	Config     config.Configuration
	Registry   *registry.Registry
	Guard      *pathguard.Guard
	Backups    *backupstore.Store
	Dispatcher *dispatcher.Dispatcher
	Logger     *log.Entry
}

// Configure builds the gin.Engine with the full route table from the
// router binding specification.
func Configure(deps *Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	_ = r.SetTrustedProxies(deps.Config.TrustedProxies)

	r.Use(middleware.AttachRequestID())
	r.Use(middleware.EffectiveIP(deps.Config.TrustedProxies))
	r.Use(middleware.CORS(deps.Config.AllowOrigins))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.IPAdmission(middleware.ParseCIDRs(deps.Config.AllowedIPs)))

	r.GET("/", handleRoot(deps))
	r.GET("/health", handleHealth())

	protected := r.Group("")
	protected.Use(middleware.RequireToken(deps.Config.APIToken))

	protected.GET("/configs", handleListConfigs(deps))
	protected.GET("/config/*name", handleGetConfig(deps))
	protected.POST("/config/*name", handlePostConfig(deps))
	protected.GET("/backups/*name", handleListBackups(deps))
	protected.GET("/backupcontent/:name/*filename", handleGetBackupContent(deps))
	protected.POST("/restore/:name/*filename", handleRestore(deps))
	protected.POST("/action/:name/*cmd", handleAction(deps))
	protected.GET("/raw/configs", handleGetRawConfigs(deps))
	protected.POST("/raw/configs", handlePostRawConfigs(deps))
	protected.POST("/raw/configs/reload", handleReloadRawConfigs(deps))
	protected.DELETE("/raw/configs/:name", handleDeleteRawConfig(deps))

	if deps.Config.DocsEnabled {
		registerDocumentationRoutes(r)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"ok": false, "error": "404 Not Found"})
	})

	return r
}

// validateEntryName applies the invariant that entry names must not
// contain a traversal shape, distinguishing the literal ".." case
// (PathDenied) from a bare "/" or "\" shape (Validation) so the
// well-known "Pfad nicht erlaubt" text surfaces specifically for
// escape attempts.
func validateEntryName(name string) error {
	if name == "" {
		return apierror.Validation("Ungueltiger Name")
	}
	if strings.Contains(name, "..") {
		return apierror.PathDenied("Pfad nicht erlaubt")
	}
	if strings.ContainsAny(name, `/\`) {
		return apierror.Validation("Ungueltiger Name")
	}
	return nil
}

func trimWildcard(raw string) string {
	return strings.TrimPrefix(raw, "/")
}

func resolveEntry(deps *Deps, name string) (registry.Entry, error) {
	if err := validateEntryName(name); err != nil {
		return registry.Entry{}, err
	}
	entry, ok := deps.Registry.Lookup(name)
	if !ok {
		return registry.Entry{}, apierror.NotFoundf("Eintrag fehlt: %s", name)
	}
	return entry, nil
}

func resolveEntryFromWildcard(deps *Deps, raw string) (registry.Entry, error) {
	return resolveEntry(deps, trimWildcard(raw))
}
