package router

import "github.com/gin-gonic/gin"

type apiEndpoint struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

var apiEndpoints = []apiEndpoint{
	{"GET", "/"},
	{"GET", "/health"},
	{"GET", "/configs"},
	{"GET", "/config/*name"},
	{"POST", "/config/*name"},
	{"GET", "/backups/*name"},
	{"GET", "/backupcontent/:name/*filename"},
	{"POST", "/restore/:name/*filename"},
	{"POST", "/action/:name/*cmd"},
	{"GET", "/raw/configs"},
	{"POST", "/raw/configs"},
	{"POST", "/raw/configs/reload"},
	{"DELETE", "/raw/configs/:name"},
}

func handleRoot(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"ok":            true,
			"name":          "config-manager",
			"version":       Version,
			"api_endpoints": apiEndpoints,
		})
	}
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true, "status": "ok"})
	}
}
