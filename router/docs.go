package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//go:generate sh -c "cd .. && swag init --generalInfo router/docs.go --output docs/swagger --parseDependency --parseInternal --quiet"

// @title config-manager API
// @version 1.0
// @description Hardened HTTP agent for remote, auditable management of declared configuration files and the services they belong to.
// @BasePath /
// @schemes https http
// @securityDefinitions.apikey APIToken
// @description Supply the node's bearer token from global.json using the X-API-Token header or Authorization: Bearer <token>.
// @in header
// @name X-API-Token
// @produce json
type docStub struct{}

const minimalOpenAPI = `{
  "openapi": "3.0.0",
  "info": {"title": "config-manager API", "version": "1.0"},
  "paths": {
    "/configs": {"get": {"summary": "List registered configuration entries"}},
    "/config/{name}": {
      "get": {"summary": "Read a configuration file"},
      "post": {"summary": "Atomically rewrite a configuration file"}
    },
    "/action/{name}/{cmd}": {"post": {"summary": "Invoke a whitelisted service-control action"}}
  }
}`

func registerDocumentationRoutes(routes gin.IRoutes) {
	openapiPath := "/docs/openapi.json"
	uiPrefix := "/docs/ui"

	routes.GET(openapiPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(minimalOpenAPI))
	})
	routes.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, uiPrefix+"/index.html")
	})

	swaggerHandler := ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL(openapiPath),
		ginSwagger.DefaultModelsExpandDepth(-1),
	)
	routes.GET(uiPrefix, func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, uiPrefix+"/index.html")
	})
	routes.GET(uiPrefix+"/*any", swaggerHandler)
}
