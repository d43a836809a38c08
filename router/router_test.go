package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cmx/backupstore"
	"github.com/kraklabs/cmx/config"
	"github.com/kraklabs/cmx/dispatcher"
	"github.com/kraklabs/cmx/exec2"
	"github.com/kraklabs/cmx/pathguard"
	"github.com/kraklabs/cmx/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testDeps(t *testing.T, token string) *Deps {
	t.Helper()
	dir := t.TempDir()
	persistPath := filepath.Join(dir, "configs.json")
	require.NoError(t, os.WriteFile(persistPath, []byte(`{}`), 0640))

	reg := registry.New(dir, persistPath)
	require.NoError(t, reg.ReloadFromDisk(nil))

	executor := exec2.New(1)
	t.Cleanup(executor.Stop)

	return &Deps{
		Config: config.Configuration{
			APIToken: token,
		},
		Registry:   reg,
		Guard:      pathguard.New(pathguard.Off, nil, nil),
		Backups:    backupstore.New(5, true, backupstore.RealClock),
		Dispatcher: dispatcher.New(executor, dispatcher.Config{}),
		Logger:     log.NewEntry(log.Log.(*log.Logger)),
	}
}

func TestConfigure_HealthAndRootArePublic(t *testing.T) {
	engine := Configure(testDeps(t, "secret-token"))

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestConfigure_ProtectedRoutesRequireToken(t *testing.T) {
	engine := Configure(testDeps(t, "secret-token"))

	req := httptest.NewRequest(http.MethodGet, "/configs", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/configs", nil)
	req.Header.Set("X-API-Token", "secret-token")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestConfigure_UnknownRouteIs404JSON(t *testing.T) {
	engine := Configure(testDeps(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "404 Not Found")
}

func TestValidateEntryName(t *testing.T) {
	require.NoError(t, validateEntryName("apache2"))

	err := validateEntryName("../etc/passwd")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Pfad nicht erlaubt")

	err = validateEntryName("etc/passwd")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Ungueltiger Name")

	err = validateEntryName("")
	require.Error(t, err)
}

func TestConfigure_GetConfigNotFoundEntry(t *testing.T) {
	engine := Configure(testDeps(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/config/does-not-exist", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfigure_RootShape(t *testing.T) {
	engine := Configure(testDeps(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, true, body["ok"])
	require.Equal(t, "config-manager", body["name"])
	require.Contains(t, body, "version")
	endpoints, ok := body["api_endpoints"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, endpoints)
}

func TestConfigure_HealthShape(t *testing.T) {
	engine := Configure(testDeps(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, true, body["ok"])
	require.Equal(t, "ok", body["status"])
}

func TestConfigure_PostConfigRoundTrip(t *testing.T) {
	deps := testDeps(t, "")
	targetDir := t.TempDir()
	targetPath := filepath.Join(targetDir, "svcA.conf")
	require.NoError(t, os.WriteFile(targetPath, []byte("old\n"), 0640))

	require.NoError(t, deps.Registry.ReplaceAndPersist([]byte(`{
		"svcA": {"path": "`+targetPath+`", "service": "systemctl"}
	}`), deps.Logger))

	engine := Configure(deps)

	req := httptest.NewRequest(http.MethodPost, "/config/svcA", strings.NewReader("hello\n"))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, true, body["ok"])
	require.Equal(t, true, body["saved"])
	require.Equal(t, targetPath, body["path"])
	require.Equal(t, "atomic", body["method"])
	require.Contains(t, body, "requested")
	require.Contains(t, body, "applied")

	data, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))

	req = httptest.NewRequest(http.MethodGet, "/config/svcA", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	require.Equal(t, "hello\n", w.Body.String())
}

func TestConfigure_ListConfigsShape(t *testing.T) {
	deps := testDeps(t, "")
	targetDir := t.TempDir()
	targetPath := filepath.Join(targetDir, "svcA.conf")
	require.NoError(t, os.WriteFile(targetPath, []byte("old\n"), 0640))
	require.NoError(t, deps.Registry.ReplaceAndPersist([]byte(`{
		"svcA": {"path": "`+targetPath+`", "service": "systemctl", "category": "web"}
	}`), deps.Logger))

	engine := Configure(deps)
	req := httptest.NewRequest(http.MethodGet, "/configs", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK      bool `json:"ok"`
		Configs []struct {
			ID       string `json:"id"`
			Filename string `json:"filename"`
			Filetype string `json:"filetype"`
			Category string `json:"category"`
		} `json:"configs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.OK)
	require.Len(t, body.Configs, 1)
	require.Equal(t, "svcA", body.Configs[0].ID)
	require.Equal(t, targetPath, body.Configs[0].Filename)
	require.Equal(t, "systemctl", body.Configs[0].Filetype)
	require.Equal(t, "web", body.Configs[0].Category)
}
