package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytes_AppliesDefaults(t *testing.T) {
	c, err := FromBytes([]byte(`{"listen":"127.0.0.1:9090"}`))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", c.Listen)
	require.Equal(t, 10, c.MaxBackups)
	require.Equal(t, "audit", c.PathGuardMode)
	require.True(t, c.ApplyMeta)
}

func TestFromBytes_SecretAcceptsStringOrList(t *testing.T) {
	c, err := FromBytes([]byte(`{"secret":"shh"}`))
	require.NoError(t, err)
	require.Equal(t, Secret{"shh"}, c.Secret)

	c, err = FromBytes([]byte(`{"secret":["a","b"]}`))
	require.NoError(t, err)
	require.Equal(t, Secret{"a", "b"}, c.Secret)
}

func TestFromBytes_EnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIToken, "env-token")
	t.Setenv(EnvPathGuard, "on")
	t.Setenv(EnvSystemctlFlags, "--no-pager")

	c, err := FromBytes([]byte(`{"api_token":"file-token","path_guard":"off"}`))
	require.NoError(t, err)
	require.Equal(t, "env-token", c.APIToken)
	require.Equal(t, "on", c.PathGuardMode)
	require.Equal(t, "--no-pager", c.SystemctlFlags)
}

func TestRedacted_ScrubsSecrets(t *testing.T) {
	c := Configuration{APIToken: "super-secret", Secret: Secret{"x"}, SSLKeyFile: "/etc/cmx/key.pem"}
	r := c.Redacted()
	require.Equal(t, "(redacted)", r.APIToken)
	require.Empty(t, r.Secret)
	require.Empty(t, r.SSLKeyFile)
}

func TestNewAtPath_ResolvesConfigsPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultGlobalConfigName), []byte(`{"listen":"0.0.0.0:8080"}`), 0640))

	c, err := NewAtPath(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, DefaultConfigsName), c.ConfigsPath)
}

func TestGetSet_RoundTrip(t *testing.T) {
	c := &Configuration{Listen: "x:1"}
	Set(c)
	require.Equal(t, "x:1", Get().Listen)
}
