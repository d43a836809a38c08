package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cmx/exec2"
	"github.com/kraklabs/cmx/registry"
)

// writeFakeSystemctl writes a shell script that answers "is-active"
// with the given rc and exits 0 for every other sub-command, standing
// in for the real systemctl binary.
func writeFakeSystemctl(t *testing.T, isActiveRC int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-systemctl")
	script := `#!/bin/sh
if [ "$1" = "is-active" ]; then
  exit ` + itoa(isActiveRC) + `
fi
exit 0
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0750))
	return path
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func TestDispatch_ReloadSucceedsWhenServiceActive(t *testing.T) {
	bin := writeFakeSystemctl(t, 0)
	ex := exec2.New(2)
	defer ex.Stop()

	d := New(ex, Config{SystemctlBin: bin})
	entry := registry.Entry{
		Name:    "svcA",
		Service: "svcA",
		Actions: map[string][]string{"reload": {}},
	}

	out, err := d.Dispatch(context.Background(), entry, "reload")
	require.NoError(t, err)
	require.Equal(t, true, out["ok"])
	require.Equal(t, "reload", out["action"])
	require.Equal(t, "running", out["status"])
}

func TestDispatch_ReloadFailsWhenServiceNotActive(t *testing.T) {
	bin := writeFakeSystemctl(t, 3)
	ex := exec2.New(2)
	defer ex.Stop()

	d := New(ex, Config{SystemctlBin: bin})
	entry := registry.Entry{
		Name:    "svcA",
		Service: "svcA",
		Actions: map[string][]string{"reload": {}},
	}

	_, err := d.Dispatch(context.Background(), entry, "reload")
	require.Error(t, err)
}

func TestDispatch_RejectsUndeclaredAction(t *testing.T) {
	ex := exec2.New(2)
	defer ex.Stop()
	d := New(ex, Config{})
	entry := registry.Entry{Name: "svcA", Service: "svcA", Actions: map[string][]string{}}

	_, err := d.Dispatch(context.Background(), entry, "restart")
	require.Error(t, err)
}

func TestDispatch_ForbidsPoweroffOnDirectSystemctl(t *testing.T) {
	bin := writeFakeSystemctl(t, 0)
	ex := exec2.New(2)
	defer ex.Stop()

	d := New(ex, Config{SystemctlBin: bin})
	entry := registry.Entry{
		Name:    "systemctl",
		Service: "systemctl",
		Actions: map[string][]string{"poweroff": {}},
	}

	_, err := d.Dispatch(context.Background(), entry, "poweroff")
	require.Error(t, err)
}
