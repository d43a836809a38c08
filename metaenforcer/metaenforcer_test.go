package metaenforcer

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApply_NoOpWhenNothingRequested(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "svcA.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0640))

	applied, err := Apply(Request{}, false, target)
	require.NoError(t, err)
	require.Equal(t, "640", applied.Mode)
}

func TestApply_SetsModeWhenDeclared(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "svcA.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0640))

	applied, err := Apply(Request{Mode: "600"}, false, target)
	require.NoError(t, err)
	require.Equal(t, "600", applied.Mode)

	fi, err := os.Stat(target)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), fi.Mode().Perm())
}

func TestApply_RejectsInvalidMode(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "svcA.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0640))

	_, err := Apply(Request{Mode: "999"}, false, target)
	require.Error(t, err)
}

func TestApply_RejectsSymlinkTarget(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.conf")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0640))
	link := filepath.Join(dir, "link.conf")
	require.NoError(t, os.Symlink(real, link))

	_, err := Apply(Request{Mode: "600"}, false, link)
	require.Error(t, err)
}

func TestApply_AcceptsNumericUser(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "svcA.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0640))

	selfUID := os.Getuid()
	applied, err := Apply(Request{User: strconv.Itoa(selfUID)}, false, target)
	require.NoError(t, err)
	require.Equal(t, selfUID, applied.UID)
}
