package pathguard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsAllowed_OffModeAcceptsAnything(t *testing.T) {
	g := New(Off, nil, nil)
	require.True(t, g.IsAllowed("/etc/passwd"))
}

func TestIsAllowed_OnModeRejectsOutsideRoots(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "foo.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0640))

	g := New(On, []string{"/nonexistent-root"}, nil)
	require.False(t, g.IsAllowed(target))
}

func TestIsAllowed_OnModeAcceptsInsideRoots(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "foo.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0640))

	g := New(On, []string{dir}, nil)
	require.True(t, g.IsAllowed(target))
}

func TestIsAllowed_RejectsSymlinkRegardlessOfMode(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.conf")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0640))
	link := filepath.Join(dir, "link.conf")
	require.NoError(t, os.Symlink(real, link))

	g := New(Off, nil, nil)
	require.False(t, g.IsAllowed(link))
}

func TestIsAllowed_PrefixDoesNotMatchSiblingDirectory(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "etc", "foo")
	sibling := filepath.Join(dir, "etc", "foobar")
	require.NoError(t, os.MkdirAll(root, 0750))
	require.NoError(t, os.MkdirAll(sibling, 0750))

	target := filepath.Join(sibling, "x.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0640))

	g := New(On, []string{root}, nil)
	require.False(t, g.IsAllowed(target))
}

func TestIsAllowed_AuditModeAllowsButLogsMismatch(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "foo.conf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0640))

	g := New(Audit, []string{"/nonexistent-root"}, nil)
	require.True(t, g.IsAllowed(target))
}
