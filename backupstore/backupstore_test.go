package backupstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func newStoreAt(t time.Time, max int) *Store {
	return New(max, true, fixedClock{t: t})
}

func TestSnapshot_CreatesOneStampedBackup(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	target := filepath.Join(dir, "svcA.conf")
	require.NoError(t, os.WriteFile(target, []byte("old\n"), 0640))

	store := newStoreAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), 2)
	name, err := store.Snapshot(backupDir, target)
	require.NoError(t, err)
	require.Equal(t, "svcA.conf.bak.20240102_030405", name)

	data, err := os.ReadFile(filepath.Join(backupDir, name))
	require.NoError(t, err)
	require.Equal(t, "old\n", string(data))
}

func TestSnapshot_PruneKeepsOnlyMaxBackups(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	target := filepath.Join(dir, "svcA.conf")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte("v"), 0640))
		store := newStoreAt(base.Add(time.Duration(i)*time.Minute), 2)
		_, err := store.Snapshot(backupDir, target)
		require.NoError(t, err)
	}

	store := newStoreAt(base, 2)
	names, err := store.List(backupDir, target)
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.True(t, names[0] > names[1], "expected newest-first order")
}

func TestSnapshot_NoOpWhenTargetMissing(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	target := filepath.Join(dir, "missing.conf")

	store := newStoreAt(time.Now(), 2)
	name, err := store.Snapshot(backupDir, target)
	require.NoError(t, err)
	require.Empty(t, name)
}

func TestReadRestore_RejectsMalformedName(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	target := filepath.Join(dir, "svcA.conf")
	require.NoError(t, os.MkdirAll(backupDir, 0750))

	store := newStoreAt(time.Now(), 2)
	_, err := store.Read(backupDir, target, "../../etc/passwd")
	require.Error(t, err)

	err = store.Restore(backupDir, target, "svcA.conf.bak.notadate")
	require.Error(t, err)
}

func TestRestore_CopiesBackupOntoTarget(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backups")
	target := filepath.Join(dir, "svcA.conf")
	require.NoError(t, os.WriteFile(target, []byte("old\n"), 0640))

	store := newStoreAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), 2)
	name, err := store.Snapshot(backupDir, target)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(target, []byte("new\n"), 0640))
	require.NoError(t, store.Restore(backupDir, target, name))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "old\n", string(data))
}

func TestSanitizeName_ReplacesDisallowedCharacters(t *testing.T) {
	require.Equal(t, "foo_bar", SanitizeName("foo/bar"))
	require.Equal(t, "a.b-c_d", SanitizeName("a.b-c d"))
}
