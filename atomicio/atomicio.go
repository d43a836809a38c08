// Package atomicio writes file content via a same-directory temporary
// file and rename, falling back to a direct write when the directory
// itself is not writable.
package atomicio

import (
	"os"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/moby/sys/atomicwriter"
)

// Method reports which write path was taken.
type Method string

const (
	MethodAtomic Method = "atomic"
	MethodPlain  Method = "plain"
)

const defaultFileMode = 0640

// Write stores data at path, preferring the atomic temp-file+rename
// path provided by moby/sys/atomicwriter; it falls back to a direct
// write if the directory is not writable or the atomic path errors.
func Write(path string, data []byte) (Method, error) {
	dir := filepath.Dir(path)

	if isWritableDir(dir) {
		if err := atomicwriter.WriteFile(path, data, defaultFileMode); err == nil {
			return MethodAtomic, nil
		}
		// Fall through to plain write: the directory claims to be
		// writable but the atomic temp-file+rename step failed (e.g.
		// cross-device rename, quota, race on the temp name).
	}

	if err := os.WriteFile(path, data, defaultFileMode); err != nil {
		return "", errors.Wrap(err, "write file")
	}
	return MethodPlain, nil
}

func isWritableDir(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	probe := filepath.Join(dir, ".cmx_write_probe")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}
