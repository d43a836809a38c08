// Package backupstore maintains per-entry directories of timestamped
// backup copies and prunes them to a retention bound.
package backupstore

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"emperror.dev/errors"

	"github.com/kraklabs/cmx/apierror"
)

// Clock abstracts time.Now so tests can pin the backup stamp.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// RealClock is the production Clock.
var RealClock Clock = realClock{}

// Store implements snapshot/list/read/restore with retention pruning.
type Store struct {
	MaxBackups int
	AutoCreate bool
	Clock      Clock
}

// New builds a Store. A nil clock defaults to RealClock.
func New(maxBackups int, autoCreate bool, clock Clock) *Store {
	if clock == nil {
		clock = RealClock
	}
	return &Store{MaxBackups: maxBackups, AutoCreate: autoCreate, Clock: clock}
}

// EnsureDir creates the backup directory with mode 0750 when missing
// and auto-create is enabled; otherwise reports it missing.
func (s *Store) EnsureDir(backupDir string) error {
	if _, err := os.Stat(backupDir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "stat backup dir")
	}
	if !s.AutoCreate {
		return apierror.Transientf("Backup-Verzeichnis fehlt: %s", backupDir)
	}
	if err := os.MkdirAll(backupDir, 0750); err != nil {
		return apierror.TransientWrap(err, "Backup-Verzeichnis konnte nicht erstellt werden")
	}
	return nil
}

// Snapshot copies the target file, if it exists, into the backup
// directory with a stamped name and prunes to MaxBackups. Returns the
// empty string with no error when the target does not yet exist.
func (s *Store) Snapshot(backupDir, targetPath string) (string, error) {
	if _, err := os.Stat(targetPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "stat target")
	}
	if err := s.EnsureDir(backupDir); err != nil {
		return "", err
	}

	base := filepath.Base(targetPath)
	stamp := s.Clock.Now().Format("20060102_150405")
	name := base + ".bak." + stamp
	dst := filepath.Join(backupDir, name)
	if err := copyFile(targetPath, dst); err != nil {
		return "", apierror.TransientWrap(err, "Sicherungskopie fehlgeschlagen")
	}

	if err := s.prune(backupDir, base); err != nil {
		return name, err
	}
	return name, nil
}

func (s *Store) prune(backupDir, base string) error {
	names, err := s.listRaw(backupDir, base)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for i := s.MaxBackups; i < len(names); i++ {
		_ = os.Remove(filepath.Join(backupDir, names[i]))
	}
	return nil
}

func (s *Store) listRaw(backupDir, base string) ([]string, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read backup dir")
	}
	prefix := base + ".bak."
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// List returns backup filenames for targetPath's basename, newest-first.
func (s *Store) List(backupDir, targetPath string) ([]string, error) {
	names, err := s.listRaw(backupDir, filepath.Base(targetPath))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func backupNamePattern(base string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `\.bak\.(\d{8}_\d{6}|\d{14}|\d+)$`)
}

// Read validates filename against the backup naming pattern for
// targetPath and returns its raw bytes.
func (s *Store) Read(backupDir, targetPath, filename string) ([]byte, error) {
	base := filepath.Base(targetPath)
	if !backupNamePattern(base).MatchString(filename) {
		return nil, apierror.Validation("Ungueltiger Name")
	}
	data, err := os.ReadFile(filepath.Join(backupDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apierror.NotFoundf("Datei fehlt: %s", filename)
		}
		return nil, errors.Wrap(err, "read backup")
	}
	return data, nil
}

// Restore validates filename, then copies the backup onto targetPath.
// Meta-enforcement is the caller's responsibility, per spec: Restore
// copies; the handler invokes MetaEnforcer afterward.
func (s *Store) Restore(backupDir, targetPath, filename string) error {
	base := filepath.Base(targetPath)
	if !backupNamePattern(base).MatchString(filename) {
		return apierror.Validation("Ungueltiger Name")
	}
	src := filepath.Join(backupDir, filename)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return apierror.NotFoundf("Datei fehlt: %s", filename)
		}
		return errors.Wrap(err, "stat backup")
	}
	if err := copyFile(src, targetPath); err != nil {
		return apierror.TransientWrap(err, "Wiederherstellung fehlgeschlagen")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// SanitizeName replaces any character outside [A-Za-z0-9._-] with "_",
// as used to derive an entry's backup_dir from its registry name.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
