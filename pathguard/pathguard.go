// Package pathguard canonicalises filesystem paths and enforces the
// allow-list/symlink policy that keeps writes pinned inside declared
// roots.
package pathguard

import (
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"

	"github.com/apex/log"
)

// Mode is the enforcement strength of the guard.
type Mode int

const (
	Off Mode = iota
	Audit
	On
)

func (m Mode) String() string {
	switch m {
	case Off:
		return "off"
	case Audit:
		return "audit"
	case On:
		return "on"
	default:
		return "off"
	}
}

// ParseMode parses the three accepted string values, defaulting
// unrecognised input to Off rather than failing boot.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "audit":
		return Audit
	case "on":
		return On
	default:
		return Off
	}
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*m = ParseMode(s)
	return nil
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// Guard enforces root-containment for writable/restorable paths.
type Guard struct {
	mode  Mode
	roots []string
	log   *log.Entry
}

// New builds a Guard. Roots are normalised to end in a single "/" so
// that "/etc/foo" never matches "/etc/foobar".
func New(mode Mode, roots []string, logger *log.Entry) *Guard {
	if logger == nil {
		logger = log.NewEntry(log.Log.(*log.Logger))
	}
	normalised := make([]string, 0, len(roots))
	for _, r := range roots {
		r = filepath.Clean(r)
		if !strings.HasSuffix(r, "/") {
			r += "/"
		}
		normalised = append(normalised, r)
	}
	return &Guard{mode: mode, roots: normalised, log: logger}
}

// Canonicalise resolves the real path of p if it exists, else of its
// parent directory, and returns the resulting directory (the real path
// itself when it is a directory, otherwise its parent) ending in "/".
func (g *Guard) Canonicalise(p string) (string, error) {
	if _, err := os.Lstat(p); err == nil {
		real, rerr := filepath.EvalSymlinks(p)
		if rerr != nil {
			return "", errors.Wrap(rerr, "resolve path")
		}
		dir := real
		if fi, statErr := os.Stat(real); statErr == nil && !fi.IsDir() {
			dir = filepath.Dir(real)
		}
		return ensureTrailingSlash(dir), nil
	}
	dir := filepath.Dir(p)
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", errors.Wrap(err, "resolve parent directory")
	}
	return ensureTrailingSlash(real), nil
}

func ensureTrailingSlash(p string) string {
	if !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}

// IsAllowed applies the full policy from the guard's mode: symlinks
// are always rejected; mode Off accepts everything else; mode Audit
// logs and accepts mismatches; mode On rejects them.
func (g *Guard) IsAllowed(p string) bool {
	if fi, err := os.Lstat(p); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		return false
	}

	if g.mode == Off {
		return true
	}

	dir, err := g.Canonicalise(p)
	if err != nil {
		if g.mode == Audit {
			g.log.WithError(err).WithField("path", p).Warn("pathguard: resolution failed, allowing in audit mode")
			return true
		}
		return false
	}

	if len(g.roots) == 0 {
		if g.mode == Audit {
			g.log.WithField("path", p).Warn("pathguard: no roots configured, allowing in audit mode")
			return true
		}
		return false
	}

	for _, root := range g.roots {
		if dir == root || strings.HasPrefix(dir, root) {
			return true
		}
	}

	if g.mode == Audit {
		g.log.WithField("path", p).Warn("pathguard: path outside allowed roots, allowing in audit mode")
		return true
	}
	return false
}
