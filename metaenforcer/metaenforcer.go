// Package metaenforcer applies declared owner, group, and mode to a
// file after a write or restore.
package metaenforcer

import (
	"os"
	"os/user"
	"regexp"
	"strconv"

	"emperror.dev/errors"

	"github.com/kraklabs/cmx/apierror"
)

// Request carries the declared metadata for one enforcement call.
type Request struct {
	User      string
	Group     string
	Mode      string
	ApplyMeta *bool // per-entry override; nil means "use global default"
}

// Applied reports the metadata actually observed after the attempt.
type Applied struct {
	UID  int
	GID  int
	Mode string
}

var modePattern = regexp.MustCompile(`^[0-7]{3,4}$`)

// Apply is a no-op unless enforcement is requested (per-entry override,
// else the global flag) or at least one of user/group/mode is set. It
// rejects symlink targets, resolves user/group names (or numeric
// strings) to UID/GID, validates mode, and applies chown then chmod.
// Errors are logged by the caller as warnings; they are never fatal to
// the enclosing request.
func Apply(req Request, globalApplyMeta bool, path string) (Applied, error) {
	applied := Applied{UID: -1, GID: -1}

	wantApply := globalApplyMeta
	if req.ApplyMeta != nil {
		wantApply = *req.ApplyMeta
	}
	if !wantApply && req.User == "" && req.Group == "" && req.Mode == "" {
		reportObserved(path, &applied)
		return applied, nil
	}

	if fi, err := os.Lstat(path); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		return applied, apierror.PathDenied("Pfad nicht erlaubt")
	}

	uid, gid := -1, -1
	var err error
	if req.User != "" {
		uid, err = resolveUID(req.User)
		if err != nil {
			return applied, err
		}
	}
	if req.Group != "" {
		gid, err = resolveGID(req.Group)
		if err != nil {
			return applied, err
		}
	}

	if uid != -1 || gid != -1 {
		if cErr := os.Chown(path, uid, gid); cErr != nil {
			return applied, errors.Wrap(cErr, "chown")
		}
	}

	if req.Mode != "" {
		if !modePattern.MatchString(req.Mode) {
			return applied, apierror.Validationf("Ungueltiger Modus: %s", req.Mode)
		}
		parsed, perr := strconv.ParseUint(req.Mode, 8, 32)
		if perr != nil {
			return applied, apierror.Validationf("Ungueltiger Modus: %s", req.Mode)
		}
		if cErr := os.Chmod(path, os.FileMode(parsed)); cErr != nil {
			return applied, errors.Wrap(cErr, "chmod")
		}
	}

	reportObserved(path, &applied)
	return applied, nil
}

func reportObserved(path string, applied *Applied) {
	fi, err := os.Stat(path)
	if err != nil {
		return
	}
	applied.Mode = strconv.FormatUint(uint64(fi.Mode().Perm()), 8)
	if st, ok := statOwnership(fi); ok {
		applied.UID, applied.GID = st.uid, st.gid
	}
}

func resolveUID(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	u, err := user.Lookup(s)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return 0, apierror.Validationf("Unbekannter Benutzer: %s", s)
		}
		return 0, errors.Wrap(err, "lookup user")
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, errors.Wrap(err, "parse uid")
	}
	return uid, nil
}

func resolveGID(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	g, err := user.LookupGroup(s)
	if err != nil {
		var unknown user.UnknownGroupError
		if errors.As(err, &unknown) {
			return 0, apierror.Validationf("Unbekannte Gruppe: %s", s)
		}
		return 0, errors.Wrap(err, "lookup group")
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, errors.Wrap(err, "parse gid")
	}
	return gid, nil
}
