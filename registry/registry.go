// Package registry holds the process-wide, hot-reloadable map from
// configuration name to its path, service binding, action table, and
// backup location.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/apex/log"

	"github.com/kraklabs/cmx/apierror"
	"github.com/kraklabs/cmx/backupstore"
)

// Entry is one managed configuration file and its binding to a
// service or script.
type Entry struct {
	Name      string
	Path      string
	Service   string
	Category  string
	Actions   map[string][]string
	Status    []string
	User      string
	Group     string
	Mode      string
	ApplyMeta *bool
	BackupDir string
}

// SortedActionTokens returns the entry's action tokens in sorted order,
// as required by GET /configs.
func (e Entry) SortedActionTokens() []string {
	tokens := make([]string, 0, len(e.Actions))
	for t := range e.Actions {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

type snapshot struct {
	entries map[string]Entry
}

// Registry is the atomically-swapped, process-wide name→entry map.
// Readers call Lookup/List and always observe a complete snapshot;
// writers (Rebuild, ReloadFromDisk, ReplaceAndPersist, DeleteAndPersist)
// build a new snapshot and
// publish it with a single atomic store.
type Registry struct {
	ptr         atomic.Pointer[snapshot]
	backupRoot  string
	persistPath string
	writeMu     sync.Mutex
}

// New builds an empty Registry. persistPath is the configs.json file
// this registry reloads from and persists to.
func New(backupRoot, persistPath string) *Registry {
	r := &Registry{backupRoot: backupRoot, persistPath: persistPath}
	r.ptr.Store(&snapshot{entries: map[string]Entry{}})
	return r
}

// Lookup returns the entry for name from the current snapshot.
func (r *Registry) Lookup(name string) (Entry, bool) {
	snap := r.ptr.Load()
	e, ok := snap.entries[name]
	return e, ok
}

// List returns all entries in the current snapshot, sorted by name.
func (r *Registry) List() []Entry {
	snap := r.ptr.Load()
	out := make([]Entry, 0, len(snap.entries))
	for _, e := range snap.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidEntryName reports whether name is free of path-traversal shapes.
func ValidEntryName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// LoadFromBytes parses a configs.json document into normalised
// entries, skipping (not erroring on) entries whose name contains a
// traversal shape. It returns the accepted entries plus the names of
// any skipped ones.
func LoadFromBytes(data []byte) (map[string]Entry, []string, error) {
	var rawMap map[string]rawEntry
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return nil, nil, apierror.Validationf("Ungueltiges JSON: %v", err)
	}

	entries := make(map[string]Entry, len(rawMap))
	var skipped []string
	for name, raw := range rawMap {
		if !ValidEntryName(name) {
			skipped = append(skipped, name)
			continue
		}
		category := raw.Category
		if category == "" {
			category = "uncategorized"
		}
		entries[name] = Entry{
			Name:      name,
			Path:      raw.Path,
			Service:   raw.Service,
			Category:  category,
			Actions:   deriveActions(raw),
			Status:    raw.Status,
			User:      raw.User,
			Group:     raw.Group,
			Mode:      raw.Mode,
			ApplyMeta: raw.ApplyMeta,
		}
	}
	sort.Strings(skipped)
	return entries, skipped, nil
}

func (r *Registry) withBackupDirs(entries map[string]Entry) map[string]Entry {
	for name, e := range entries {
		e.BackupDir = filepath.Join(r.backupRoot, backupstore.SanitizeName(name))
		entries[name] = e
	}
	return entries
}

// Rebuild atomically replaces the current snapshot with entries.
func (r *Registry) Rebuild(entries map[string]Entry) {
	r.ptr.Store(&snapshot{entries: r.withBackupDirs(entries)})
}

// ReloadFromDisk re-parses persistPath and rebuilds the snapshot from
// it; disk is the source of truth for a plain reload.
func (r *Registry) ReloadFromDisk(logger *log.Entry) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	data, err := os.ReadFile(r.persistPath)
	if err != nil {
		return apierror.TransientWrap(err, "Konfigurationsdatei konnte nicht gelesen werden")
	}
	entries, skipped, err := LoadFromBytes(data)
	if err != nil {
		return err
	}
	logSkipped(logger, skipped)
	r.Rebuild(entries)
	return nil
}

// ReplaceAndPersist validates data as a whole JSON document, persists
// it to disk, and rebuilds the in-memory snapshot. Per-entry name
// failures are silently dropped from the in-memory registry only; the
// rejected entries remain present in the persisted file.
func (r *Registry) ReplaceAndPersist(data []byte, logger *log.Entry) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	entries, skipped, err := LoadFromBytes(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.persistPath, data, 0640); err != nil {
		return apierror.TransientWrap(err, "Schreibfehler: Konfigurationsdatei")
	}
	logSkipped(logger, skipped)
	r.Rebuild(entries)
	return nil
}

// DeleteAndPersist removes name from both the persisted document and
// the in-memory snapshot.
func (r *Registry) DeleteAndPersist(name string, logger *log.Entry) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	data, err := os.ReadFile(r.persistPath)
	if err != nil {
		return apierror.TransientWrap(err, "Konfigurationsdatei konnte nicht gelesen werden")
	}
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return apierror.Validationf("Ungueltiges JSON: %v", err)
	}
	if _, ok := rawMap[name]; !ok {
		return apierror.NotFoundf("Eintrag fehlt: %s", name)
	}
	delete(rawMap, name)

	out, err := json.MarshalIndent(rawMap, "", "  ")
	if err != nil {
		return apierror.TransientWrap(err, "Serialisierung fehlgeschlagen")
	}
	if err := os.WriteFile(r.persistPath, out, 0640); err != nil {
		return apierror.TransientWrap(err, "Schreibfehler: Konfigurationsdatei")
	}

	entries, skipped, err := LoadFromBytes(out)
	if err != nil {
		return err
	}
	logSkipped(logger, skipped)
	r.Rebuild(entries)
	return nil
}

func logSkipped(logger *log.Entry, skipped []string) {
	if len(skipped) == 0 || logger == nil {
		return
	}
	logger.WithField("skipped", skipped).Debug("registry: skipped entries with invalid names")
}
