// Package history records the installer's audit trail: completed
// install/uninstall runs and the conflict-resolution decisions made while
// expanding a dependency graph, backed by an a-h/kv store (sqlite, the only
// backend store.New opens). This mirrors the teacher's
// db packages (npm/db, python/db, nix/db), which layer a typed view over
// the same kv.Store primitive.
package history

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/a-h/kv"
)

const (
	installPrefix  = "/install"
	conflictPrefix = "/conflict"
)

// InstallRecord is the persisted record of a single package placement,
// keyed by name and version so repeated installs are idempotent
// (spec.md §8: "re-running install against an already-satisfied tree
// performs no placement actions").
type InstallRecord struct {
	Package     string    `json:"package"`
	Version     string    `json:"version"`
	Placement   string    `json:"placement"` // local, global, develop, or native
	InstalledAt time.Time `json:"installed_at"`
	Dependents  []string  `json:"dependents"`
}

// ConflictDecision records how the installer resolved two or more
// requested selectors for the same package name, per spec.md §4.8 step 3's
// "most-dependents-satisfied" heuristic.
type ConflictDecision struct {
	Package   string    `json:"package"`
	Requested []string  `json:"requested"`
	Resolved  string    `json:"resolved"`
	Reason    string    `json:"reason"`
	DecidedAt time.Time `json:"decided_at"`
}

// History is a kv.Store-backed audit log for install/uninstall runs.
type History struct {
	store kv.Store
}

// New wraps store as an install history.
func New(store kv.Store) *History {
	return &History{store: store}
}

func installKey(name, version string) string {
	return path.Join(installPrefix, name, version)
}

// RecordInstall persists that a package version was placed, overwriting
// any prior record for the same name/version (kv's -1 "any version"
// write, same as the teacher's db.PutPackageVersion).
func (h *History) RecordInstall(ctx context.Context, rec InstallRecord) error {
	return h.store.Put(ctx, installKey(rec.Package, rec.Version), -1, rec)
}

// GetInstall returns the recorded placement for a package version, if any.
func (h *History) GetInstall(ctx context.Context, name, version string) (InstallRecord, bool, error) {
	var rec InstallRecord
	_, ok, err := h.store.Get(ctx, installKey(name, version), &rec)
	if err != nil {
		return InstallRecord{}, false, fmt.Errorf("history: get install record for %s@%s: %w", name, version, err)
	}
	return rec, ok, nil
}

// ListInstalls returns every recorded version placement for a package
// name, in no particular order.
func (h *History) ListInstalls(ctx context.Context, name string) ([]InstallRecord, error) {
	prefix := path.Join(installPrefix, name) + "/"
	records, err := h.store.GetPrefix(ctx, prefix, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("history: list installs for %s: %w", name, err)
	}
	return kv.ValuesOf[InstallRecord](records)
}

// RemoveInstall deletes the placement record for a package version, called
// by uninstall once the on-disk files are removed.
func (h *History) RemoveInstall(ctx context.Context, name, version string) error {
	_, err := h.store.Delete(ctx, installKey(name, version))
	if err != nil {
		return fmt.Errorf("history: remove install record for %s@%s: %w", name, version, err)
	}
	return nil
}

// RecordConflict persists a conflict-resolution decision so future installs
// and "why was this version chosen" diagnostics can inspect it.
func (h *History) RecordConflict(ctx context.Context, d ConflictDecision) error {
	key := path.Join(conflictPrefix, d.Package, fmt.Sprintf("%d", d.DecidedAt.UnixNano()))
	return h.store.Put(ctx, key, -1, d)
}

// ListConflicts returns every recorded conflict decision for a package
// name, in key (and therefore chronological) order.
func (h *History) ListConflicts(ctx context.Context, name string) ([]ConflictDecision, error) {
	prefix := path.Join(conflictPrefix, name) + "/"
	records, err := h.store.GetPrefix(ctx, prefix, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("history: list conflicts for %s: %w", name, err)
	}
	return kv.ValuesOf[ConflictDecision](records)
}
