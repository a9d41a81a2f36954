package history

import (
	"context"
	"testing"
	"time"

	"github.com/a-h/pkgrun/store"
	"github.com/google/go-cmp/cmp"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()
	s, closer, err := store.New(context.Background(), "sqlite", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { closer() })
	return New(s)
}

func TestRecordAndGetInstall(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)

	rec := InstallRecord{
		Package:     "left-pad",
		Version:     "1.0.0",
		Placement:   "local",
		InstalledAt: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC),
		Dependents:  []string{"app"},
	}
	if err := h.RecordInstall(ctx, rec); err != nil {
		t.Fatalf("RecordInstall error: %v", err)
	}

	got, ok, err := h.GetInstall(ctx, "left-pad", "1.0.0")
	if err != nil {
		t.Fatalf("GetInstall error: %v", err)
	}
	if !ok {
		t.Fatal("expected install record to exist")
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Error(diff)
	}
}

func TestListInstallsReturnsAllVersions(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)

	for _, v := range []string{"1.0.0", "1.1.0", "2.0.0"} {
		if err := h.RecordInstall(ctx, InstallRecord{Package: "widget", Version: v, Placement: "local"}); err != nil {
			t.Fatalf("RecordInstall(%s) error: %v", v, err)
		}
	}

	recs, err := h.ListInstalls(ctx, "widget")
	if err != nil {
		t.Fatalf("ListInstalls error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
}

func TestRemoveInstallDeletesRecord(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)

	if err := h.RecordInstall(ctx, InstallRecord{Package: "widget", Version: "1.0.0"}); err != nil {
		t.Fatalf("RecordInstall error: %v", err)
	}
	if err := h.RemoveInstall(ctx, "widget", "1.0.0"); err != nil {
		t.Fatalf("RemoveInstall error: %v", err)
	}

	_, ok, err := h.GetInstall(ctx, "widget", "1.0.0")
	if err != nil {
		t.Fatalf("GetInstall error: %v", err)
	}
	if ok {
		t.Error("expected record to be removed")
	}
}

func TestRecordAndListConflicts(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)

	d := ConflictDecision{
		Package:   "widget",
		Requested: []string{"^1.0.0", "^1.2.0"},
		Resolved:  "1.2.3",
		Reason:    "most-dependents-satisfied",
		DecidedAt: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := h.RecordConflict(ctx, d); err != nil {
		t.Fatalf("RecordConflict error: %v", err)
	}

	decisions, err := h.ListConflicts(ctx, "widget")
	if err != nil {
		t.Fatalf("ListConflicts error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if diff := cmp.Diff(d, decisions[0]); diff != "" {
		t.Error(diff)
	}
}

func TestGetInstallReportsMissing(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t)

	_, ok, err := h.GetInstall(ctx, "does-not-exist", "1.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no record for unknown package")
	}
}
