// File path: internal/catalog/catalog_test.go
package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpenMigratesWithWALJournal(t *testing.T) {
	c := openTestCatalog(t)

	var mode string
	if err := c.db.Get(&mode, "PRAGMA journal_mode"); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("journal_mode = %q, want wal", mode)
	}
	var fk int
	if err := c.db.Get(&fk, "PRAGMA foreign_keys"); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}
}

func TestBeginFinishRoundTrip(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	id, err := c.Begin(ctx, "manifest_build", map[string]any{"force": true})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := c.Finish(ctx, id, map[string]any{"added": 3}, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	runs, err := c.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != id || run.Operation != "manifest_build" || run.Status != "succeeded" {
		t.Fatalf("run wrong: %+v", run)
	}
	if !strings.Contains(run.Detail, `"added":3`) {
		t.Fatalf("finish detail not stored: %q", run.Detail)
	}
	if run.FinishedAt == nil {
		t.Fatal("finished_at not set")
	}
}

func TestFailedRunRecordsError(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	if _, err := c.Record(ctx, "enhance_compute", nil, errors.New("boom")); err != nil {
		t.Fatalf("record: %v", err)
	}
	runs, err := c.Recent(ctx, "enhance_compute", 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("recent: %v %v", runs, err)
	}
	if runs[0].Status != "failed" || runs[0].Error != "boom" {
		t.Fatalf("failed run wrong: %+v", runs[0])
	}
}

func TestRecentFiltersAndOrders(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Record(ctx, "append", map[string]int{"n": i}, nil); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := c.Record(ctx, "manifest_build", nil, nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	appends, err := c.Recent(ctx, "append", 10)
	if err != nil || len(appends) != 3 {
		t.Fatalf("filter wrong: %d %v", len(appends), err)
	}
	all, err := c.Recent(ctx, "", 2)
	if err != nil || len(all) != 2 {
		t.Fatalf("limit wrong: %d %v", len(all), err)
	}
}

func TestFinishUnknownRunFails(t *testing.T) {
	c := openTestCatalog(t)
	if err := c.Finish(context.Background(), "no-such-run", nil, nil); err == nil {
		t.Fatal("finishing an unknown run should fail")
	}
}

func TestPruneRemovesOldRuns(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()
	if _, err := c.Record(ctx, "append", nil, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	removed, err := c.Prune(ctx, 0)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned run, got %d", removed)
	}
	if removed, err = c.Prune(ctx, time.Hour); err != nil || removed != 0 {
		t.Fatalf("second prune should be a no-op: %d %v", removed, err)
	}
}
