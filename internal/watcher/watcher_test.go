// File path: internal/watcher/watcher_test.go
package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/contentlake/contentlake/internal/data/orchestrator"
	"github.com/contentlake/contentlake/internal/lake"
	"github.com/contentlake/contentlake/internal/manifest"
)

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	root := t.TempDir()
	if _, err := lake.Init(root, lake.Config{UserID: "tester", Name: "Tester"}); err != nil {
		t.Fatalf("init repo: %v", err)
	}
	orch, err := orchestrator.New(context.Background(), orchestrator.Config{RepoPath: root},
		orchestrator.WithCatalogDisabled())
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	t.Cleanup(func() { orch.Close() })
	return orch
}

func activity(id, platform string, activityType lake.ActivityType) lake.Activity {
	return lake.Activity{
		ActivityID:   id,
		Timestamp:    time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
		Platform:     platform,
		ActivityType: activityType,
		Content:      "hello",
	}
}

func TestWatchSetSkipsDerivedTrees(t *testing.T) {
	orch := newTestOrchestrator(t)
	w, err := New(orch, Config{})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.notifier.Close()

	dirs := w.WatchedDirs()
	if len(dirs) == 0 {
		t.Fatal("expected watched directories")
	}
	for _, dir := range dirs {
		switch {
		case dir == orch.Layout().IndexesDir():
			t.Fatalf("indexes dir %s should not be watched", dir)
		case dir == orch.Layout().EnhancementsDir():
			t.Fatalf("enhancements dir %s should not be watched", dir)
		}
	}
}

func TestStopWithoutStartReturns(t *testing.T) {
	orch := newTestOrchestrator(t)
	w, err := New(orch, Config{})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked without a running event loop")
	}
}

func TestRebuildIndexesAppendedActivities(t *testing.T) {
	orch := newTestOrchestrator(t)
	w, err := New(orch, Config{})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.notifier.Close()

	if _, err := orch.Activities().Append(context.Background(),
		activity("twitter_w1", "twitter", lake.ActivityCreate)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	m, err := manifest.Load(orch.Layout().ManifestPath())
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if m == nil || m.TotalActivities != 1 {
		t.Fatalf("manifest = %+v, want 1 activity", m)
	}
}

func TestWriteEventTriggersRebuild(t *testing.T) {
	orch := newTestOrchestrator(t)
	w, err := New(orch, Config{Debounce: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	if _, err := orch.Activities().Append(context.Background(),
		activity("podcast_w1", "podcast", lake.ActivityConsume)); err != nil {
		t.Fatalf("append: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		m, err := manifest.Load(orch.Layout().ManifestPath())
		if err != nil {
			t.Fatalf("load manifest: %v", err)
		}
		if m != nil && m.TotalActivities == 1 {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("manifest was not rebuilt after log write")
}
