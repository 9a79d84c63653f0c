// File path: internal/lake/layout_test.go
package lake

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitCreatesRepositoryTree(t *testing.T) {
	root := t.TempDir()
	layout, err := Init(root, Config{UserID: "alice", Name: "Alice"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !layout.Validate() {
		t.Fatal("freshly initialized repository should validate")
	}
	for _, dir := range []string{
		layout.SourcesDir(),
		layout.ArtifactsDir(),
		layout.IndexesDir(),
		layout.EnhancementHistoryDir("quality_scores"),
		filepath.Join(layout.SourcesDir(), "podcasts"),
		filepath.Join(layout.ArtifactsDir(), "twitter"),
	} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("missing directory %s: %v", dir, err)
		}
	}
	cfg, err := layout.ReadConfig()
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if cfg.UserID != "alice" || cfg.Handle != "@alice" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := Init(root, Config{UserID: "alice", Name: "Alice"}); err == nil {
		t.Fatal("second init over same root should fail")
	}
}

func TestLogPathConventions(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	got := layout.LogPath(KindSource, "podcast")
	if filepath.Base(got) != "listening-events.jsonl" || filepath.Base(filepath.Dir(got)) != "podcasts" {
		t.Fatalf("podcast source path wrong: %s", got)
	}
	got = layout.LogPath(KindArtifact, "twitter")
	if filepath.Base(got) != "tweets.jsonl" {
		t.Fatalf("twitter artifact path wrong: %s", got)
	}
	// Unknown platforms fall back to generic names.
	got = layout.LogPath(KindSource, "newsletter")
	if filepath.Base(got) != "newsletter-events.jsonl" {
		t.Fatalf("fallback source path wrong: %s", got)
	}
}

func TestActivityFilesSkipsDerivedTrees(t *testing.T) {
	root := t.TempDir()
	layout, err := Init(root, Config{UserID: "bob", Name: "Bob"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	write := func(path string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(layout.LogPath(KindSource, "podcast"))
	write(layout.LogPath(KindArtifact, "twitter"))
	write(layout.EnhancementLatestPath("quality_scores"))
	write(filepath.Join(layout.IndexesDir(), "stray.jsonl"))

	files, err := layout.ActivityFiles("", "")
	if err != nil {
		t.Fatalf("activity files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 log files, got %v", files)
	}

	onlyTwitter, err := layout.ActivityFiles("twitter", KindArtifact)
	if err != nil {
		t.Fatalf("activity files: %v", err)
	}
	if len(onlyTwitter) != 1 || filepath.Base(onlyTwitter[0]) != "tweets.jsonl" {
		t.Fatalf("platform filter wrong: %v", onlyTwitter)
	}
}

func TestKindOfAndPlatformOf(t *testing.T) {
	layout, err := NewLayout(t.TempDir())
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	src := layout.LogPath(KindSource, "book")
	if layout.KindOf(src) != KindSource || layout.PlatformOf(src) != "book" {
		t.Fatalf("source classification wrong: %s %s", layout.KindOf(src), layout.PlatformOf(src))
	}
	art := layout.LogPath(KindArtifact, "blog")
	if layout.KindOf(art) != KindArtifact || layout.PlatformOf(art) != "blog" {
		t.Fatalf("artifact classification wrong: %s %s", layout.KindOf(art), layout.PlatformOf(art))
	}
}
