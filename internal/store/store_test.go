// File path: internal/store/store_test.go
package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contentlake/contentlake/internal/lake"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	layout, err := lake.Init(t.TempDir(), lake.Config{UserID: "tester", Name: "Tester"})
	if err != nil {
		t.Fatalf("init layout: %v", err)
	}
	s, err := New(layout)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func sampleActivity(id string, ts time.Time) lake.Activity {
	return lake.Activity{
		ActivityID:      id,
		Timestamp:       ts,
		Platform:        "podcast",
		ActivityType:    lake.ActivityConsume,
		Title:           "Episode 12",
		Content:         "Notes on the episode",
		URL:             "https://example.com/ep12",
		DurationSeconds: 1800,
	}
}

func TestAppendThenStreamRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	first := sampleActivity("podcast_ep12", ts)
	second := sampleActivity("podcast_ep13", ts.Add(time.Hour))
	if n, err := s.Append(ctx, first, second); err != nil || n != 2 {
		t.Fatalf("append: n=%d err=%v", n, err)
	}

	path := s.Layout().LogPath(lake.KindSource, "podcast")
	var got []lake.Activity
	var lines []int
	skipped, err := s.Stream(ctx, path, func(a lake.Activity, line int) error {
		got = append(got, a)
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped lines: %v", skipped)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(got))
	}
	if got[0].ActivityID != "podcast_ep12" || got[1].ActivityID != "podcast_ep13" {
		t.Fatalf("ids out of order: %s, %s", got[0].ActivityID, got[1].ActivityID)
	}
	if !got[0].Timestamp.Equal(ts) {
		t.Fatalf("timestamp mismatch: %v", got[0].Timestamp)
	}
	if got[0].DurationSeconds != 1800 || got[0].URL != first.URL {
		t.Fatalf("fields lost in round trip: %+v", got[0])
	}
	if lines[0] != 1 || lines[1] != 2 {
		t.Fatalf("line numbers wrong: %v", lines)
	}
}

func TestAppendRejectsInvalidActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	bad := sampleActivity("podcast_x", ts)
	bad.Platform = "myspace"
	if _, err := s.Append(ctx, bad); !lake.IsValidation(err) {
		t.Fatalf("expected validation error for unknown platform, got %v", err)
	}

	wrongPrefix := sampleActivity("tweet_abc", ts)
	if _, err := s.Append(ctx, wrongPrefix); !lake.IsValidation(err) {
		t.Fatalf("expected validation error for id prefix, got %v", err)
	}

	// Nothing should have been written.
	path := s.Layout().LogPath(lake.KindSource, "podcast")
	if n, err := s.CountLines(path); err != nil || n != 0 {
		t.Fatalf("log should be empty: n=%d err=%v", n, err)
	}
}

func TestStreamCollectsMalformedLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	if _, err := s.Append(ctx, sampleActivity("podcast_good1", ts)); err != nil {
		t.Fatalf("append: %v", err)
	}
	path := s.Layout().LogPath(lake.KindSource, "podcast")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("{not json\n{\"activity_id\":\"podcast_nots\"}\n"); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	f.Close()
	if _, err := s.Append(ctx, sampleActivity("podcast_good2", ts.Add(time.Minute))); err != nil {
		t.Fatalf("append: %v", err)
	}

	var ids []string
	skipped, err := s.Stream(ctx, path, func(a lake.Activity, _ int) error {
		ids = append(ids, a.ActivityID)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(ids) != 2 || ids[0] != "podcast_good1" || ids[1] != "podcast_good2" {
		t.Fatalf("valid lines lost: %v", ids)
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped lines, got %d: %v", len(skipped), skipped)
	}
	if skipped[0].Line != 2 || skipped[1].Line != 3 {
		t.Fatalf("skipped line numbers wrong: %v", skipped)
	}
}

func TestStreamStopsEarly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		a := sampleActivity("podcast_ep"+string(rune('a'+i)), ts.Add(time.Duration(i)*time.Minute))
		if _, err := s.Append(ctx, a); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	path := s.Layout().LogPath(lake.KindSource, "podcast")
	seen := 0
	if _, err := s.Stream(ctx, path, func(_ lake.Activity, _ int) error {
		seen++
		if seen == 2 {
			return lake.ErrStop
		}
		return nil
	}); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if seen != 2 {
		t.Fatalf("expected early stop after 2, saw %d", seen)
	}
}

func TestStreamMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.Layout().Root(), "sources", "podcasts", "absent.jsonl")
	skipped, err := s.Stream(context.Background(), path, func(lake.Activity, int) error {
		t.Fatal("callback should not run")
		return nil
	})
	if err != nil || skipped != nil {
		t.Fatalf("missing file should be empty: %v %v", skipped, err)
	}
}
