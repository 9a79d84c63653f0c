// File path: internal/loader/loader_test.go
package loader

import (
	"context"
	"testing"
	"time"

	"github.com/contentlake/contentlake/internal/lake"
	"github.com/contentlake/contentlake/internal/manifest"
	"github.com/contentlake/contentlake/internal/store"
)

func newTestRepo(t *testing.T) (*Loader, *store.Store, *manifest.Builder) {
	t.Helper()
	layout, err := lake.Init(t.TempDir(), lake.Config{UserID: "tester", Name: "Tester"})
	if err != nil {
		t.Fatalf("init layout: %v", err)
	}
	st, err := store.New(layout)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	b, err := manifest.NewBuilder(st)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	l, err := New(st)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	return l, st, b
}

func seed(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	activities := []lake.Activity{
		{ActivityID: "twitter_1", Timestamp: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC), Platform: "twitter", ActivityType: lake.ActivityCreate, Content: "first tweet"},
		{ActivityID: "twitter_2", Timestamp: time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC), Platform: "twitter", ActivityType: lake.ActivityCreate, Content: "second tweet"},
		{ActivityID: "podcast_1", Timestamp: time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC), Platform: "podcast", ActivityType: lake.ActivityConsume, Title: "an episode"},
		{ActivityID: "book_1", Timestamp: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), Platform: "book", ActivityType: lake.ActivityConsume, Title: "a chapter"},
	}
	if _, err := st.Append(ctx, activities...); err != nil {
		t.Fatalf("seed append: %v", err)
	}
}

func TestSelectWithManifest(t *testing.T) {
	l, st, b := newTestRepo(t)
	seed(t, st)
	ctx := context.Background()
	if _, err := b.Build(ctx, true); err != nil {
		t.Fatalf("build: %v", err)
	}

	tweets, err := l.Select(ctx, Query{Platform: "twitter"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(tweets) != 2 || tweets[0].ActivityID != "twitter_1" || tweets[1].ActivityID != "twitter_2" {
		t.Fatalf("platform query wrong: %v", tweets)
	}
	if tweets[0].Content != "first tweet" {
		t.Fatalf("record body not fetched: %+v", tweets[0])
	}

	consumed, err := l.Select(ctx, Query{ActivityType: lake.ActivityConsume})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(consumed) != 2 {
		t.Fatalf("type query wrong: %v", consumed)
	}

	limited, err := l.Select(ctx, Query{Limit: 3})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(limited) != 3 {
		t.Fatalf("limit not applied: %d", len(limited))
	}
}

func TestDateFiltersInclusiveBothEnds(t *testing.T) {
	l, st, b := newTestRepo(t)
	seed(t, st)
	ctx := context.Background()
	if _, err := b.Build(ctx, true); err != nil {
		t.Fatalf("build: %v", err)
	}

	// Boundary dates match even though the record timestamps carry a time
	// of day past midnight.
	got, err := l.Select(ctx, Query{
		Since: time.Date(2025, 1, 10, 23, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("inclusive date range wrong, got %d activities", len(got))
	}
	if got[0].ActivityID != "twitter_1" || got[2].ActivityID != "twitter_2" {
		t.Fatalf("range results wrong: %v", got)
	}
}

func TestSelectFallsBackToFullScan(t *testing.T) {
	l, st, _ := newTestRepo(t)
	seed(t, st)
	ctx := context.Background()

	// No manifest built.
	tweets, err := l.Select(ctx, Query{Platform: "twitter"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(tweets) != 2 {
		t.Fatalf("full scan query wrong: %v", tweets)
	}
	if tweets[0].ActivityID != "twitter_1" {
		t.Fatalf("full scan not sorted by timestamp: %v", tweets)
	}
}

func TestLoadByIDs(t *testing.T) {
	l, st, b := newTestRepo(t)
	seed(t, st)
	ctx := context.Background()
	if _, err := b.Build(ctx, true); err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := l.LoadByIDs(ctx, []string{"book_1", "twitter_1", "podcast_nope"})
	if err != nil {
		t.Fatalf("load by ids: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 activities for known ids, got %v", got)
	}

	// An activity appended after the last build is still reachable.
	late := lake.Activity{
		ActivityID:   "twitter_3",
		Timestamp:    time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Platform:     "twitter",
		ActivityType: lake.ActivityCreate,
	}
	if _, err := st.Append(ctx, late); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err = l.LoadByIDs(ctx, []string{"twitter_3"})
	if err != nil || len(got) != 1 || got[0].ActivityID != "twitter_3" {
		t.Fatalf("unindexed id not found by scan: %v %v", got, err)
	}
}

func TestCountPlatformsStatsAndDateRange(t *testing.T) {
	l, st, b := newTestRepo(t)
	seed(t, st)
	ctx := context.Background()
	if _, err := b.Build(ctx, true); err != nil {
		t.Fatalf("build: %v", err)
	}

	if n, err := l.Count(ctx, Query{}); err != nil || n != 4 {
		t.Fatalf("total count wrong: %d %v", n, err)
	}
	if n, err := l.Count(ctx, Query{Platform: "twitter"}); err != nil || n != 2 {
		t.Fatalf("platform count wrong: %d %v", n, err)
	}
	if n, err := l.Count(ctx, Query{Platform: "twitter", Until: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)}); err != nil || n != 1 {
		t.Fatalf("filtered count wrong: %d %v", n, err)
	}

	platforms, err := l.Platforms(ctx)
	if err != nil {
		t.Fatalf("platforms: %v", err)
	}
	if len(platforms) != 3 || platforms[0] != "book" || platforms[2] != "twitter" {
		t.Fatalf("platforms wrong: %v", platforms)
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 || stats.ByType["consume"] != 2 || stats.ByYear["2025"] != 4 {
		t.Fatalf("stats wrong: %+v", stats)
	}

	earliest, latest, err := l.DateRange(ctx)
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	if !earliest.Equal(time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)) ||
		!latest.Equal(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("date range wrong: %v %v", earliest, latest)
	}
}

func TestStreamStopsEarly(t *testing.T) {
	l, st, b := newTestRepo(t)
	seed(t, st)
	ctx := context.Background()
	if _, err := b.Build(ctx, true); err != nil {
		t.Fatalf("build: %v", err)
	}
	seen := 0
	err := l.Stream(ctx, Query{}, func(lake.Activity) error {
		seen++
		if seen == 2 {
			return lake.ErrStop
		}
		return nil
	})
	if err != nil || seen != 2 {
		t.Fatalf("early stop failed: %d %v", seen, err)
	}
}
