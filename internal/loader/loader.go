// File path: internal/loader/loader.go
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/contentlake/contentlake/internal/lake"
	"github.com/contentlake/contentlake/internal/manifest"
	"github.com/contentlake/contentlake/internal/store"
)

// Query describes a filtered read over the activity logs. Zero values mean
// no constraint; Since and Until match on calendar date in UTC, inclusive at
// both ends; Limit of zero means unbounded.
type Query struct {
	Platform     string
	ActivityType lake.ActivityType
	Since        time.Time
	Until        time.Time
	Limit        int
}

func (q Query) filter() manifest.Filter {
	return manifest.Filter{
		Platform:     q.Platform,
		ActivityType: q.ActivityType,
		Since:        q.Since,
		Until:        q.Until,
	}
}

func (q Query) matches(a lake.Activity) bool {
	if q.Platform != "" && a.Platform != q.Platform {
		return false
	}
	if q.ActivityType != "" && a.ActivityType != q.ActivityType {
		return false
	}
	day := a.Timestamp.UTC().Truncate(24 * time.Hour)
	if !q.Since.IsZero() && day.Before(q.Since.UTC().Truncate(24*time.Hour)) {
		return false
	}
	if !q.Until.IsZero() && day.After(q.Until.UTC().Truncate(24*time.Hour)) {
		return false
	}
	return true
}

// Loader serves filtered reads over the activity store. When a manifest
// exists, filters resolve candidate (file, line) locations first so only the
// matching lines are fetched; otherwise every log is scanned.
type Loader struct {
	layout *lake.Layout
	store  *store.Store
}

// New returns a Loader over the given store.
func New(st *store.Store) (*Loader, error) {
	if st == nil || st.Layout() == nil {
		return nil, errors.New("loader: store required")
	}
	return &Loader{layout: st.Layout(), store: st}, nil
}

func (l *Loader) loadManifest() (*manifest.Manifest, error) {
	return manifest.Load(l.layout.ManifestPath())
}

// Select returns the activities matching a query, ordered by timestamp
// ascending with activity id as tie-breaker.
func (l *Loader) Select(ctx context.Context, q Query) ([]lake.Activity, error) {
	if l == nil {
		return nil, errors.New("loader: not initialized")
	}
	var out []lake.Activity
	err := l.Stream(ctx, q, func(a lake.Activity) error {
		out = append(out, a)
		return nil
	})
	return out, err
}

// Stream invokes fn with every matching activity in timestamp order.
// Returning lake.ErrStop from fn ends the stream without error.
func (l *Loader) Stream(ctx context.Context, q Query, fn func(lake.Activity) error) error {
	if l == nil {
		return errors.New("loader: not initialized")
	}
	m, err := l.loadManifest()
	if err != nil {
		return err
	}
	if m == nil {
		return l.streamFullScan(ctx, q, fn)
	}

	entries := m.Select(q.filter())
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	activities, err := l.fetchEntries(ctx, entries)
	if err != nil {
		return err
	}
	for _, a := range activities {
		if err := fn(a); err != nil {
			if errors.Is(err, lake.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// fetchEntries reads the activities the manifest entries point at, grouping
// by file so each log is opened once, then restores timestamp order.
func (l *Loader) fetchEntries(ctx context.Context, entries []manifest.Entry) ([]lake.Activity, error) {
	byFile := make(map[string]map[int]int, 4)
	for i, entry := range entries {
		lines, ok := byFile[entry.FilePath]
		if !ok {
			lines = make(map[int]int)
			byFile[entry.FilePath] = lines
		}
		lines[entry.LineNumber] = i
	}
	out := make([]lake.Activity, len(entries))
	found := make([]bool, len(entries))
	for file, lines := range byFile {
		path := filepath.Join(l.layout.Root(), filepath.FromSlash(file))
		remaining := len(lines)
		_, err := l.store.Stream(ctx, path, func(a lake.Activity, line int) error {
			idx, ok := lines[line]
			if !ok {
				return nil
			}
			out[idx] = a
			found[idx] = true
			remaining--
			if remaining == 0 {
				return lake.ErrStop
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	result := make([]lake.Activity, 0, len(out))
	for i, a := range out {
		if found[i] {
			result = append(result, a)
		}
	}
	return result, nil
}

func (l *Loader) streamFullScan(ctx context.Context, q Query, fn func(lake.Activity) error) error {
	files, err := l.layout.ActivityFiles(q.Platform, "")
	if err != nil {
		return err
	}
	var matched []lake.Activity
	for _, path := range files {
		_, err := l.store.Stream(ctx, path, func(a lake.Activity, _ int) error {
			if q.matches(a) {
				matched = append(matched, a)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.Before(matched[j].Timestamp)
		}
		return matched[i].ActivityID < matched[j].ActivityID
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	for _, a := range matched {
		if err := fn(a); err != nil {
			if errors.Is(err, lake.ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// LoadByIDs fetches specific activities. Ids the repository does not know
// are silently absent from the result; absence is not an error.
func (l *Loader) LoadByIDs(ctx context.Context, ids []string) ([]lake.Activity, error) {
	if l == nil {
		return nil, errors.New("loader: not initialized")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	m, err := l.loadManifest()
	if err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var entries []manifest.Entry
	if m != nil {
		for id := range want {
			if entry, ok := m.Activities[id]; ok {
				entries = append(entries, entry)
			}
		}
		sort.Slice(entries, func(i, j int) bool {
			if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
				return entries[i].Timestamp.Before(entries[j].Timestamp)
			}
			return entries[i].ActivityID < entries[j].ActivityID
		})
		activities, err := l.fetchEntries(ctx, entries)
		if err != nil {
			return nil, err
		}
		for _, a := range activities {
			delete(want, a.ActivityID)
		}
		if len(want) == 0 {
			return activities, nil
		}
		// Ids missing from the manifest may sit in lines appended since the
		// last build; fall through to a scan for the remainder.
		rest, err := l.scanForIDs(ctx, want)
		if err != nil {
			return nil, err
		}
		return append(activities, rest...), nil
	}
	return l.scanForIDs(ctx, want)
}

func (l *Loader) scanForIDs(ctx context.Context, want map[string]struct{}) ([]lake.Activity, error) {
	files, err := l.layout.ActivityFiles("", "")
	if err != nil {
		return nil, err
	}
	var out []lake.Activity
	for _, path := range files {
		if len(want) == 0 {
			break
		}
		_, err := l.store.Stream(ctx, path, func(a lake.Activity, _ int) error {
			if _, ok := want[a.ActivityID]; ok {
				out = append(out, a)
				delete(want, a.ActivityID)
				if len(want) == 0 {
					return lake.ErrStop
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Count reports how many activities match the filters, using manifest stats
// where a single counter answers the question.
func (l *Loader) Count(ctx context.Context, q Query) (int, error) {
	if l == nil {
		return 0, errors.New("loader: not initialized")
	}
	m, err := l.loadManifest()
	if err != nil {
		return 0, err
	}
	if m != nil {
		if q.Since.IsZero() && q.Until.IsZero() {
			switch {
			case q.Platform == "" && q.ActivityType == "":
				return m.TotalActivities, nil
			case q.ActivityType == "":
				return m.Stats.ByPlatform[q.Platform], nil
			case q.Platform == "":
				return m.Stats.ByType[string(q.ActivityType)], nil
			}
		}
		return len(m.Select(q.filter())), nil
	}
	count := 0
	err = l.streamFullScan(ctx, q, func(lake.Activity) error {
		count++
		return nil
	})
	return count, err
}

// Platforms lists the platforms that have indexed activity, sorted.
func (l *Loader) Platforms(ctx context.Context) ([]string, error) {
	if l == nil {
		return nil, errors.New("loader: not initialized")
	}
	m, err := l.loadManifest()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	if m != nil {
		for platform := range m.Stats.ByPlatform {
			set[platform] = struct{}{}
		}
	} else {
		err := l.streamFullScan(ctx, Query{}, func(a lake.Activity) error {
			set[a.Platform] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	platforms := make([]string, 0, len(set))
	for platform := range set {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)
	return platforms, nil
}

// DateRange reports the earliest and latest activity timestamps. Zero times
// mean the repository is empty.
func (l *Loader) DateRange(ctx context.Context) (earliest, latest time.Time, err error) {
	if l == nil {
		return time.Time{}, time.Time{}, errors.New("loader: not initialized")
	}
	observe := func(ts time.Time) {
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
		if latest.IsZero() || ts.After(latest) {
			latest = ts
		}
	}
	m, err := l.loadManifest()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if m != nil {
		for _, entry := range m.Activities {
			observe(entry.Timestamp)
		}
		return earliest, latest, nil
	}
	err = l.streamFullScan(ctx, Query{}, func(a lake.Activity) error {
		observe(a.Timestamp)
		return nil
	})
	return earliest, latest, err
}

// Stats summarizes the repository's activity counts.
type Stats struct {
	Total      int            `json:"total"`
	ByPlatform map[string]int `json:"by_platform"`
	ByYear     map[string]int `json:"by_year"`
	ByType     map[string]int `json:"by_type"`
}

// Stats aggregates counts from the manifest, falling back to a full scan
// when no manifest has been built.
func (l *Loader) Stats(ctx context.Context) (Stats, error) {
	if l == nil {
		return Stats{}, errors.New("loader: not initialized")
	}
	m, err := l.loadManifest()
	if err != nil {
		return Stats{}, err
	}
	if m != nil {
		return Stats{
			Total:      m.TotalActivities,
			ByPlatform: m.Stats.ByPlatform,
			ByYear:     m.Stats.ByYear,
			ByType:     m.Stats.ByType,
		}, nil
	}
	stats := Stats{
		ByPlatform: make(map[string]int),
		ByYear:     make(map[string]int),
		ByType:     make(map[string]int),
	}
	err = l.streamFullScan(ctx, Query{}, func(a lake.Activity) error {
		stats.Total++
		stats.ByPlatform[a.Platform]++
		stats.ByYear[fmt.Sprintf("%d", a.Timestamp.UTC().Year())]++
		stats.ByType[string(a.ActivityType)]++
		return nil
	})
	return stats, err
}
