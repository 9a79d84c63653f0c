// File path: internal/manifest/manifest.go
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/contentlake/contentlake/internal/lake"
)

// FormatVersion identifies the manifest document shape.
const FormatVersion = "1.0"

// Entry locates one activity inside the repository. FilePath is relative to
// the repository root with forward slashes; LineNumber is 1-based.
type Entry struct {
	ActivityID   string            `json:"activity_id"`
	SourceKind   lake.SourceKind   `json:"source_kind"`
	Platform     string            `json:"platform"`
	ActivityType lake.ActivityType `json:"activity_type"`
	Timestamp    time.Time         `json:"timestamp"`
	FilePath     string            `json:"file_path"`
	LineNumber   int               `json:"line_number"`
}

// Stats aggregates the manifest's entries. It carries no information of its
// own and is always recomputed from the activities map.
type Stats struct {
	ByPlatform map[string]int `json:"by_platform"`
	ByYear     map[string]int `json:"by_year"`
	ByType     map[string]int `json:"by_type"`
}

// Manifest is the derived master index over every activity log. It is a
// cache of the logs, never a second source of truth.
type Manifest struct {
	Version         string           `json:"version"`
	LastUpdated     time.Time        `json:"last_updated"`
	TotalActivities int              `json:"total_activities"`
	Activities      map[string]Entry `json:"activities"`
	Stats           Stats            `json:"stats"`
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{
		Version:    FormatVersion,
		Activities: make(map[string]Entry),
		Stats:      newStats(),
	}
}

func newStats() Stats {
	return Stats{
		ByPlatform: make(map[string]int),
		ByYear:     make(map[string]int),
		ByType:     make(map[string]int),
	}
}

// RecomputeStats rebuilds the aggregate counters from the activities map.
func (m *Manifest) RecomputeStats() {
	stats := newStats()
	for _, entry := range m.Activities {
		stats.ByPlatform[entry.Platform]++
		stats.ByYear[strconv.Itoa(entry.Timestamp.UTC().Year())]++
		stats.ByType[string(entry.ActivityType)]++
	}
	m.Stats = stats
	m.TotalActivities = len(m.Activities)
}

// maxLinesByFile returns, per file path, the highest line number the manifest
// has indexed. This is the implicit high-water mark incremental builds
// compare against.
func (m *Manifest) maxLinesByFile() map[string]int {
	max := make(map[string]int)
	for _, entry := range m.Activities {
		if entry.LineNumber > max[entry.FilePath] {
			max[entry.FilePath] = entry.LineNumber
		}
	}
	return max
}

// dropFile removes every entry indexed from the given file path.
func (m *Manifest) dropFile(filePath string) int {
	removed := 0
	for id, entry := range m.Activities {
		if entry.FilePath == filePath {
			delete(m.Activities, id)
			removed++
		}
	}
	return removed
}

// Filter selects manifest entries. Zero values mean no constraint. Since and
// Until match on calendar date in UTC, inclusive at both ends.
type Filter struct {
	Platform     string
	ActivityType lake.ActivityType
	Since        time.Time
	Until        time.Time
}

func (f Filter) matches(entry Entry) bool {
	if f.Platform != "" && entry.Platform != f.Platform {
		return false
	}
	if f.ActivityType != "" && entry.ActivityType != f.ActivityType {
		return false
	}
	day := entry.Timestamp.UTC().Truncate(24 * time.Hour)
	if !f.Since.IsZero() && day.Before(f.Since.UTC().Truncate(24*time.Hour)) {
		return false
	}
	if !f.Until.IsZero() && day.After(f.Until.UTC().Truncate(24*time.Hour)) {
		return false
	}
	return true
}

// Select returns the matching entries sorted by timestamp, oldest first, with
// activity id as the tie-breaker.
func (m *Manifest) Select(f Filter) []Entry {
	if m == nil {
		return nil
	}
	var out []Entry
	for _, entry := range m.Activities {
		if f.matches(entry) {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ActivityID < out[j].ActivityID
	})
	return out
}

// IDs returns every indexed activity id, sorted.
func (m *Manifest) IDs() []string {
	if m == nil {
		return nil
	}
	ids := make([]string, 0, len(m.Activities))
	for id := range m.Activities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load reads a manifest document. A missing file returns (nil, nil): absence
// is the steady state of an unbuilt repository.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Activities == nil {
		m.Activities = make(map[string]Entry)
	}
	return &m, nil
}

// save writes the manifest atomically. Encoding is deterministic: map keys
// are emitted in sorted order, so identical state yields identical bytes.
func (m *Manifest) save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return lake.WriteFileAtomic(path, append(data, '\n'))
}
