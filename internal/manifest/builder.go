// File path: internal/manifest/builder.go
package manifest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/lake"
	"github.com/contentlake/contentlake/internal/store"
)

// BuildResult reports what a build run did. Conflicts and Warnings describe
// consistency violations in the logs; they block the offending records but
// never corrupt the stored index.
type BuildResult struct {
	Manifest     *Manifest           `json:"-"`
	Full         bool                `json:"full"`
	Added        int                 `json:"added"`
	FilesScanned int                 `json:"files_scanned"`
	LinesRead    int                 `json:"lines_read"`
	Conflicts    []string            `json:"conflicts,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
	Skipped      []store.SkippedLine `json:"skipped,omitempty"`
	Written      bool                `json:"written"`
}

// Builder constructs and maintains the manifest for one repository. All
// loaded state lives on the handle; nothing is cached at package level.
type Builder struct {
	layout *lake.Layout
	store  *store.Store
}

// NewBuilder returns a Builder over the given store.
func NewBuilder(st *store.Store) (*Builder, error) {
	if st == nil || st.Layout() == nil {
		return nil, errors.New("manifest: store required")
	}
	return &Builder{layout: st.Layout(), store: st}, nil
}

// Build scans the activity logs and brings the on-disk manifest up to date.
// With force (or when no manifest exists) every file is scanned from line
// one. Otherwise only lines past each file's indexed high-water mark are
// read; a file that shrank below its high-water mark violates the append-only
// contract, so its entries are discarded and the file is rescanned in full.
func (b *Builder) Build(ctx context.Context, force bool) (*BuildResult, error) {
	if b == nil {
		return nil, errors.New("manifest: builder not initialized")
	}
	files, err := b.layout.ActivityFiles("", "")
	if err != nil {
		return nil, err
	}

	result := &BuildResult{}
	current, err := Load(b.layout.ManifestPath())
	if err != nil {
		return nil, err
	}
	full := force || current == nil
	var m *Manifest
	highWater := make(map[string]int)
	if full {
		m = New()
	} else {
		m = current
		highWater = m.maxLinesByFile()
	}
	result.Full = full
	result.Manifest = m

	dirty := full
	seenFiles := make(map[string]struct{}, len(files))
	for _, path := range files {
		rel := b.relPath(path)
		seenFiles[rel] = struct{}{}
		from := 0
		if !full {
			from = highWater[rel]
			if from > 0 {
				count, err := b.store.CountLines(path)
				if err != nil {
					return nil, err
				}
				if count < from {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("%s shrank from %d to %d lines; rescanning", rel, from, count))
					m.dropFile(rel)
					from = 0
					dirty = true
				} else if count == from {
					continue
				}
			}
		}
		added, err := b.scanFile(ctx, path, rel, from, m, result)
		if err != nil {
			return nil, err
		}
		if added > 0 {
			dirty = true
		}
		result.Added += added
		result.FilesScanned++
	}

	// Entries pointing at files that disappeared are stale.
	if !full {
		for file := range highWater {
			if _, ok := seenFiles[file]; !ok {
				removed := m.dropFile(file)
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("%s no longer exists; dropped %d entries", file, removed))
				dirty = true
			}
		}
	}

	m.RecomputeStats()
	if dirty {
		m.LastUpdated = time.Now().UTC()
		if err := m.save(b.layout.ManifestPath()); err != nil {
			return nil, err
		}
		result.Written = true
	}
	common.Logger().Info("manifest: build complete",
		"full", full, "added", result.Added, "total", m.TotalActivities,
		"conflicts", len(result.Conflicts), "warnings", len(result.Warnings))
	return result, nil
}

// scanFile indexes the lines of one log file past the given high-water mark.
// Duplicate ids keep the first-seen entry and record a conflict.
func (b *Builder) scanFile(ctx context.Context, path, rel string, from int, m *Manifest, result *BuildResult) (int, error) {
	kind := b.layout.KindOf(path)
	added := 0
	skipped, err := b.store.StreamFrom(ctx, path, from, func(activity lake.Activity, line int) error {
		result.LinesRead++
		if existing, ok := m.Activities[activity.ActivityID]; ok {
			if existing.FilePath == rel && existing.LineNumber == line {
				return nil
			}
			conflict := &lake.ConsistencyError{
				Kind: "duplicate_id",
				Detail: fmt.Sprintf("%s at %s:%d already indexed at %s:%d",
					activity.ActivityID, rel, line, existing.FilePath, existing.LineNumber),
			}
			result.Conflicts = append(result.Conflicts, conflict.Error())
			return nil
		}
		m.Activities[activity.ActivityID] = Entry{
			ActivityID:   activity.ActivityID,
			SourceKind:   kind,
			Platform:     activity.Platform,
			ActivityType: activity.ActivityType,
			Timestamp:    activity.Timestamp,
			FilePath:     rel,
			LineNumber:   line,
		}
		added++
		return nil
	})
	if err != nil {
		return added, err
	}
	result.Skipped = append(result.Skipped, skipped...)
	return added, nil
}

func (b *Builder) relPath(path string) string {
	rel, err := filepath.Rel(b.layout.Root(), path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
