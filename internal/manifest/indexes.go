// File path: internal/manifest/indexes.go
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/lake"
)

// DateIndex is one by-month partition file: artifacts/indexes/by_date/YYYY-MM.json.
type DateIndex struct {
	Month       string   `json:"month"`
	ActivityIDs []string `json:"activity_ids"`
}

// PlatformIndex is one by-platform partition file.
type PlatformIndex struct {
	Platform    string   `json:"platform"`
	ActivityIDs []string `json:"activity_ids"`
}

// RefreshIndexes regenerates the by-month and by-platform partitions from the
// current manifest. The partitions carry no state of their own; stale
// partition files from a previous manifest are removed.
func RefreshIndexes(layout *lake.Layout) (months, platforms int, err error) {
	if layout == nil {
		return 0, 0, errors.New("manifest: layout required")
	}
	m, err := Load(layout.ManifestPath())
	if err != nil {
		return 0, 0, err
	}
	if m == nil {
		return 0, 0, errors.New("manifest: no manifest to index; run a build first")
	}

	byMonth := make(map[string][]string)
	byPlatform := make(map[string][]string)
	for id, entry := range m.Activities {
		month := entry.Timestamp.UTC().Format("2006-01")
		byMonth[month] = append(byMonth[month], id)
		byPlatform[entry.Platform] = append(byPlatform[entry.Platform], id)
	}

	if err := clearJSONFiles(layout.DateIndexDir()); err != nil {
		return 0, 0, err
	}
	if err := clearJSONFiles(layout.PlatformIndexDir()); err != nil {
		return 0, 0, err
	}
	for month, ids := range byMonth {
		sort.Strings(ids)
		path := filepath.Join(layout.DateIndexDir(), month+".json")
		if err := writeIndexFile(path, DateIndex{Month: month, ActivityIDs: ids}); err != nil {
			return 0, 0, err
		}
	}
	for platform, ids := range byPlatform {
		sort.Strings(ids)
		path := filepath.Join(layout.PlatformIndexDir(), platform+".json")
		if err := writeIndexFile(path, PlatformIndex{Platform: platform, ActivityIDs: ids}); err != nil {
			return 0, 0, err
		}
	}
	common.Logger().Info("manifest: indexes refreshed", "months", len(byMonth), "platforms", len(byPlatform))
	return len(byMonth), len(byPlatform), nil
}

func writeIndexFile(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index %s: %w", path, err)
	}
	return lake.WriteFileAtomic(path, append(data, '\n'))
}

func clearJSONFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("remove stale index: %w", err)
		}
	}
	return nil
}
