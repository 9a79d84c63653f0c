// File path: internal/enhance/store.go
package enhance

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/lake"
)

const maxRecordBytes = 16 << 20

// Store manages the versioned enhancement layers of one repository: a
// keyed "latest" table per type plus an immutable history of frozen
// snapshots. The latest table invariant, at most one current record per
// activity id, is enforced by upserting into a map and rewriting the file
// atomically; latest.jsonl is never textually appended to.
type Store struct {
	layout *lake.Layout
	mu     sync.Mutex
}

// NewStore returns a Store over the given repository layout.
func NewStore(layout *lake.Layout) (*Store, error) {
	if layout == nil {
		return nil, errors.New("enhance: layout required")
	}
	return &Store{layout: layout}, nil
}

// SaveOptions control how Save merges and archives.
type SaveOptions struct {
	// Append merges the records into the existing latest table instead of
	// replacing it wholesale. A record for an already-present activity id
	// replaces the old one (last write wins).
	Append bool
	// ArchivePrevious freezes the current latest table into history/ before
	// the new table is written.
	ArchivePrevious bool
	// Reason is embedded in the history snapshot filename.
	Reason string
}

// SaveResult reports where Save wrote the latest table and, when a previous
// table was archived first, the snapshot it froze.
type SaveResult struct {
	Path     string
	Snapshot string
}

// Save writes records to the latest table for an enhancement type. The
// rewrite is atomic; a crash leaves either the old table or the new one,
// never a partial file.
func (s *Store) Save(enhancementType string, records []Record, opts SaveOptions) (SaveResult, error) {
	if s == nil {
		return SaveResult{}, errors.New("enhance: store not initialized")
	}
	if err := validateTypeName(enhancementType); err != nil {
		return SaveResult{}, err
	}
	for _, record := range records {
		if record.ActivityID == "" || record.ComputedAt.IsZero() {
			return SaveResult{}, &lake.ValidationError{Field: "activity_id", Reason: "enhancement records need activity_id and computed_at"}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := SaveResult{}
	latestPath := s.layout.EnhancementLatestPath(enhancementType)
	if opts.ArchivePrevious {
		snapshot, err := s.archiveLocked(enhancementType, opts.Reason)
		if err != nil {
			return SaveResult{}, err
		}
		result.Snapshot = snapshot
	}

	table := make(map[string]Record)
	if opts.Append {
		existing, err := loadTable(latestPath)
		if err != nil {
			return SaveResult{}, err
		}
		table = existing
	}
	for _, record := range records {
		table[record.ActivityID] = record
	}

	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var buf bytes.Buffer
	for _, id := range ids {
		buf.Write(table[id].Raw)
		buf.WriteByte('\n')
	}
	if err := lake.WriteFileAtomic(latestPath, buf.Bytes()); err != nil {
		return SaveResult{}, err
	}
	common.Logger().Info("enhance: saved latest table",
		"type", enhancementType, "records", len(records), "total", len(table), "append", opts.Append)
	result.Path = latestPath
	return result, nil
}

// Archive freezes the current latest table for a type into history/. It is
// a no-op returning "" when no latest table exists.
func (s *Store) Archive(enhancementType string, reason string) (string, error) {
	if s == nil {
		return "", errors.New("enhance: store not initialized")
	}
	if err := validateTypeName(enhancementType); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archiveLocked(enhancementType, reason)
}

func (s *Store) archiveLocked(enhancementType, reason string) (string, error) {
	latestPath := s.layout.EnhancementLatestPath(enhancementType)
	data, err := os.ReadFile(latestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read latest table: %w", err)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual_archive"
	}
	version := versionFromTable(data)
	historyDir := s.layout.EnhancementHistoryDir(enhancementType)
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return "", fmt.Errorf("create history dir: %w", err)
	}

	date := time.Now().UTC().Format("2006-01-02")
	name := fmt.Sprintf("%s_v%s_%s.jsonl", date, version, reason)
	path := filepath.Join(historyDir, name)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			break
		}
		name = fmt.Sprintf("%s_v%s_%s_%d.jsonl", date, version, reason, counter)
		path = filepath.Join(historyDir, name)
	}
	if err := lake.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	common.Logger().Info("enhance: archived latest table", "type", enhancementType, "snapshot", name)
	return path, nil
}

// versionFromTable reads algorithm_version from the first record of a table.
func versionFromTable(data []byte) string {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	record, err := parseRecord(bytes.TrimSpace(line))
	if err != nil || record.AlgorithmVersion == "" {
		return "unknown"
	}
	return record.AlgorithmVersion
}

// Latest loads the current table for a type, keyed by activity id. A missing
// table is an empty map; absence is the steady state before first compute.
func (s *Store) Latest(enhancementType string) (map[string]Record, error) {
	if s == nil {
		return nil, errors.New("enhance: store not initialized")
	}
	if err := validateTypeName(enhancementType); err != nil {
		return nil, err
	}
	return loadTable(s.layout.EnhancementLatestPath(enhancementType))
}

// CurrentAlgorithmVersion reports the version stored in the latest table for
// a type; "" means no table exists.
func (s *Store) CurrentAlgorithmVersion(enhancementType string) (string, error) {
	if err := validateTypeName(enhancementType); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.layout.EnhancementLatestPath(enhancementType))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read latest table: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}
	return versionFromTable(data), nil
}

// NeedsRecompute reports whether the stored table for a type is stale
// relative to the caller's implementation version. Any difference counts;
// the version string is never interpreted.
func (s *Store) NeedsRecompute(enhancementType, implementationVersion string) (bool, error) {
	stored, err := s.CurrentAlgorithmVersion(enhancementType)
	if err != nil {
		return false, err
	}
	return stored == "" || stored != implementationVersion, nil
}

// Unprocessed returns the ids from allIDs that have no record in the latest
// table for a type, preserving the input order.
func (s *Store) Unprocessed(allIDs []string, enhancementType string) ([]string, error) {
	table, err := s.Latest(enhancementType)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range allIDs {
		if _, ok := table[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// ListHistory returns the history snapshot filenames for a type, newest
// first by the date embedded in the name.
func (s *Store) ListHistory(enhancementType string) ([]string, error) {
	if s == nil {
		return nil, errors.New("enhance: store not initialized")
	}
	if err := validateTypeName(enhancementType); err != nil {
		return nil, err
	}
	dir := s.layout.EnhancementHistoryDir(enhancementType)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jsonl") {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// LoadHistorical loads one history snapshot, keyed by activity id.
func (s *Store) LoadHistorical(enhancementType, snapshotName string) (map[string]Record, error) {
	if err := validateTypeName(enhancementType); err != nil {
		return nil, err
	}
	if snapshotName != filepath.Base(snapshotName) {
		return nil, &lake.ValidationError{Field: "snapshot", Reason: "must be a bare filename"}
	}
	path := filepath.Join(s.layout.EnhancementHistoryDir(enhancementType), snapshotName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("history snapshot %s: %w", snapshotName, err)
	}
	return loadTable(path)
}

// Timeline merges an activity's record from the latest table with its record
// from every history snapshot, sorted descending by computed_at. An unknown
// id yields an empty timeline.
func (s *Store) Timeline(activityID, enhancementType string) ([]TimelineEntry, error) {
	if s == nil {
		return nil, errors.New("enhance: store not initialized")
	}
	if err := validateTypeName(enhancementType); err != nil {
		return nil, err
	}
	var timeline []TimelineEntry
	latest, err := s.Latest(enhancementType)
	if err != nil {
		return nil, err
	}
	if record, ok := latest[activityID]; ok {
		timeline = append(timeline, TimelineEntry{
			Source:           "latest",
			Record:           record.Raw,
			ComputedAt:       record.ComputedAt,
			AlgorithmVersion: record.AlgorithmVersion,
		})
	}
	snapshots, err := s.ListHistory(enhancementType)
	if err != nil {
		return nil, err
	}
	for _, name := range snapshots {
		table, err := s.LoadHistorical(enhancementType, name)
		if err != nil {
			return nil, err
		}
		if record, ok := table[activityID]; ok {
			timeline = append(timeline, TimelineEntry{
				Source:           name,
				Record:           record.Raw,
				ComputedAt:       record.ComputedAt,
				AlgorithmVersion: record.AlgorithmVersion,
			})
		}
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].ComputedAt.After(timeline[j].ComputedAt)
	})
	return timeline, nil
}

// Clear deletes the latest table for a type, or for every known type when
// enhancementType is empty. History snapshots are never touched.
func (s *Store) Clear(enhancementType string) error {
	if s == nil {
		return errors.New("enhance: store not initialized")
	}
	types := KnownTypes
	if enhancementType != "" {
		if err := validateTypeName(enhancementType); err != nil {
			return err
		}
		types = []string{enhancementType}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range types {
		if err := os.Remove(s.layout.EnhancementLatestPath(t)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear %s: %w", t, err)
		}
	}
	return nil
}

// JoinOptions select which layers EnhanceAll loads.
type JoinOptions struct {
	Quality    bool
	Games      bool
	Embeddings bool
}

// AllLayers selects every built-in layer.
func AllLayers() JoinOptions {
	return JoinOptions{Quality: true, Games: true, Embeddings: true}
}

// EnhanceAll joins activities with their current enhancement records. Each
// requested layer's table is loaded once; activities without a record for a
// layer keep it nil.
func (s *Store) EnhanceAll(activities []lake.Activity, opts JoinOptions) ([]EnhancedActivity, error) {
	if s == nil {
		return nil, errors.New("enhance: store not initialized")
	}
	var quality, games, embeddings map[string]Record
	var err error
	if opts.Quality {
		if quality, err = s.Latest(TypeQualityScores); err != nil {
			return nil, err
		}
	}
	if opts.Games {
		if games, err = s.Latest(TypeGameSignatures); err != nil {
			return nil, err
		}
	}
	if opts.Embeddings {
		if embeddings, err = s.Latest(TypeEmbeddings); err != nil {
			return nil, err
		}
	}

	out := make([]EnhancedActivity, 0, len(activities))
	for _, activity := range activities {
		enhanced := EnhancedActivity{Activity: activity}
		if record, ok := quality[activity.ActivityID]; ok {
			var score QualityScore
			if err := record.Decode(&score); err == nil {
				enhanced.Quality = &score
			}
		}
		if record, ok := games[activity.ActivityID]; ok {
			var sig GameSignature
			if err := record.Decode(&sig); err == nil {
				enhanced.Games = &sig
			}
		}
		if record, ok := embeddings[activity.ActivityID]; ok {
			var emb Embedding
			if err := record.Decode(&emb); err == nil {
				enhanced.Embedding = &emb
			}
		}
		out = append(out, enhanced)
	}
	return out, nil
}

// loadTable reads a JSONL enhancement file keyed by activity id. Later lines
// win, so tables written before the keyed-upsert convention still resolve to
// one record per id. Malformed lines are skipped.
func loadTable(path string) (map[string]Record, error) {
	table := make(map[string]Record)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return table, nil
		}
		return nil, fmt.Errorf("open enhancement table: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxRecordBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		record, err := parseRecord(line)
		if err != nil {
			continue
		}
		table[record.ActivityID] = record
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return table, nil
}
