// File path: internal/store/store.go
package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/lake"
)

// maxLineBytes bounds a single activity record. Raw payloads can carry full
// article bodies, so the default scanner buffer is not enough.
const maxLineBytes = 8 << 20

// SkippedLine describes a malformed line encountered while streaming. The
// surrounding scan keeps going; callers decide whether diagnostics are fatal.
type SkippedLine struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Store appends to and streams from the append-only activity logs of one
// repository. Appends are serialized; log files are only ever grown.
type Store struct {
	layout *lake.Layout
	mu     sync.Mutex
}

// New returns a Store over the given repository layout.
func New(layout *lake.Layout) (*Store, error) {
	if layout == nil {
		return nil, errors.New("store: layout required")
	}
	return &Store{layout: layout}, nil
}

// Layout exposes the repository layout the store was built over.
func (s *Store) Layout() *lake.Layout {
	if s == nil {
		return nil
	}
	return s.layout
}

// Append validates the activities and appends each as one JSON line to the
// default log file for its platform and half. It returns the number of lines
// written; on error nothing past the reported count reached the log.
func (s *Store) Append(ctx context.Context, activities ...lake.Activity) (int, error) {
	if s == nil {
		return 0, errors.New("store: not initialized")
	}
	if len(activities) == 0 {
		return 0, nil
	}
	allowed := s.layout.Platforms()
	for _, activity := range activities {
		if err := activity.Validate(allowed); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	files := make(map[string]*os.File)
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, activity := range activities {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}
		path := s.layout.LogPath(lake.KindForType(activity.ActivityType), activity.Platform)
		file, ok := files[path]
		if !ok {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return written, fmt.Errorf("create log dir: %w", err)
			}
			opened, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
			if err != nil {
				return written, fmt.Errorf("open log: %w", err)
			}
			files[path] = opened
			file = opened
		}
		line, err := activity.MarshalLine()
		if err != nil {
			return written, fmt.Errorf("encode activity %s: %w", activity.ActivityID, err)
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			return written, fmt.Errorf("append to %s: %w", path, err)
		}
		written++
	}
	common.Logger().Debug("store: appended activities", "count", written, "files", len(files))
	return written, nil
}

// AppendToFile validates and appends activities to an explicit log file
// inside the repository, for callers that manage their own file naming.
func (s *Store) AppendToFile(ctx context.Context, path string, activities ...lake.Activity) (int, error) {
	if s == nil {
		return 0, errors.New("store: not initialized")
	}
	if len(activities) == 0 {
		return 0, nil
	}
	allowed := s.layout.Platforms()
	for _, activity := range activities {
		if err := activity.Validate(allowed); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()
	written := 0
	for _, activity := range activities {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}
		line, err := activity.MarshalLine()
		if err != nil {
			return written, fmt.Errorf("encode activity %s: %w", activity.ActivityID, err)
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			return written, fmt.Errorf("append to %s: %w", path, err)
		}
		written++
	}
	return written, nil
}

// Stream reads one log file line by line and invokes fn with each decoded
// activity and its 1-based line number. Malformed lines are collected as
// diagnostics instead of aborting the scan. Returning lake.ErrStop from fn
// ends the stream without error.
func (s *Store) Stream(ctx context.Context, path string, fn func(activity lake.Activity, lineNumber int) error) ([]SkippedLine, error) {
	return s.StreamFrom(ctx, path, 0, fn)
}

// StreamFrom behaves like Stream but skips the first afterLine lines without
// decoding them, so incremental consumers only pay for the trailing lines
// appended since their last scan.
func (s *Store) StreamFrom(ctx context.Context, path string, afterLine int, fn func(activity lake.Activity, lineNumber int) error) ([]SkippedLine, error) {
	if s == nil {
		return nil, errors.New("store: not initialized")
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var skipped []SkippedLine
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNumber := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return skipped, ctx.Err()
		default:
		}
		lineNumber++
		if lineNumber <= afterLine {
			continue
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		activity, err := lake.ParseLine(line)
		if err != nil {
			skipped = append(skipped, SkippedLine{File: path, Line: lineNumber, Reason: err.Error()})
			continue
		}
		if err := fn(activity, lineNumber); err != nil {
			if errors.Is(err, lake.ErrStop) {
				return skipped, nil
			}
			return skipped, err
		}
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("scan %s: %w", path, err)
	}
	if len(skipped) > 0 {
		common.Logger().Warn("store: skipped malformed lines", "file", path, "count", len(skipped))
	}
	return skipped, nil
}

// CountLines reports how many physical lines a log file currently holds.
// Missing files count as zero.
func (s *Store) CountLines(path string) (int, error) {
	if s == nil {
		return 0, errors.New("store: not initialized")
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	count := 0
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("scan %s: %w", path, err)
	}
	return count, nil
}
