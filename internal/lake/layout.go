// File path: internal/lake/layout.go
package lake

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	configDirName  = ".contentlake"
	configFileName = "config.json"

	sourcesDirName   = "sources"
	artifactsDirName = "artifacts"

	enhancementsDirName = "enhancements"
	indexesDirName      = "indexes"
)

// DefaultPlatforms is the platform allow-list used when a repository config
// does not override it. The set is open: config.json may extend it.
var DefaultPlatforms = []string{"twitter", "podcast", "blog", "youtube", "book"}

// Config is the repository configuration stored in .contentlake/config.json.
type Config struct {
	Version   string   `json:"version"`
	UserID    string   `json:"user_id"`
	Name      string   `json:"name"`
	Handle    string   `json:"handle,omitempty"`
	Platforms []string `json:"platforms"`
	CreatedAt string   `json:"created_at"`
}

// Layout resolves every path inside a content data lake repository. It is
// constructed once per repository root and shared by all stores; there is no
// hidden package-level state.
type Layout struct {
	root      string
	platforms map[string]struct{}
}

// NewLayout returns a Layout rooted at path. The platform allow-list is read
// from config.json when present, otherwise DefaultPlatforms applies.
func NewLayout(root string) (*Layout, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, errors.New("repository root required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}
	l := &Layout{root: abs, platforms: make(map[string]struct{})}
	platforms := DefaultPlatforms
	if cfg, err := l.ReadConfig(); err == nil && len(cfg.Platforms) > 0 {
		platforms = cfg.Platforms
	}
	for _, p := range platforms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			l.platforms[p] = struct{}{}
		}
	}
	return l, nil
}

// Root returns the absolute repository root.
func (l *Layout) Root() string { return l.root }

// Platforms returns the configured platform allow-list.
func (l *Layout) Platforms() map[string]struct{} { return l.platforms }

// ConfigPath returns the path to .contentlake/config.json.
func (l *Layout) ConfigPath() string {
	return filepath.Join(l.root, configDirName, configFileName)
}

// SourcesDir returns the directory holding consumed-content logs.
func (l *Layout) SourcesDir() string { return filepath.Join(l.root, sourcesDirName) }

// ArtifactsDir returns the directory holding created-content logs and the
// derived enhancement/index trees.
func (l *Layout) ArtifactsDir() string { return filepath.Join(l.root, artifactsDirName) }

// sourceDirName maps an activity platform to its sources/ directory. The
// consumed half of the lake historically uses plural directory names.
func sourceDirName(platform string) string {
	switch platform {
	case "podcast":
		return "podcasts"
	case "blog":
		return "blogs"
	case "book":
		return "books"
	default:
		return platform
	}
}

var sourceLogNames = map[string]string{
	"podcast": "listening-events.jsonl",
	"book":    "reading-events.jsonl",
	"blog":    "reading-events.jsonl",
	"twitter": "engagement-events.jsonl",
}

var artifactLogNames = map[string]string{
	"twitter": "tweets.jsonl",
	"podcast": "episodes.jsonl",
	"blog":    "posts.jsonl",
	"youtube": "videos.jsonl",
}

// LogPath returns the default log file for a platform in the given half of
// the lake.
func (l *Layout) LogPath(kind SourceKind, platform string) string {
	if kind == KindArtifact {
		name, ok := artifactLogNames[platform]
		if !ok {
			name = platform + ".jsonl"
		}
		return filepath.Join(l.ArtifactsDir(), platform, name)
	}
	name, ok := sourceLogNames[platform]
	if !ok {
		name = platform + "-events.jsonl"
	}
	return filepath.Join(l.SourcesDir(), sourceDirName(platform), name)
}

// EnhancementsDir returns artifacts/enhancements.
func (l *Layout) EnhancementsDir() string {
	return filepath.Join(l.ArtifactsDir(), enhancementsDirName)
}

// EnhancementLatestPath returns the current latest table for a type.
func (l *Layout) EnhancementLatestPath(enhancementType string) string {
	return filepath.Join(l.EnhancementsDir(), enhancementType, "latest.jsonl")
}

// EnhancementHistoryDir returns the immutable history directory for a type.
func (l *Layout) EnhancementHistoryDir(enhancementType string) string {
	return filepath.Join(l.EnhancementsDir(), enhancementType, "history")
}

// IndexesDir returns artifacts/indexes.
func (l *Layout) IndexesDir() string {
	return filepath.Join(l.ArtifactsDir(), indexesDirName)
}

// ManifestPath returns the master manifest location.
func (l *Layout) ManifestPath() string {
	return filepath.Join(l.IndexesDir(), "manifest.json")
}

// DateIndexDir returns the by-month partition directory.
func (l *Layout) DateIndexDir() string {
	return filepath.Join(l.IndexesDir(), "by_date")
}

// PlatformIndexDir returns the by-platform partition directory.
func (l *Layout) PlatformIndexDir() string {
	return filepath.Join(l.IndexesDir(), "by_platform")
}

// KindOf reports which half of the lake a log file path belongs to.
func (l *Layout) KindOf(path string) SourceKind {
	rel, err := filepath.Rel(l.root, path)
	if err == nil {
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) > 0 && parts[0] == sourcesDirName {
			return KindSource
		}
	}
	return KindArtifact
}

// PlatformOf derives the platform from a log file path: the directory name
// directly under sources/ or artifacts/, singularized for the source half.
func (l *Layout) PlatformOf(path string) string {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return "unknown"
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "unknown"
	}
	dir := parts[1]
	if parts[0] == sourcesDirName {
		switch dir {
		case "podcasts":
			return "podcast"
		case "blogs":
			return "blog"
		case "books":
			return "book"
		}
	}
	return dir
}

// ActivityFiles lists every known log file, sorted, optionally restricted to
// one platform and/or one half of the lake. Enhancement and index trees are
// never activity logs.
func (l *Layout) ActivityFiles(platform string, kind SourceKind) ([]string, error) {
	var files []string

	scanHalf := func(dir string, half SourceKind) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			name := entry.Name()
			if half == KindArtifact && (name == enhancementsDirName || name == indexesDirName) {
				continue
			}
			if platform != "" {
				want := platform
				if half == KindSource {
					want = sourceDirName(platform)
				}
				if name != want {
					continue
				}
			}
			matches, err := filepath.Glob(filepath.Join(dir, name, "*.jsonl"))
			if err != nil {
				return err
			}
			files = append(files, matches...)
		}
		return nil
	}

	if kind == "" || kind == KindSource {
		if err := scanHalf(l.SourcesDir(), KindSource); err != nil {
			return nil, err
		}
	}
	if kind == "" || kind == KindArtifact {
		if err := scanHalf(l.ArtifactsDir(), KindArtifact); err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadConfig loads .contentlake/config.json.
func (l *Layout) ReadConfig() (Config, error) {
	data, err := os.ReadFile(l.ConfigPath())
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports whether the path looks like an initialized repository.
func (l *Layout) Validate() bool {
	if info, err := os.Stat(l.ConfigPath()); err != nil || info.IsDir() {
		return false
	}
	srcInfo, srcErr := os.Stat(l.SourcesDir())
	artInfo, artErr := os.Stat(l.ArtifactsDir())
	hasSources := srcErr == nil && srcInfo.IsDir()
	hasArtifacts := artErr == nil && artInfo.IsDir()
	return hasSources || hasArtifacts
}

// Init creates the repository tree and writes the initial config. It fails
// when a repository already exists at the root.
func Init(root string, cfg Config) (*Layout, error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "is required"}
	}
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	l, err := NewLayout(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(l.root, configDirName)); err == nil {
		return nil, fmt.Errorf("repository already exists at %s", l.root)
	}
	if cfg.Handle == "" {
		cfg.Handle = "@" + cfg.UserID
	}
	if len(cfg.Platforms) == 0 {
		cfg.Platforms = append([]string(nil), DefaultPlatforms...)
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	cfg.CreatedAt = time.Now().UTC().Format(time.RFC3339)

	dirs := []string{
		filepath.Join(l.root, configDirName),
		l.SourcesDir(),
		l.ArtifactsDir(),
		l.IndexesDir(),
		l.DateIndexDir(),
		l.PlatformIndexDir(),
	}
	for _, platform := range cfg.Platforms {
		dirs = append(dirs,
			filepath.Join(l.SourcesDir(), sourceDirName(platform)),
			filepath.Join(l.ArtifactsDir(), platform),
		)
	}
	for _, t := range []string{"quality_scores", "game_signatures", "embeddings"} {
		dirs = append(dirs, l.EnhancementHistoryDir(t))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := WriteFileAtomic(l.ConfigPath(), append(data, '\n')); err != nil {
		return nil, err
	}
	return NewLayout(root)
}
