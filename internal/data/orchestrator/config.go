// File path: internal/data/orchestrator/config.go
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config controls the construction of the orchestrator.
type Config struct {
	// RepoPath is the content data lake root.
	RepoPath string
	// CatalogPath is the SQLite audit ledger location. Empty means the
	// default location under the repository's .contentlake directory.
	CatalogPath string
	// CatalogDisabled turns off audit recording entirely.
	CatalogDisabled bool
	// OpenAIKey enables the embeddings analyzer when set.
	OpenAIKey string
	// EmbeddingModel overrides the default embedding model.
	EmbeddingModel string
}

// DefaultConfig returns the baseline configuration used when no overrides
// are supplied.
func DefaultConfig() Config {
	return Config{RepoPath: "."}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("CONTENTLAKE_ROOT")); value != "" {
		cfg.RepoPath = value
	}
	if value := strings.TrimSpace(os.Getenv("CONTENTLAKE_CATALOG_PATH")); value != "" {
		cfg.CatalogPath = value
	}
	if value := strings.TrimSpace(os.Getenv("CONTENTLAKE_CATALOG_DISABLED")); value != "" {
		disabled, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse CONTENTLAKE_CATALOG_DISABLED: %w", err)
		}
		cfg.CatalogDisabled = disabled
	}
	cfg.OpenAIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.EmbeddingModel = strings.TrimSpace(os.Getenv("CONTENTLAKE_EMBEDDING_MODEL"))
	return applyDefaults(cfg), nil
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.RepoPath) == "" {
		cfg.RepoPath = defaults.RepoPath
	}
	if strings.TrimSpace(cfg.CatalogPath) == "" {
		cfg.CatalogPath = filepath.Join(cfg.RepoPath, ".contentlake", "catalog.db")
	}
	return cfg
}

func (c Config) validate() error {
	if strings.TrimSpace(c.RepoPath) == "" {
		return fmt.Errorf("repository path required")
	}
	if !c.CatalogDisabled && strings.TrimSpace(c.CatalogPath) == "" {
		return fmt.Errorf("catalog path required")
	}
	return nil
}
