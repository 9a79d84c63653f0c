// File path: internal/catalog/config.go
package catalog

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the catalog's SQLite connection.
type Config struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	BusyTimeout  time.Duration
}

// LoadConfig reads catalog settings from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{}
	cfg.Path = strings.TrimSpace(os.Getenv("CONTENTLAKE_CATALOG_PATH"))
	if raw := strings.TrimSpace(os.Getenv("CONTENTLAKE_CATALOG_MAX_OPEN_CONNS")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse CONTENTLAKE_CATALOG_MAX_OPEN_CONNS: %w", err)
		}
		cfg.MaxOpenConns = v
	}
	if raw := strings.TrimSpace(os.Getenv("CONTENTLAKE_CATALOG_MAX_IDLE_CONNS")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse CONTENTLAKE_CATALOG_MAX_IDLE_CONNS: %w", err)
		}
		cfg.MaxIdleConns = v
	}
	if raw := strings.TrimSpace(os.Getenv("CONTENTLAKE_CATALOG_BUSY_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse CONTENTLAKE_CATALOG_BUSY_TIMEOUT: %w", err)
		}
		cfg.BusyTimeout = d
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 4
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}
}
