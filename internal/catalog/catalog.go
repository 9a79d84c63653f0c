// File path: internal/catalog/catalog.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/contentlake/contentlake/internal/common"
)

// Catalog is the audit ledger for mutating repository operations: appends,
// manifest builds, enhancement saves. It is derived bookkeeping kept outside
// the data lake tree, rebuildable by rerunning operations, never a source of
// truth for lake contents.
type Catalog struct {
	db *sqlx.DB
}

// Open constructs a Catalog backed by the SQLite database at the provided
// path. The schema is migrated on first use.
func Open(path string) (*Catalog, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Catalog using the provided configuration.
func OpenWithConfig(cfg Config) (*Catalog, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("catalog path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	// journal_mode must be set per connection and cannot change inside an
	// explicit transaction, so it lives in the DSN with the other pragmas.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}
	c := &Catalog{db: db}
	if err := c.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the underlying database resources.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Catalog) migrate(ctx context.Context) error {
	if c == nil || c.db == nil {
		return errors.New("catalog not initialised")
	}
	tx, err := c.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
                id TEXT PRIMARY KEY,
                operation TEXT NOT NULL,
                status TEXT NOT NULL DEFAULT 'running',
                detail TEXT,
                error TEXT,
                started_at TIMESTAMP NOT NULL,
                finished_at TIMESTAMP
        );`,
	`CREATE INDEX IF NOT EXISTS idx_runs_operation ON runs(operation);`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
}

// Run is one recorded operation.
type Run struct {
	ID         string     `db:"id" json:"id"`
	Operation  string     `db:"operation" json:"operation"`
	Status     string     `db:"status" json:"status"`
	Detail     string     `db:"detail" json:"detail,omitempty"`
	Error      string     `db:"error" json:"error,omitempty"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// Begin records the start of an operation and returns its run id. detail is
// marshaled to JSON when non-nil.
func (c *Catalog) Begin(ctx context.Context, operation string, detail any) (string, error) {
	if c == nil || c.db == nil {
		return "", errors.New("catalog not initialised")
	}
	if strings.TrimSpace(operation) == "" {
		return "", errors.New("catalog operation required")
	}
	encoded, err := encodeDetail(detail)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO runs (id, operation, status, detail, started_at) VALUES (?, ?, 'running', ?, ?)`,
		id, operation, encoded, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return id, nil
}

// Finish closes a run. A nil runErr marks it succeeded; detail, when
// non-nil, replaces the detail recorded at Begin.
func (c *Catalog) Finish(ctx context.Context, runID string, detail any, runErr error) error {
	if c == nil || c.db == nil {
		return errors.New("catalog not initialised")
	}
	status, errMsg := "succeeded", ""
	if runErr != nil {
		status, errMsg = "failed", runErr.Error()
	}
	encoded, err := encodeDetail(detail)
	if err != nil {
		return err
	}
	query := `UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`
	args := []any{status, errMsg, time.Now().UTC(), runID}
	if encoded != "" {
		query = `UPDATE runs SET status = ?, error = ?, finished_at = ?, detail = ? WHERE id = ?`
		args = []any{status, errMsg, time.Now().UTC(), encoded, runID}
	}
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("catalog run %s not found", runID)
	}
	return nil
}

// Record writes a completed operation in one step.
func (c *Catalog) Record(ctx context.Context, operation string, detail any, runErr error) (string, error) {
	id, err := c.Begin(ctx, operation, detail)
	if err != nil {
		return "", err
	}
	if err := c.Finish(ctx, id, nil, runErr); err != nil {
		return id, err
	}
	return id, nil
}

// Recent returns the latest runs, newest first, optionally filtered by
// operation name.
func (c *Catalog) Recent(ctx context.Context, operation string, limit int) ([]Run, error) {
	if c == nil || c.db == nil {
		return nil, errors.New("catalog not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	var runs []Run
	var err error
	if strings.TrimSpace(operation) != "" {
		err = c.db.SelectContext(ctx, &runs,
			`SELECT id, operation, status, COALESCE(detail, '') AS detail, COALESCE(error, '') AS error,
                                started_at, finished_at
                         FROM runs WHERE operation = ? ORDER BY started_at DESC, id DESC LIMIT ?`,
			operation, limit)
	} else {
		err = c.db.SelectContext(ctx, &runs,
			`SELECT id, operation, status, COALESCE(detail, '') AS detail, COALESCE(error, '') AS error,
                                started_at, finished_at
                         FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`,
			limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return runs, nil
}

// Prune deletes runs older than the retention window and reports how many
// were removed.
func (c *Catalog) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if c == nil || c.db == nil {
		return 0, errors.New("catalog not initialised")
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := c.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	if removed > 0 {
		common.Logger().Info("catalog: pruned runs", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

func encodeDetail(detail any) (string, error) {
	if detail == nil {
		return "", nil
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return "", fmt.Errorf("encode run detail: %w", err)
	}
	return string(data), nil
}
