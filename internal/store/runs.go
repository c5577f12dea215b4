// Package store records optimization runs in a local SQLite database so
// earlier results can be listed and inspected.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"proxeek/internal/logging"
	"proxeek/internal/report"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunStore persists result documents.
type RunStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	RunID       string
	CreatedAt   time.Time
	TotalLoss   float64
	Strategy    string
	NumVirtual  int
	NumPhysical int
	Exclusivity bool
	Truncated   bool
	Source      string
}

// NewRunStore opens (creating if needed) the database at path.
func NewRunStore(path string) (*RunStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &RunStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Run store opened at %s", path)
	return s, nil
}

func (s *RunStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		total_loss REAL NOT NULL,
		strategy TEXT NOT NULL,
		num_virtual INTEGER NOT NULL,
		num_physical INTEGER NOT NULL,
		exclusivity INTEGER NOT NULL,
		truncated INTEGER NOT NULL DEFAULT 0,
		source TEXT DEFAULT '',
		document TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS run_assignments (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		virtual_index INTEGER NOT NULL,
		virtual_name TEXT NOT NULL,
		physical_name TEXT NOT NULL,
		object_id INTEGER NOT NULL,
		image_id INTEGER NOT NULL,
		realism_score REAL NOT NULL,
		PRIMARY KEY (run_id, virtual_index)
	);
	CREATE INDEX IF NOT EXISTS idx_run_assignments_physical ON run_assignments(object_id, image_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create run tables: %w", err)
	}
	return nil
}

// SaveRun stores doc. source names the annotation file the run was built from.
func (s *RunStore) SaveRun(ctx context.Context, doc *report.Document, source string) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", doc.RunID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sm := doc.Summary
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, total_loss, strategy, num_virtual, num_physical, exclusivity, truncated, source, document)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.RunID, doc.CreatedAt.UTC().Format(timeLayout), sm.TotalLoss, sm.Strategy,
		sm.NumVirtual, sm.NumPhysical, sm.Exclusivity, sm.Truncated, source, string(data))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", doc.RunID, err)
	}

	for _, a := range doc.Assignments {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_assignments (run_id, virtual_index, virtual_name, physical_name, object_id, image_id, realism_score)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			doc.RunID, a.Virtual.Index, a.Virtual.Name, a.Physical.Name, a.Physical.ObjectID, a.Physical.ImageID, a.RealismScore)
		if err != nil {
			return fmt.Errorf("failed to insert assignment for %s: %w", a.Virtual.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", doc.RunID, err)
	}
	logging.Store("Recorded run %s (total loss %.4f)", doc.RunID, sm.TotalLoss)
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT run_id, created_at, total_loss, strategy, num_virtual, num_physical, exclusivity, truncated, source
		FROM runs ORDER BY created_at DESC, run_id`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		if err := rows.Scan(&r.RunID, &created, &r.TotalLoss, &r.Strategy, &r.NumVirtual, &r.NumPhysical,
			&r.Exclusivity, &r.Truncated, &r.Source); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("run %s has bad timestamp %q: %w", r.RunID, created, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads the full document of one run.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*report.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM runs WHERE run_id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return report.Unmarshal([]byte(data))
}

// ProxyUsage counts how often each physical object was chosen across all runs.
func (s *RunStore) ProxyUsage(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT physical_name, object_id, image_id, COUNT(*) FROM run_assignments GROUP BY physical_name, object_id, image_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query proxy usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var name string
		var objectID, imageID, n int
		if err := rows.Scan(&name, &objectID, &imageID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan proxy usage: %w", err)
		}
		usage[fmt.Sprintf("%s (%d,%d)", name, objectID, imageID)] = n
	}
	return usage, rows.Err()
}

// Path returns the database file path.
func (s *RunStore) Path() string { return s.dbPath }

// Close closes the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}
