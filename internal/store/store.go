// Package store persists run results and learned operator weights in a
// local SQLite database.
//
// One file backs two tables: runs, one row per recorded search, and
// learned_weights, mapping operator types to the weights that seed the
// additive heuristic's accumulation mode. The connection pool is pinned
// to a single connection and guarded by a mutex, so parallel benchmark
// workers serialize their writes instead of tripping SQLITE_BUSY.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"plannerd/internal/logging"
)

// defaultBusyTimeout is applied when the caller passes a non-positive
// busy timeout to NewRunStore.
const defaultBusyTimeout = 5 * time.Second

// RunStore records solve and benchmark runs plus learned operator weights.
type RunStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewRunStore opens (or creates) the run database at the given path.
// Pass ":memory:" for an ephemeral store.
func NewRunStore(path string, busyTimeout time.Duration) (*RunStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewRunStore")
	defer timer.Stop()

	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	logging.Store("initializing run store at %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.StoreError("failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds())); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	// synchronous=NORMAL is safe under WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		logging.StoreError("failed to ping database: %v", err)
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}

	s := &RunStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		logging.StoreError("failed to initialize schema: %v", err)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("run store ready (runs, learned_weights)")
	return s, nil
}

// initialize creates the required tables.
func (s *RunStore) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		task_name TEXT NOT NULL,
		heuristic TEXT NOT NULL,
		solved BOOLEAN NOT NULL DEFAULT 0,
		dead_end BOOLEAN NOT NULL DEFAULT 0,
		initial_h INTEGER NOT NULL DEFAULT 0,
		expansions INTEGER NOT NULL DEFAULT 0,
		evaluations INTEGER NOT NULL DEFAULT 0,
		generated INTEGER NOT NULL DEFAULT 0,
		dead_ends INTEGER NOT NULL DEFAULT 0,
		plan_length INTEGER NOT NULL DEFAULT 0,
		plan_cost INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_task ON runs(task_name);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_solved ON runs(solved);
	`

	weightsTable := `
	CREATE TABLE IF NOT EXISTS learned_weights (
		operator_type TEXT PRIMARY KEY,
		weight REAL NOT NULL DEFAULT 1.0,
		samples INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	for _, table := range []string{runsTable, weightsTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Retrofit columns for databases created before the current schema.
	if err := RunMigrations(s.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// GetStats returns row counts per table.
func (s *RunStore) GetStats() (map[string]int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetStats")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"runs", "learned_weights"} {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			logging.StoreDebug("table %s count failed: %v", table, err)
			continue
		}
		stats[table] = count
	}
	return stats, nil
}

// Path returns the database file path the store was opened with.
func (s *RunStore) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *RunStore) Close() error {
	logging.Store("closing run store at %s", s.dbPath)
	return s.db.Close()
}
