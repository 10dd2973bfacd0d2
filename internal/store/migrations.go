package store

import (
	"database/sql"
	"fmt"

	"plannerd/internal/logging"
)

// Schema versions:
// v1: runs table (id, task name, heuristic, outcome, counters) and
//     learned_weights (operator_type, weight)
// v2: added generated and dead_ends counters to runs
// v3: added samples counter to learned_weights
const CurrentSchemaVersion = 3

// Migration defines a database schema migration.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists all schema migrations to apply. These handle
// databases whose tables exist but are missing newer columns.
var pendingMigrations = []Migration{
	// Search effort counters (added in v2 alongside the search stats)
	{"runs", "generated", "INTEGER NOT NULL DEFAULT 0"},
	{"runs", "dead_ends", "INTEGER NOT NULL DEFAULT 0"},
	// Sample counter for weight credits (added in v3)
	{"learned_weights", "samples", "INTEGER NOT NULL DEFAULT 0"},
}

// RunMigrations applies schema migrations for existing databases.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	logging.StoreDebug("running schema migrations (%d pending)", len(pendingMigrations))

	applied := 0
	skipped := 0

	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			logging.StoreDebug("table missing, skipping migration: %s.%s", m.Table, m.Column)
			skipped++
			continue
		}

		if columnExists(db, m.Table, m.Column) {
			skipped++
			continue
		}

		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			// Column may already exist in a different form.
			logging.StoreWarn("migration failed: %s.%s: %v", m.Table, m.Column, err)
			skipped++
			continue
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	logging.StoreDebug("schema migrations complete: applied=%d, skipped=%d", applied, skipped)
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid         int
			name, ctype string
			notnull, pk int
			dflt        interface{}
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		logging.StoreDebug("table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}
