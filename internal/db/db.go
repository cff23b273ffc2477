package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/strand/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/strand.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.strand.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "strand.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS projects (
		  id         INTEGER PRIMARY KEY AUTOINCREMENT,
		  name       TEXT NOT NULL UNIQUE,
		  created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sessions (
		  id         INTEGER PRIMARY KEY AUTOINCREMENT,
		  project_id INTEGER NOT NULL REFERENCES projects(id),
		  name       TEXT NOT NULL,
		  created_at INTEGER NOT NULL,
		  UNIQUE(project_id, name)
		);

		CREATE TABLE IF NOT EXISTS sequences (
		  id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		  project_id         INTEGER NOT NULL REFERENCES projects(id),
		  session_id         INTEGER NOT NULL REFERENCES sessions(id),
		  name               TEXT NOT NULL,
		  description        TEXT,
		  goal               TEXT NOT NULL,
		  is_complete        INTEGER NOT NULL DEFAULT 0,
		  completion_summary TEXT,
		  metadata_json      TEXT,
		  created_at         INTEGER NOT NULL,
		  updated_at         INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sequences_project_updated
		ON sequences(project_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS thoughts (
		  id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		  sequence_id            INTEGER NOT NULL REFERENCES sequences(id),
		  thought_number         INTEGER NOT NULL,
		  total_estimate         INTEGER NOT NULL,
		  content                TEXT NOT NULL,
		  thought_type           TEXT NOT NULL,
		  confidence             REAL NOT NULL,
		  next_needed            INTEGER NOT NULL DEFAULT 1,
		  is_revision            INTEGER NOT NULL DEFAULT 0,
		  revises_thought_id     INTEGER REFERENCES thoughts(id),
		  branch_intent          INTEGER NOT NULL DEFAULT 0,
		  branch_from_thought_id INTEGER REFERENCES thoughts(id),
		  branch_id              TEXT,
		  metadata_json          TEXT,
		  created_at             INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_thoughts_sequence_number
		ON thoughts(sequence_id, thought_number);

		CREATE TABLE IF NOT EXISTS branches (
		  id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		  sequence_id            INTEGER NOT NULL REFERENCES sequences(id),
		  branch_id              TEXT NOT NULL UNIQUE,
		  branch_name            TEXT NOT NULL,
		  branch_from_thought_id INTEGER NOT NULL REFERENCES thoughts(id),
		  description            TEXT,
		  rationale              TEXT,
		  is_active              INTEGER NOT NULL DEFAULT 1,
		  is_merged              INTEGER NOT NULL DEFAULT 0,
		  merge_summary          TEXT,
		  created_at             INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_branches_sequence
		ON branches(sequence_id);

		CREATE TABLE IF NOT EXISTS memories (
		  id            TEXT PRIMARY KEY,
		  project_name  TEXT NOT NULL,
		  memory_type   TEXT NOT NULL,
		  content       TEXT NOT NULL,
		  importance    REAL NOT NULL,
		  metadata_json TEXT,
		  created_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memories_project_created
		ON memories(project_name, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_memories_type
		ON memories(memory_type);

		CREATE TABLE IF NOT EXISTS insight_jobs (
		  id              TEXT PRIMARY KEY,
		  task_type       TEXT NOT NULL,
		  source_ids_json TEXT NOT NULL,
		  payload_json    TEXT,
		  priority        INTEGER NOT NULL DEFAULT 0,
		  status          TEXT NOT NULL DEFAULT 'pending',
		  error           TEXT,
		  created_at      INTEGER NOT NULL,
		  processed_at    INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_insight_jobs_pending
		ON insight_jobs(status, priority DESC, created_at)
		WHERE status = 'pending';
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
