package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	// Run headers carry the config and stats as JSON blobs; the derived
	// tables hold the queryable per-edge and per-character rows.
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		dataset TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		config JSON NOT NULL,
		stats JSON NOT NULL,
		warnings JSON
	);

	CREATE TABLE IF NOT EXISTS edge_stats (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		edge TEXT NOT NULL,
		gain_score REAL NOT NULL,
		loss_score REAL NOT NULL,
		PRIMARY KEY (run_id, edge)
	);

	CREATE TABLE IF NOT EXISTS lateral_edges (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		node_a TEXT NOT NULL,
		node_b TEXT NOT NULL,
		support REAL NOT NULL,
		distance INTEGER NOT NULL,
		characters JSON NOT NULL,
		same_group INTEGER NOT NULL DEFAULT 0,
		group_name TEXT,
		PRIMARY KEY (run_id, rank)
	);

	CREATE TABLE IF NOT EXISTS character_results (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		character_id TEXT NOT NULL,
		weight REAL NOT NULL,
		min_cost REAL NOT NULL,
		min_origins INTEGER NOT NULL,
		total_optimal INTEGER NOT NULL,
		sampled INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, character_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_lateral_support ON lateral_edges(run_id, support);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create run tables: %w", err)
	}

	return nil
}
