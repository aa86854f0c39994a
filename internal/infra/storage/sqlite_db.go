package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// InitSQLite initializes the local SQLite database and creates the schemas
// for rule presets and run records.
func InitSQLite(dbPath string) (*sql.DB, error) {
	if dbPath != MemoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if dbPath == MemoryPath {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS presets (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			reproduce TEXT NOT NULL,
			survive TEXT NOT NULL,
			dying TEXT NOT NULL,
			topology TEXT NOT NULL DEFAULT 'moore',
			seed_mode TEXT NOT NULL DEFAULT 'global',
			seed_probability REAL NOT NULL DEFAULT 0.3,
			built_in BOOLEAN NOT NULL DEFAULT 0,
			last_updated DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			rules TEXT NOT NULL,
			topology TEXT NOT NULL,
			seed_mode TEXT NOT NULL,
			seed_probability REAL NOT NULL,
			seed_rng INTEGER NOT NULL,
			step_rng INTEGER NOT NULL,
			seeded INTEGER NOT NULL DEFAULT 0,
			reseeds INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME,
			generations INTEGER NOT NULL DEFAULT 0,
			final_alive INTEGER NOT NULL DEFAULT 0,
			final_dying INTEGER NOT NULL DEFAULT 0,
			stable BOOLEAN NOT NULL DEFAULT 0,
			extinct BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
