/*
Package storage provides SQLite database migrations and helper functions.

This file contains schema definitions, migration logic, and vector serialization
utilities for the storage layer.
*/
package storage

import (
	"encoding/json"
	"fmt"
)

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "history_schema", up: s.migration001HistorySchema},
		{version: 2, name: "market_signals", up: s.migration002MarketSignals},
	}

	for _, m := range migrations {
		if version < m.version {
			s.logger.Debug("running migration", "version", m.version, "name", m.name)
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// migration001HistorySchema creates history records, counters and embeddings.
func (s *SQLiteStorage) migration001HistorySchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS history_records (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			seq INTEGER NOT NULL,
			input_summary TEXT NOT NULL,
			response_summary TEXT NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (collection, seq)
		)
	`); err != nil {
		return fmt.Errorf("failed to create history_records table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_history_records_collection
		ON history_records(collection, seq)
	`); err != nil {
		return fmt.Errorf("failed to create history_records collection index: %w", err)
	}

	// One row per collection; next_seq is bumped in the same
	// transaction as the insert it numbers.
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS collection_counters (
			collection TEXT PRIMARY KEY,
			next_seq INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("failed to create collection_counters table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS record_embeddings (
			record_id TEXT PRIMARY KEY REFERENCES history_records(id) ON DELETE CASCADE,
			collection TEXT NOT NULL,
			vector BLOB NOT NULL,
			model TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create record_embeddings table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_record_embeddings_collection
		ON record_embeddings(collection)
	`); err != nil {
		return fmt.Errorf("failed to create record_embeddings collection index: %w", err)
	}

	return nil
}

// migration002MarketSignals creates the market_signals table.
func (s *SQLiteStorage) migration002MarketSignals() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS market_signals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			query TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			data TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create market_signals table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_market_signals_query
		ON market_signals(query, timestamp DESC)
	`); err != nil {
		return fmt.Errorf("failed to create market_signals query index: %w", err)
	}

	return nil
}

// vectorToJSON converts a float32 vector to JSON for storage.
func vectorToJSON(vector []float32) (string, error) {
	data, err := json.Marshal(vector)
	if err != nil {
		return "", fmt.Errorf("failed to marshal vector: %w", err)
	}
	return string(data), nil
}

// jsonToVector parses JSON storage back to a float32 vector.
func jsonToVector(jsonStr string) ([]float32, error) {
	var vector []float32
	if err := json.Unmarshal([]byte(jsonStr), &vector); err != nil {
		return nil, err
	}
	return vector, nil
}
