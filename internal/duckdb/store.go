// Package duckdb exports merged gene pair scores to a DuckDB database.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding merged scores.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory databases.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS merged_scores (
		line BIGINT,
		gene1 VARCHAR,
		chrom1 VARCHAR,
		start1 BIGINT,
		gene2 VARCHAR,
		chrom2 VARCHAR,
		start2 BIGINT,
		fields VARCHAR,
		block_score DOUBLE,
		block_count INTEGER
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS merge_inputs (
		role VARCHAR PRIMARY KEY,
		path VARCHAR,
		size BIGINT,
		mod_time TIMESTAMP
	)`)
	return err
}

// Clear removes all merged scores and recorded inputs.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM merged_scores"); err != nil {
		return fmt.Errorf("clear merged scores: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM merge_inputs"); err != nil {
		return fmt.Errorf("clear merge inputs: %w", err)
	}
	return nil
}
