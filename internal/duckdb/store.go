// Package duckdb persists analysis results and caches parsed transcripts.
// Transcripts are cached as gob files (fast, pure Go).
// Mapped contacts are stored in DuckDB, or SQLite when a portable single
// file is preferred (queryable, append-only, one run id per invocation).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// Store manages a database connection holding contact results.
type Store struct {
	db     *sql.DB
	driver string
	path   string
}

// Open opens or creates a database at the given path with the DuckDB
// driver. Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	return OpenDriver(DriverDuckDB, path)
}

// OpenDriver opens or creates a database with the named driver
// ("duckdb" or "sqlite").
func OpenDriver(driver, path string) (*Store, error) {
	switch driver {
	case DriverDuckDB, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported results driver %q", driver)
	}

	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}
	dsn := path
	if driver == DriverSQLite && dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// Every pooled connection to ":memory:" would be its own database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, driver: driver, path: path}
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

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.driver
}

// NewRunID returns a fresh identifier for one batch of results.
func NewRunID() string {
	return uuid.New().String()
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS contact_results (
		run_id VARCHAR,
		pdb_id VARCHAR,
		chain VARCHAR,
		aa_pos1 BIGINT,
		aa_pos2 BIGINT,
		aa1 VARCHAR,
		aa2 VARCHAR,
		distance DOUBLE,
		chr1 VARCHAR,
		pos1 BIGINT,
		chr2 VARCHAR,
		pos2 BIGINT,
		transcript_id VARCHAR,
		msa1 VARCHAR,
		msa_idx1 BIGINT,
		msa2 VARCHAR,
		msa_idx2 BIGINT,
		aa_seq1 VARCHAR,
		aa_seq2 VARCHAR,
		annotations1 VARCHAR,
		annotations2 VARCHAR,
		PRIMARY KEY (run_id, pdb_id, chain, aa_pos1, aa_pos2)
	)`)
	return err
}
