// Package store is the SQLite persistence layer for the dependency
// graph: identified nodes, typed edges, the edge-type catalogue, and
// namespace membership.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is recorded in schema_migrations on Migrate.
const schemaVersion = 1

// Store is the SQLite data access layer. Writes serialize through a
// single writer mutex; reads go straight to the connection pool and may
// proceed in parallel with a write (WAL mode).
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
	version versionCounter

	// createPlaceholders controls edge upserts that reference an
	// unknown endpoint: when true a placeholder node (kind taken from
	// the parsed identifier, Unknown only when it does not parse) is
	// created in the same transaction, otherwise the upsert fails.
	placeholderMu      sync.RWMutex
	createPlaceholders bool
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for read queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SetCreatePlaceholders switches the unknown-endpoint policy for edge
// upserts (the dual-node mode switch).
func (s *Store) SetCreatePlaceholders(on bool) {
	s.placeholderMu.Lock()
	s.createPlaceholders = on
	s.placeholderMu.Unlock()
}

// CreatePlaceholders reports the current unknown-endpoint policy.
func (s *Store) CreatePlaceholders() bool {
	s.placeholderMu.RLock()
	defer s.placeholderMu.RUnlock()
	return s.createPlaceholders
}

// Migrate creates all tables and indexes. Idempotent: re-opening an
// existing store never fails on existing tables.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if _, err := s.db.Exec(
		"INSERT OR IGNORE INTO schema_migrations (version) VALUES (?)", schemaVersion,
	); err != nil {
		return fmt.Errorf("migrate: record version: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version         INTEGER PRIMARY KEY,
  applied_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS graph_meta (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE TABLE IF NOT EXISTS nodes (
  id              INTEGER PRIMARY KEY,
  identifier      TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  name            TEXT NOT NULL,
  source_file     TEXT NOT NULL,
  language        TEXT,
  semantic_tags   TEXT NOT NULL DEFAULT '[]',
  metadata        TEXT NOT NULL DEFAULT '{}',
  start_line      INTEGER,
  start_col       INTEGER
);

CREATE TABLE IF NOT EXISTS edge_types (
  name            TEXT PRIMARY KEY,
  parent          TEXT REFERENCES edge_types(name),
  is_directed     BOOLEAN NOT NULL DEFAULT TRUE,
  is_transitive   BOOLEAN NOT NULL DEFAULT FALSE,
  is_inheritable  BOOLEAN NOT NULL DEFAULT FALSE,
  description     TEXT
);

CREATE TABLE IF NOT EXISTS edges (
  id              INTEGER PRIMARY KEY,
  from_node       INTEGER NOT NULL REFERENCES nodes(id),
  to_node         INTEGER NOT NULL REFERENCES nodes(id),
  type            TEXT NOT NULL REFERENCES edge_types(name),
  properties      TEXT NOT NULL DEFAULT '{}',
  properties_digest TEXT NOT NULL,
  weight          REAL NOT NULL DEFAULT 1,
  source_file     TEXT,
  derived         BOOLEAN NOT NULL DEFAULT FALSE,
  UNIQUE(from_node, to_node, type, properties_digest)
);

CREATE TABLE IF NOT EXISTS namespace_members (
  namespace       TEXT NOT NULL,
  node_id         INTEGER NOT NULL REFERENCES nodes(id),
  included_by     TEXT,
  UNIQUE(namespace, node_id)
);

CREATE INDEX IF NOT EXISTS idx_nodes_kind_language ON nodes(kind, language);
CREATE INDEX IF NOT EXISTS idx_nodes_source_file ON nodes(source_file);
CREATE INDEX IF NOT EXISTS idx_edges_type_from ON edges(type, from_node);
CREATE INDEX IF NOT EXISTS idx_edges_type_to ON edges(type, to_node);
CREATE INDEX IF NOT EXISTS idx_namespace_members ON namespace_members(namespace, node_id);
`

// GetMetadata reads a value from graph_meta. Returns "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM graph_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, nil
}

// SetMetadata writes a key/value pair to graph_meta.
func (s *Store) SetMetadata(key, value string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.Exec(
		"INSERT INTO graph_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// WithTransaction runs body inside a transaction holding the writer
// lock. The body either fully applies or is discarded.
func (s *Store) WithTransaction(body func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("with transaction: begin: %w", err)
	}
	defer tx.Rollback()

	if err := body(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("with transaction: commit: %w", err)
	}
	s.version.bump()
	return nil
}
