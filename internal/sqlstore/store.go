// Package sqlstore owns the SQLite schema and row-level operations for the
// persistence bridge. The schema's foreign keys are load-bearing: cascading
// delete of entity subtrees and their component rows is enforced here, not
// re-implemented by the engine.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite ships with foreign_keys off; every connection must opt in or the
// ON DELETE CASCADE clauses silently do nothing.
const schema = `
CREATE TABLE IF NOT EXISTS entity (
    id     INTEGER PRIMARY KEY,
    parent INTEGER REFERENCES entity(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entity_parent ON entity(parent);

CREATE TABLE IF NOT EXISTS component (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS entity_component (
    entity    INTEGER NOT NULL REFERENCES entity(id) ON DELETE CASCADE,
    component INTEGER NOT NULL REFERENCES component(id) ON DELETE CASCADE,
    data      TEXT NOT NULL,
    PRIMARY KEY (entity, component)
);
`

// Options configures the store connection.
type Options struct {
	// Path is the database file; empty or ":memory:" opens an in-memory
	// database (capped to a single connection so every caller sees the
	// same one).
	Path string
	// BusyTimeout in milliseconds to wait on a locked database.
	BusyTimeout int
	// WAL enables write-ahead logging for better concurrency on file
	// databases.
	WAL bool
	// MaxOpenConns caps the pool; 0 keeps the driver default.
	MaxOpenConns int
}

// Store is a thin handle over database/sql; all row operations live in
// queries.go and run against a transaction owned by the engine.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open connects, applies pragmas via the DSN so they hold for every pooled
// connection, and creates the schema.
func Open(opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn(opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if memory(opts.Path) {
		// Separate connections to :memory: are separate databases.
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Debug("sqlite store opened", zap.String("path", opts.Path))
	return &Store{db: db, log: log}, nil
}

func dsn(opts Options) string {
	path := opts.Path
	if path == "" {
		path = ":memory:"
	}
	params := []string{"_pragma=foreign_keys(1)"}
	if opts.BusyTimeout > 0 {
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", opts.BusyTimeout))
	}
	if opts.WAL && !memory(path) {
		params = append(params, "_pragma=journal_mode(wal)")
	}
	return "file:" + path + "?" + strings.Join(params, "&")
}

func memory(path string) bool {
	return path == "" || path == ":memory:"
}

// Begin opens the transactional scope an engine call owns for its duration.
func (s *Store) Begin(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// DB exposes the underlying handle for read-only tooling and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}
