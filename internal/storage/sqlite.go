// Package storage owns the single process-wide SQLite handle the protocol
// server executes against.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DB wraps the embedded database handle. At most one DB is open per server;
// the pool is capped at a single connection so statement execution is
// serialized and changes()/last_insert_rowid() queries observe the statement
// that just ran on the same connection.
type DB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite file at path in WAL journal
// mode with a bounded busy-timeout.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: pragma %q: %w", p, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	logger.Debug("storage: database open", "path", path)
	return &DB{db: db, path: path, logger: logger}, nil
}

// Conn checks the single pooled connection out for one pipeline request.
// Callers must Close it to return it to the pool.
func (d *DB) Conn(ctx context.Context) (*sql.Conn, error) {
	return d.db.Conn(ctx)
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}
