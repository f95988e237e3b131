package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrInvalidDatabase reports a file that SQLite refuses to open or read.
var ErrInvalidDatabase = errors.New("not a valid SQLite database")

// DB wraps the sql.DB for connection management
type DB struct {
	conn *sql.DB
}

// New creates a new DB connection
func New(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &DB{conn: conn}, nil
}

// OpenReadOnly opens an existing database file without creating it and
// without taking write locks.
func OpenReadOnly(ctx context.Context, path string) (*DB, error) {
	return New(ctx, readOnlyDSN(path))
}

// Close closes the DB connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Exec executes a query
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// Tables lists the names of all tables in the database. SQLite reads the
// file header on the first query, so this is where a non-database fails.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// Validate opens path read-only, lists its tables and closes it again.
// Any failure is reported as ErrInvalidDatabase. Only the container format
// is checked; the schema is not.
func Validate(ctx context.Context, path string) ([]string, error) {
	d, err := OpenReadOnly(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}

	tables, err := d.Tables(ctx)
	closeErr := d.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDatabase, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("%w: close: %v", ErrInvalidDatabase, closeErr)
	}
	return tables, nil
}

func readOnlyDSN(path string) string {
	return "file:" + filepath.ToSlash(path) + "?mode=ro"
}
