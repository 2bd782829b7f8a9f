// Package db provides the relational store behind the remote persistence
// gateway. Schema migrations are embedded and applied per dialect.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/randalmurphal/plank/internal/config"
	"github.com/randalmurphal/plank/internal/db/driver"
)

// SchemaCore is the schema type of the plank tables.
const SchemaCore = "core"

//go:embed schema/*.sql schema/postgres/*.sql
var schemaFS embed.FS

// embedFSAdapter wraps embed.FS to implement driver.SchemaFS.
type embedFSAdapter struct {
	fs embed.FS
}

func (e *embedFSAdapter) ReadDir(name string) ([]driver.DirEntry, error) {
	entries, err := e.fs.ReadDir(name)
	if err != nil {
		return nil, err
	}
	result := make([]driver.DirEntry, len(entries))
	for i, entry := range entries {
		result[i] = dirEntryAdapter{entry}
	}
	return result, nil
}

func (e *embedFSAdapter) ReadFile(name string) ([]byte, error) {
	return e.fs.ReadFile(name)
}

type dirEntryAdapter struct {
	fs.DirEntry
}

// DB wraps a database connection with driver abstraction.
type DB struct {
	driver driver.Driver
	path   string
}

// Open opens a SQLite database at the given path.
// Creates the parent directory if it doesn't exist.
func Open(path string) (*DB, error) {
	return OpenWithDialect(path, driver.DialectSQLite)
}

// OpenInMemory opens an in-memory SQLite database.
// Each call creates a new isolated database.
func OpenInMemory() (*DB, error) {
	drv, err := driver.New(driver.DialectSQLite)
	if err != nil {
		return nil, err
	}
	if err := drv.Open(driver.MemoryDSN); err != nil {
		return nil, err
	}
	return &DB{driver: drv, path: driver.MemoryDSN}, nil
}

// OpenWithDialect opens a database with a specific dialect.
func OpenWithDialect(dsn string, dialect driver.Dialect) (*DB, error) {
	if dialect == driver.DialectSQLite && dsn != driver.MemoryDSN {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	drv, err := driver.New(dialect)
	if err != nil {
		return nil, err
	}

	if err := drv.Open(dsn); err != nil {
		return nil, err
	}

	return &DB{driver: drv, path: dsn}, nil
}

// OpenFromConfig opens and migrates the database described by cfg.
func OpenFromConfig(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	dialect, err := driver.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}
	d, err := OpenWithDialect(cfg.DSN(), dialect)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.driver.Close()
}

// Path returns the database DSN/path.
func (d *DB) Path() string {
	return d.path
}

// Driver returns the underlying driver for dialect-specific operations.
func (d *DB) Driver() driver.Driver {
	return d.driver
}

// Dialect returns the database dialect.
func (d *DB) Dialect() driver.Dialect {
	return d.driver.Dialect()
}

// Migrate applies the embedded core schema.
func (d *DB) Migrate(ctx context.Context) error {
	adapter := &embedFSAdapter{fs: schemaFS}
	if err := d.driver.Migrate(ctx, adapter, SchemaCore); err != nil {
		return fmt.Errorf("migrate %s: %w", d.Dialect(), err)
	}
	return nil
}

// ExecContext executes a query without returning rows. Placeholders are
// written as ? and rebound for the dialect.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.driver.Exec(ctx, driver.Rebind(d.driver, query), args...)
}

// QueryContext executes a query that returns rows.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.driver.Query(ctx, driver.Rebind(d.driver, query), args...)
}

// QueryRowContext executes a query that returns at most one row.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.driver.QueryRow(ctx, driver.Rebind(d.driver, query), args...)
}

// Classify maps a driver error onto a driver.ErrorKind.
func (d *DB) Classify(err error) driver.ErrorKind {
	return d.driver.Classify(err)
}
