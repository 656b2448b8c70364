// Package db stores outlines in a single SQLite file and implements
// engine.Store on top of it.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.uber.org/multierr"

	"github.com/dori/mindmap/internal/engine"
)

//go:embed migrations/*.sql
var schema embed.FS

// DB is an outline store. Every method takes the caller's context, which
// the engine bounds with its call timeout.
type DB struct {
	*sql.DB
	path string
}

var _ engine.Store = (*DB)(nil)

// DefaultPath is $XDG_DATA_HOME/mindmap/mindmap.db, with ~/.local/share
// standing in for an unset XDG_DATA_HOME.
func DefaultPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".mindmap", "mindmap.db")
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "mindmap", "mindmap.db")
}

// dsn turns on WAL, a busy timeout and foreign key enforcement. Cascading
// deletes of subtrees depend on the last one.
func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	return "file:" + path + "?" + q.Encode()
}

// Open opens the outline file at path, creating it and its directory when
// missing, and brings the schema up to date.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// SQLite has a single writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	store := &DB{DB: conn, path: path}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.upgrade(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("open %s: %w", path, err), conn.Close())
	}
	return store, nil
}

// upgrade applies every pending embedded migration. The provider is quiet
// unless built WithVerbose.
func (db *DB) upgrade(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	migrations, err := fs.Sub(schema, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, migrations)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Path is the file the store was opened on
func (db *DB) Path() string { return db.path }

// notFound reports a write that matched no row as engine.ErrNotFound
func notFound(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	switch {
	case err != nil:
		return err
	case n == 0:
		return fmt.Errorf("%s %s: %w", kind, id, engine.ErrNotFound)
	}
	return nil
}

// orNull maps a nil pointer to SQL NULL
func orNull[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
