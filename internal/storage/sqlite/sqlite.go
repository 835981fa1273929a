package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"postcrafter/internal/storage"
)

// DB is a SQLite backed storage.Store.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*DB)

// WithClock overrides the clock used to stamp new events.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// New opens the database at path. ":memory:" opens a private in-memory database.
func New(path string, opts ...Option) (*DB, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to ensure database dir")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite")
	}
	// One connection keeps ":memory:" shared and serializes writers.
	db.SetMaxOpenConns(1)

	d := &DB{db: db, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			external_id       INTEGER PRIMARY KEY,
			first_name        TEXT    NOT NULL DEFAULT '',
			last_name         TEXT    NOT NULL DEFAULT '',
			username          TEXT    NOT NULL DEFAULT '',
			is_bot            INTEGER NOT NULL DEFAULT 0,
			prompt_tokens     INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			created_at        INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			external_id INTEGER NOT NULL,
			text        TEXT    NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_external_id_created_at ON events(external_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
	}
	for i, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration %d failed", i)
		}
	}
	return nil
}

var _ storage.Store = (*DB)(nil)
