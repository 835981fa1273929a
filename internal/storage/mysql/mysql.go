// Package mysql is the MySQL storage driver.
package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"postcrafter/internal/storage"
)

// DB is a MySQL backed storage.Store. Timestamps are stored as Unix
// nanoseconds so the DSN does not need parseTime.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*DB)

func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// New opens a pool for dsn, e.g. "user:pass@tcp(localhost:3306)/postcrafter".
func New(dsn string, opts ...Option) (*DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open mysql")
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

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

func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			external_id       BIGINT       NOT NULL PRIMARY KEY,
			first_name        VARCHAR(255) NOT NULL DEFAULT '',
			last_name         VARCHAR(255) NOT NULL DEFAULT '',
			username          VARCHAR(255) NOT NULL DEFAULT '',
			is_bot            BOOLEAN      NOT NULL DEFAULT FALSE,
			prompt_tokens     BIGINT       NOT NULL DEFAULT 0,
			completion_tokens BIGINT       NOT NULL DEFAULT 0,
			created_at        BIGINT       NOT NULL
		) DEFAULT CHARSET = utf8mb4`,
		`CREATE TABLE IF NOT EXISTS events (
			id          BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			external_id BIGINT NOT NULL,
			text        TEXT   NOT NULL,
			created_at  BIGINT NOT NULL,
			INDEX idx_events_external_id_created_at (external_id, created_at),
			INDEX idx_events_created_at (created_at)
		) DEFAULT CHARSET = utf8mb4`,
	}
	for i, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration %d failed", i)
		}
	}
	return nil
}

var _ storage.Store = (*DB)(nil)
