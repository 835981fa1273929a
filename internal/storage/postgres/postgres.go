package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"postcrafter/internal/storage"
)

// DB is a Postgres backed storage.Store.
type DB struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

type Option func(*DB)

// WithClock overrides the clock used to stamp new events.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// New connects to the database at url. The pool connects lazily; call Ping to
// verify connectivity.
func New(ctx context.Context, url string, opts ...Option) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse postgres url")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}
	d := &DB{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *DB) Close() error {
	d.pool.Close()
	return nil
}

// Migrate creates the schema if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			external_id       BIGINT      PRIMARY KEY,
			first_name        TEXT        NOT NULL DEFAULT '',
			last_name         TEXT        NOT NULL DEFAULT '',
			username          TEXT        NOT NULL DEFAULT '',
			is_bot            BOOLEAN     NOT NULL DEFAULT FALSE,
			prompt_tokens     BIGINT      NOT NULL DEFAULT 0,
			completion_tokens BIGINT      NOT NULL DEFAULT 0,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id          BIGSERIAL   PRIMARY KEY,
			external_id BIGINT      NOT NULL,
			text        TEXT        NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_external_id_created_at ON events(external_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
	}
	for i, stmt := range stmts {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration %d failed", i)
		}
	}
	return nil
}

var _ storage.Store = (*DB)(nil)
