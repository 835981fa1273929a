// Package db opens the storage driver selected in the configuration.
package db

import (
	"context"

	"github.com/pkg/errors"

	"postcrafter/internal/config"
	"postcrafter/internal/storage"
	"postcrafter/internal/storage/mongo"
	"postcrafter/internal/storage/mysql"
	"postcrafter/internal/storage/postgres"
	"postcrafter/internal/storage/sqlite"
)

type migrator interface {
	storage.Store
	Migrate(ctx context.Context) error
}

// Open connects to the configured database, verifies connectivity and
// applies the schema. Any failure leaves nothing open.
func Open(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	var (
		s   migrator
		err error
	)
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		s, err = sqlite.New(cfg.DatabaseURL)
	case config.DriverPostgres:
		s, err = postgres.New(ctx, cfg.DatabaseURL)
	case config.DriverMySQL:
		s, err = mysql.New(cfg.DatabaseURL)
	case config.DriverMongo:
		s, err = mongo.New(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
	default:
		return nil, errors.Errorf("unknown database driver: %s", cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "failed to ping %s", cfg.DatabaseDriver)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	return s, nil
}
