package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"postcrafter/internal/storage"
	"postcrafter/internal/storage/postgres"
	"postcrafter/internal/storage/storagetest"
)

func TestDriver(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("postcrafter"),
		tcpostgres.WithUsername("postcrafter"),
		tcpostgres.WithPassword("postcrafter"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storagetest.Run(t, func(t *testing.T, now func() time.Time) storage.Store {
		t.Helper()
		db, err := postgres.New(ctx, url, postgres.WithClock(now))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		require.NoError(t, db.Ping(ctx))
		require.NoError(t, db.Migrate(ctx))
		require.NoError(t, db.Truncate(ctx))
		return db
	})
}
