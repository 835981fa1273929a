package sqlstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"postcrafter/internal/storage"
	"postcrafter/internal/storage/sqlstore"
	"postcrafter/internal/storage/storagetest"
)

func setupEvents(t *testing.T, clock *storagetest.Clock) sqlstore.Events {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id INTEGER NOT NULL,
		text        TEXT    NOT NULL,
		created_at  INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	return sqlstore.Events{DB: db, Now: clock.Now}
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.Local)
	clock := storagetest.NewClock(day.Add(8 * time.Hour))
	e := setupEvents(t, clock)

	_, err := e.RecordEvent(ctx, 1, "first")
	require.NoError(t, err)
	_, err = e.RecordEvent(ctx, 2, "other user")
	require.NoError(t, err)
	_, err = e.RecordEvent(ctx, 1, "second")
	require.NoError(t, err)
	clock.Set(day.Add(24 * time.Hour))
	_, err = e.RecordEvent(ctx, 3, "tomorrow")
	require.NoError(t, err)

	_, err = e.RecordEvent(ctx, 1, "   ")
	assert.ErrorIs(t, err, storage.ErrEmptyText)

	events, err := e.ListEventsForDay(ctx, 1, day.Add(23*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Text)
	assert.Equal(t, "second", events[1].Text)

	ids, err := e.ListUsersWithEventsForDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	stats, err := e.DayStats(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", stats.Date)
	assert.Equal(t, int64(3), stats.EventsToday)
	assert.Equal(t, int64(2), stats.ActiveUsersToday)
	assert.Zero(t, stats.Users)
}
