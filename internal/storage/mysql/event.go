package mysql

import (
	"context"
	"time"

	"postcrafter/internal/storage"
	"postcrafter/internal/storage/sqlstore"
)

func (d *DB) events() sqlstore.Events {
	return sqlstore.Events{DB: d.db, Now: d.now}
}

func (d *DB) RecordEvent(ctx context.Context, externalID int64, text string) (*storage.Event, error) {
	return d.events().RecordEvent(ctx, externalID, text)
}

func (d *DB) ListEventsForDay(ctx context.Context, externalID int64, day time.Time) ([]*storage.Event, error) {
	return d.events().ListEventsForDay(ctx, externalID, day)
}

func (d *DB) ListUsersWithEventsForDay(ctx context.Context, day time.Time) ([]int64, error) {
	return d.events().ListUsersWithEventsForDay(ctx, day)
}

func (d *DB) Stats(ctx context.Context, day time.Time) (storage.Stats, error) {
	stats, err := d.events().DayStats(ctx, day)
	if err != nil {
		return storage.Stats{}, err
	}
	err = d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), CAST(COALESCE(SUM(prompt_tokens), 0) AS SIGNED), CAST(COALESCE(SUM(completion_tokens), 0) AS SIGNED) FROM users`,
	).Scan(&stats.Users, &stats.PromptTokens, &stats.CompletionTokens)
	if err != nil {
		return storage.Stats{}, storage.Fail("stats", err)
	}
	return stats, nil
}
