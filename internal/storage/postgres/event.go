package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"postcrafter/internal/storage"
)

func (d *DB) RecordEvent(ctx context.Context, externalID int64, text string) (*storage.Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, storage.Fail("record event", storage.ErrEmptyText)
	}
	ev := &storage.Event{ExternalID: externalID, Text: text}
	var id int64
	err := d.pool.QueryRow(ctx,
		`INSERT INTO events (external_id, text, created_at) VALUES ($1, $2, $3) RETURNING id, created_at`,
		externalID, text, d.now(),
	).Scan(&id, &ev.CreatedAt)
	if err != nil {
		return nil, storage.Fail("record event", err)
	}
	ev.ID = strconv.FormatInt(id, 10)
	return ev, nil
}

func (d *DB) ListEventsForDay(ctx context.Context, externalID int64, day time.Time) ([]*storage.Event, error) {
	start, end := storage.DayWindow(day)
	rows, err := d.pool.Query(ctx, `
		SELECT id, external_id, text, created_at
		FROM events
		WHERE external_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at ASC, id ASC`,
		externalID, start, end,
	)
	if err != nil {
		return nil, storage.Fail("list events", err)
	}
	defer rows.Close()

	events := make([]*storage.Event, 0)
	for rows.Next() {
		var (
			id int64
			ev storage.Event
		)
		if err := rows.Scan(&id, &ev.ExternalID, &ev.Text, &ev.CreatedAt); err != nil {
			return nil, storage.Fail("list events", err)
		}
		ev.ID = strconv.FormatInt(id, 10)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Fail("list events", err)
	}
	return events, nil
}

func (d *DB) ListUsersWithEventsForDay(ctx context.Context, day time.Time) ([]int64, error) {
	start, end := storage.DayWindow(day)
	rows, err := d.pool.Query(ctx,
		`SELECT DISTINCT external_id FROM events WHERE created_at BETWEEN $1 AND $2 ORDER BY external_id`,
		start, end,
	)
	if err != nil {
		return nil, storage.Fail("list active users", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storage.Fail("list active users", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Fail("list active users", err)
	}
	return ids, nil
}

func (d *DB) Stats(ctx context.Context, day time.Time) (storage.Stats, error) {
	start, end := storage.DayWindow(day)
	stats := storage.Stats{Date: start.Format("2006-01-02")}

	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(prompt_tokens), 0)::BIGINT,
		       COALESCE(SUM(completion_tokens), 0)::BIGINT
		FROM users`,
	).Scan(&stats.Users, &stats.PromptTokens, &stats.CompletionTokens)
	if err != nil {
		return storage.Stats{}, storage.Fail("stats", err)
	}

	err = d.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT external_id) FROM events WHERE created_at BETWEEN $1 AND $2`,
		start, end,
	).Scan(&stats.EventsToday, &stats.ActiveUsersToday)
	if err != nil {
		return storage.Stats{}, storage.Fail("stats", err)
	}
	return stats, nil
}
