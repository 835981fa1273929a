// Package sqlstore holds the event queries shared by the database/sql drivers
// that use "?" placeholders and store timestamps as Unix nanoseconds.
package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"postcrafter/internal/storage"
)

// Events reads and writes the events table. Now stamps new rows.
type Events struct {
	DB  *sql.DB
	Now func() time.Time
}

func (e Events) RecordEvent(ctx context.Context, externalID int64, text string) (*storage.Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, storage.Fail("record event", storage.ErrEmptyText)
	}
	createdAt := e.Now()
	result, err := e.DB.ExecContext(ctx,
		`INSERT INTO events (external_id, text, created_at) VALUES (?, ?, ?)`,
		externalID, text, createdAt.UnixNano(),
	)
	if err != nil {
		return nil, storage.Fail("record event", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, storage.Fail("record event", err)
	}
	return &storage.Event{
		ID:         strconv.FormatInt(id, 10),
		ExternalID: externalID,
		Text:       text,
		CreatedAt:  createdAt,
	}, nil
}

func (e Events) ListEventsForDay(ctx context.Context, externalID int64, day time.Time) ([]*storage.Event, error) {
	start, end := storage.DayWindow(day)
	query := `
		SELECT id, external_id, text, created_at
		FROM events
		WHERE external_id = ? AND created_at BETWEEN ? AND ?
		ORDER BY created_at ASC, id ASC`

	rows, err := e.DB.QueryContext(ctx, query, externalID, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, storage.Fail("list events", err)
	}
	defer rows.Close()

	events := make([]*storage.Event, 0)
	for rows.Next() {
		var (
			id        int64
			createdAt int64
			ev        storage.Event
		)
		if err := rows.Scan(&id, &ev.ExternalID, &ev.Text, &createdAt); err != nil {
			return nil, storage.Fail("list events", err)
		}
		ev.ID = strconv.FormatInt(id, 10)
		ev.CreatedAt = time.Unix(0, createdAt)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Fail("list events", err)
	}
	return events, nil
}

func (e Events) ListUsersWithEventsForDay(ctx context.Context, day time.Time) ([]int64, error) {
	start, end := storage.DayWindow(day)
	rows, err := e.DB.QueryContext(ctx,
		`SELECT DISTINCT external_id FROM events WHERE created_at BETWEEN ? AND ? ORDER BY external_id`,
		start.UnixNano(), end.UnixNano(),
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

// DayStats fills the event half of storage.Stats for day. The user totals
// are left to the driver since summing differs between engines.
func (e Events) DayStats(ctx context.Context, day time.Time) (storage.Stats, error) {
	start, end := storage.DayWindow(day)
	stats := storage.Stats{Date: start.Format(time.DateOnly)}
	err := e.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT external_id) FROM events WHERE created_at BETWEEN ? AND ?`,
		start.UnixNano(), end.UnixNano(),
	).Scan(&stats.EventsToday, &stats.ActiveUsersToday)
	if err != nil {
		return storage.Stats{}, storage.Fail("stats", err)
	}
	return stats, nil
}
