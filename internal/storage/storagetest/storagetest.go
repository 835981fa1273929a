// Package storagetest holds the behaviour every storage driver must share.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcrafter/internal/storage"
)

// Clock is a settable clock handed to drivers under test.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Opener returns a fresh, migrated and empty store stamping events with now.
type Opener func(t *testing.T, now func() time.Time) storage.Store

// Run executes the shared driver suite.
func Run(t *testing.T, open Opener) {
	day := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.Local)

	t.Run("UpsertUserInsertsOnlyWhenAbsent", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, NewClock(day.Add(time.Hour)).Now)

		first, err := s.UpsertUser(ctx, 42, storage.Profile{FirstName: "Ada", LastName: "L", Username: "ada"})
		require.NoError(t, err)
		assert.Equal(t, int64(42), first.ExternalID)
		assert.Equal(t, "Ada", first.FirstName)
		assert.Zero(t, first.PromptTokens)
		assert.Zero(t, first.CompletionTokens)

		require.NoError(t, s.IncrementUsage(ctx, 42, 10, 5))

		second, err := s.UpsertUser(ctx, 42, storage.Profile{FirstName: "Changed", Username: "other", IsBot: true})
		require.NoError(t, err)
		assert.Equal(t, "Ada", second.FirstName)
		assert.Equal(t, "L", second.LastName)
		assert.Equal(t, "ada", second.Username)
		assert.False(t, second.IsBot)
		assert.Equal(t, int64(10), second.PromptTokens)
		assert.Equal(t, int64(5), second.CompletionTokens)
	})

	t.Run("IncrementUsageIsAtomic", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, NewClock(day).Now)

		_, err := s.UpsertUser(ctx, 7, storage.Profile{FirstName: "Bob"})
		require.NoError(t, err)
		require.NoError(t, s.IncrementUsage(ctx, 7, 3, 4))

		const workers = 20
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					errs <- s.IncrementUsage(ctx, 7, 11, 13)
				} else {
					errs <- s.IncrementUsage(ctx, 7, 17, 19)
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		user, err := s.GetUser(ctx, 7)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, int64(3+10*11+10*17), user.PromptTokens)
		assert.Equal(t, int64(4+10*13+10*19), user.CompletionTokens)
	})

	t.Run("IncrementUsageForMissingUserIsNoop", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, NewClock(day).Now)

		require.NoError(t, s.IncrementUsage(ctx, 404, 1, 1))
		user, err := s.GetUser(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("RecordEventRejectsEmptyText", func(t *testing.T) {
		s := open(t, NewClock(day).Now)

		_, err := s.RecordEvent(context.Background(), 1, "   ")
		require.Error(t, err)
		var perr *storage.PersistenceError
		assert.True(t, errors.As(err, &perr))
		assert.ErrorIs(t, err, storage.ErrEmptyText)
	})

	t.Run("ListEventsForDayKeepsChronologicalOrder", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock(day.Add(9 * time.Hour))
		s := open(t, clock.Now)

		texts := []string{"Met client A", "Shipped feature B", "Wrote docs"}
		for i, text := range texts {
			clock.Set(day.Add(time.Duration(9+i) * time.Hour))
			ev, err := s.RecordEvent(ctx, 1, text)
			require.NoError(t, err)
			assert.NotEmpty(t, ev.ID)
			assert.Equal(t, text, ev.Text)
		}
		// Same instant as the last one: insertion order breaks the tie.
		_, err := s.RecordEvent(ctx, 1, "Tied")
		require.NoError(t, err)

		// Another user on the same day and the same user on other days.
		_, err = s.RecordEvent(ctx, 2, "Not mine")
		require.NoError(t, err)
		clock.Set(day.Add(-time.Millisecond))
		_, err = s.RecordEvent(ctx, 1, "Yesterday")
		require.NoError(t, err)
		clock.Set(day.AddDate(0, 0, 1))
		_, err = s.RecordEvent(ctx, 1, "Tomorrow")
		require.NoError(t, err)

		events, err := s.ListEventsForDay(ctx, 1, day.Add(15*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{"Met client A", "Shipped feature B", "Wrote docs", "Tied"}, eventTexts(events))
		for _, ev := range events {
			assert.Equal(t, int64(1), ev.ExternalID)
		}
	})

	t.Run("ListEventsForDayIncludesBothEnds", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock(day)
		s := open(t, clock.Now)

		_, err := s.RecordEvent(ctx, 1, "midnight")
		require.NoError(t, err)
		clock.Set(day.Add(24*time.Hour - time.Millisecond))
		_, err = s.RecordEvent(ctx, 1, "last millisecond")
		require.NoError(t, err)

		events, err := s.ListEventsForDay(ctx, 1, day)
		require.NoError(t, err)
		assert.Equal(t, []string{"midnight", "last millisecond"}, eventTexts(events))
	})

	t.Run("ListEventsForEmptyDay", func(t *testing.T) {
		s := open(t, NewClock(day).Now)

		events, err := s.ListEventsForDay(context.Background(), 1, day)
		require.NoError(t, err)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	})

	t.Run("ListUsersWithEventsForDay", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock(day.Add(time.Hour))
		s := open(t, clock.Now)

		for _, id := range []int64{3, 1, 3} {
			_, err := s.RecordEvent(ctx, id, "x")
			require.NoError(t, err)
		}
		clock.Set(day.AddDate(0, 0, 1))
		_, err := s.RecordEvent(ctx, 9, "later")
		require.NoError(t, err)

		ids, err := s.ListUsersWithEventsForDay(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3}, ids)
	})

	t.Run("Stats", func(t *testing.T) {
		ctx := context.Background()
		s := open(t, NewClock(day.Add(time.Hour)).Now)

		_, err := s.UpsertUser(ctx, 1, storage.Profile{FirstName: "A"})
		require.NoError(t, err)
		_, err = s.UpsertUser(ctx, 2, storage.Profile{FirstName: "B"})
		require.NoError(t, err)
		require.NoError(t, s.IncrementUsage(ctx, 1, 100, 50))
		require.NoError(t, s.IncrementUsage(ctx, 2, 1, 2))
		for _, id := range []int64{1, 1, 2} {
			_, err := s.RecordEvent(ctx, id, "e")
			require.NoError(t, err)
		}

		stats, err := s.Stats(ctx, day)
		require.NoError(t, err)
		assert.Equal(t, "2024-03-14", stats.Date)
		assert.Equal(t, int64(2), stats.Users)
		assert.Equal(t, int64(3), stats.EventsToday)
		assert.Equal(t, int64(2), stats.ActiveUsersToday)
		assert.Equal(t, int64(101), stats.PromptTokens)
		assert.Equal(t, int64(52), stats.CompletionTokens)
	})
}

func eventTexts(events []*storage.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Text)
	}
	return out
}
