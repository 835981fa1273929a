package storage

import (
	"context"
	"time"
)

// User is a chat participant. The profile fields are written once, on first
// contact; only the usage counters change afterwards.
type User struct {
	ExternalID       int64     `json:"external_id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Username         string    `json:"username"`
	IsBot            bool      `json:"is_bot"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// Profile carries the fields taken from the transport on first contact.
type Profile struct {
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
}

// Event is a single free-text entry sent by a user. Events are immutable.
type Event struct {
	ID         string    `json:"id"`
	ExternalID int64     `json:"external_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats is a snapshot served by the status API.
type Stats struct {
	Date             string `json:"date"`
	Users            int64  `json:"users"`
	EventsToday      int64  `json:"events_today"`
	ActiveUsersToday int64  `json:"active_users_today"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
}

// UserStore persists chat participants and their usage counters.
type UserStore interface {
	// UpsertUser inserts the user if absent and returns the stored record.
	// An existing record is returned unchanged.
	UpsertUser(ctx context.Context, externalID int64, profile Profile) (*User, error)
	// IncrementUsage atomically adds the deltas to the stored counters.
	// It is a no-op when the user does not exist.
	IncrementUsage(ctx context.Context, externalID int64, promptDelta, completionDelta int64) error
	// GetUser returns nil, nil when the user does not exist.
	GetUser(ctx context.Context, externalID int64) (*User, error)
}

// EventStore persists events.
type EventStore interface {
	RecordEvent(ctx context.Context, externalID int64, text string) (*Event, error)
	// ListEventsForDay returns the user's events of the local calendar day
	// containing day, oldest first. It never returns an error for an empty day.
	ListEventsForDay(ctx context.Context, externalID int64, day time.Time) ([]*Event, error)
	// ListUsersWithEventsForDay returns ids of users that recorded at least
	// one event on the local calendar day containing day.
	ListUsersWithEventsForDay(ctx context.Context, day time.Time) ([]int64, error)
}

// Store is implemented by every database driver.
type Store interface {
	UserStore
	EventStore
	Stats(ctx context.Context, day time.Time) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// DayWindow returns the inclusive bounds of the calendar day containing day
// in the server's local time zone.
func DayWindow(day time.Time) (start, end time.Time) {
	d := day.In(time.Local)
	start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}
