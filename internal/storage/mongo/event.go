package mongo

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postcrafter/internal/storage"
)

type eventDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ExternalID int64              `bson:"external_id"`
	Text       string             `bson:"text"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (e eventDoc) toEvent() *storage.Event {
	return &storage.Event{
		ID:         e.ID.Hex(),
		ExternalID: e.ExternalID,
		Text:       e.Text,
		CreatedAt:  e.CreatedAt,
	}
}

func (d *DB) RecordEvent(ctx context.Context, externalID int64, text string) (*storage.Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, storage.Fail("record event", storage.ErrEmptyText)
	}
	doc := eventDoc{
		ID:         primitive.NewObjectID(),
		ExternalID: externalID,
		Text:       text,
		// BSON dates carry milliseconds.
		CreatedAt: d.now().Truncate(time.Millisecond),
	}
	if _, err := d.events.InsertOne(ctx, doc); err != nil {
		return nil, storage.Fail("record event", err)
	}
	return doc.toEvent(), nil
}

func dayFilter(day time.Time) bson.M {
	start, end := storage.DayWindow(day)
	return bson.M{"$gte": start, "$lte": end}
}

func (d *DB) ListEventsForDay(ctx context.Context, externalID int64, day time.Time) ([]*storage.Event, error) {
	filter := bson.M{
		"external_id": externalID,
		"created_at":  dayFilter(day),
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := d.events.Find(ctx, filter, opts)
	if err != nil {
		return nil, storage.Fail("list events", err)
	}
	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storage.Fail("list events", err)
	}

	events := make([]*storage.Event, 0, len(docs))
	for _, doc := range docs {
		events = append(events, doc.toEvent())
	}
	return events, nil
}

func (d *DB) ListUsersWithEventsForDay(ctx context.Context, day time.Time) ([]int64, error) {
	values, err := d.events.Distinct(ctx, "external_id", bson.M{"created_at": dayFilter(day)})
	if err != nil {
		return nil, storage.Fail("list active users", err)
	}
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		switch id := v.(type) {
		case int64:
			ids = append(ids, id)
		case int32:
			ids = append(ids, int64(id))
		default:
			return nil, storage.Fail("list active users", errors.Errorf("unexpected external_id type %T", v))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (d *DB) Stats(ctx context.Context, day time.Time) (storage.Stats, error) {
	start, _ := storage.DayWindow(day)
	stats := storage.Stats{Date: start.Format("2006-01-02")}

	users, err := d.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return storage.Stats{}, storage.Fail("stats", err)
	}
	stats.Users = users

	cursor, err := d.users.Aggregate(ctx, []bson.M{
		{"$group": bson.M{
			"_id":               nil,
			"prompt_tokens":     bson.M{"$sum": "$prompt_tokens"},
			"completion_tokens": bson.M{"$sum": "$completion_tokens"},
		}},
	})
	if err != nil {
		return storage.Stats{}, storage.Fail("stats", err)
	}
	var sums []struct {
		PromptTokens     int64 `bson:"prompt_tokens"`
		CompletionTokens int64 `bson:"completion_tokens"`
	}
	if err := cursor.All(ctx, &sums); err != nil {
		return storage.Stats{}, storage.Fail("stats", err)
	}
	if len(sums) > 0 {
		stats.PromptTokens = sums[0].PromptTokens
		stats.CompletionTokens = sums[0].CompletionTokens
	}

	filter := bson.M{"created_at": dayFilter(day)}
	stats.EventsToday, err = d.events.CountDocuments(ctx, filter)
	if err != nil {
		return storage.Stats{}, storage.Fail("stats", err)
	}
	active, err := d.ListUsersWithEventsForDay(ctx, day)
	if err != nil {
		return storage.Stats{}, err
	}
	stats.ActiveUsersToday = int64(len(active))
	return stats, nil
}
