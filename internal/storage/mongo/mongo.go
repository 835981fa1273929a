package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postcrafter/internal/storage"
)

// DB is a MongoDB backed storage.Store.
type DB struct {
	client *mongo.Client
	users  *mongo.Collection
	events *mongo.Collection
	now    func() time.Time
}

type Option func(*DB)

// WithClock overrides the clock used to stamp new events.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// New connects to uri and uses the given database. The driver connects
// lazily; call Ping to verify connectivity.
func New(ctx context.Context, uri, database string, opts ...Option) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongo")
	}
	db := client.Database(database)
	d := &DB{
		client: client,
		users:  db.Collection("users"),
		events: db.Collection("events"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// Migrate ensures the indexes exist.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "external_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create users index")
	}
	_, err = d.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "external_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create events indexes")
	}
	return nil
}

var _ storage.Store = (*DB)(nil)
