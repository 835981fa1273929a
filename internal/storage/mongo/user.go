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

type userDoc struct {
	ExternalID       int64     `bson:"external_id"`
	FirstName        string    `bson:"first_name"`
	LastName         string    `bson:"last_name"`
	Username         string    `bson:"username"`
	IsBot            bool      `bson:"is_bot"`
	PromptTokens     int64     `bson:"prompt_tokens"`
	CompletionTokens int64     `bson:"completion_tokens"`
	CreatedAt        time.Time `bson:"created_at"`
}

func (u userDoc) toUser() *storage.User {
	return &storage.User{
		ExternalID:       u.ExternalID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Username:         u.Username,
		IsBot:            u.IsBot,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		CreatedAt:        u.CreatedAt,
	}
}

func (d *DB) UpsertUser(ctx context.Context, externalID int64, profile storage.Profile) (*storage.User, error) {
	update := bson.M{
		"$setOnInsert": bson.M{
			"first_name":        profile.FirstName,
			"last_name":         profile.LastName,
			"username":          profile.Username,
			"is_bot":            profile.IsBot,
			"prompt_tokens":     int64(0),
			"completion_tokens": int64(0),
			"created_at":        d.now(),
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc userDoc
	err := d.users.FindOneAndUpdate(ctx, bson.M{"external_id": externalID}, update, opts).Decode(&doc)
	if err != nil {
		return nil, storage.Fail("upsert user", err)
	}
	return doc.toUser(), nil
}

func (d *DB) IncrementUsage(ctx context.Context, externalID int64, promptDelta, completionDelta int64) error {
	_, err := d.users.UpdateOne(ctx,
		bson.M{"external_id": externalID},
		bson.M{"$inc": bson.M{
			"prompt_tokens":     promptDelta,
			"completion_tokens": completionDelta,
		}},
	)
	return storage.Fail("increment usage", err)
}

func (d *DB) GetUser(ctx context.Context, externalID int64) (*storage.User, error) {
	var doc userDoc
	err := d.users.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Fail("get user", err)
	}
	return doc.toUser(), nil
}
