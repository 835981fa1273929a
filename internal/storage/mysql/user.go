package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"postcrafter/internal/storage"
)

const userColumns = `external_id, first_name, last_name, username, is_bot, prompt_tokens, completion_tokens, created_at`

// UpsertUser relies on profile fields never being updated: once the no-op
// insert has run, reading the row back always sees the first writer's data.
func (d *DB) UpsertUser(ctx context.Context, externalID int64, profile storage.Profile) (*storage.User, error) {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (external_id, first_name, last_name, username, is_bot, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE external_id = external_id`,
		externalID,
		profile.FirstName,
		profile.LastName,
		profile.Username,
		profile.IsBot,
		d.now().UnixNano(),
	)
	if err != nil {
		return nil, storage.Fail("upsert user", err)
	}

	user, err := d.GetUser(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, storage.Fail("upsert user", errors.New("user vanished after insert"))
	}
	return user, nil
}

func (d *DB) IncrementUsage(ctx context.Context, externalID int64, promptDelta, completionDelta int64) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE users
		SET prompt_tokens = prompt_tokens + ?, completion_tokens = completion_tokens + ?
		WHERE external_id = ?`,
		promptDelta, completionDelta, externalID,
	)
	return storage.Fail("increment usage", err)
}

func (d *DB) GetUser(ctx context.Context, externalID int64) (*storage.User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)

	user := &storage.User{}
	var createdAt int64
	err := row.Scan(
		&user.ExternalID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.IsBot,
		&user.PromptTokens,
		&user.CompletionTokens,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Fail("get user", err)
	}
	user.CreatedAt = time.Unix(0, createdAt)
	return user, nil
}
