package sqlite

import (
	"context"
	"database/sql"
	"time"

	"postcrafter/internal/storage"
)

const userColumns = `external_id, first_name, last_name, username, is_bot, prompt_tokens, completion_tokens, created_at`

func (d *DB) UpsertUser(ctx context.Context, externalID int64, profile storage.Profile) (*storage.User, error) {
	// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO users (external_id, first_name, last_name, username, is_bot, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET external_id = excluded.external_id
		RETURNING ` + userColumns

	row := d.db.QueryRowContext(ctx, query,
		externalID,
		profile.FirstName,
		profile.LastName,
		profile.Username,
		profile.IsBot,
		d.now().UnixNano(),
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, storage.Fail("upsert user", err)
	}
	return user, nil
}

func (d *DB) IncrementUsage(ctx context.Context, externalID int64, promptDelta, completionDelta int64) error {
	query := `
		UPDATE users
		SET prompt_tokens = prompt_tokens + ?, completion_tokens = completion_tokens + ?
		WHERE external_id = ?`
	_, err := d.db.ExecContext(ctx, query, promptDelta, completionDelta, externalID)
	return storage.Fail("increment usage", err)
}

func (d *DB) GetUser(ctx context.Context, externalID int64) (*storage.User, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Fail("get user", err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*storage.User, error) {
	user := &storage.User{}
	var createdAt int64
	if err := row.Scan(
		&user.ExternalID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.IsBot,
		&user.PromptTokens,
		&user.CompletionTokens,
		&createdAt,
	); err != nil {
		return nil, err
	}
	user.CreatedAt = time.Unix(0, createdAt)
	return user, nil
}
