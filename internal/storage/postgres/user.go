package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"postcrafter/internal/storage"
)

const userColumns = `external_id, first_name, last_name, username, is_bot, prompt_tokens, completion_tokens, created_at`

func (d *DB) UpsertUser(ctx context.Context, externalID int64, profile storage.Profile) (*storage.User, error) {
	// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO users (external_id, first_name, last_name, username, is_bot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING ` + userColumns

	row := d.pool.QueryRow(ctx, query,
		externalID,
		profile.FirstName,
		profile.LastName,
		profile.Username,
		profile.IsBot,
		d.now(),
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, storage.Fail("upsert user", err)
	}
	return user, nil
}

func (d *DB) IncrementUsage(ctx context.Context, externalID int64, promptDelta, completionDelta int64) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE users
		SET prompt_tokens = prompt_tokens + $1, completion_tokens = completion_tokens + $2
		WHERE external_id = $3`,
		promptDelta, completionDelta, externalID,
	)
	return storage.Fail("increment usage", err)
}

func (d *DB) GetUser(ctx context.Context, externalID int64) (*storage.User, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Fail("get user", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*storage.User, error) {
	user := &storage.User{}
	if err := row.Scan(
		&user.ExternalID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.IsBot,
		&user.PromptTokens,
		&user.CompletionTokens,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return user, nil
}
