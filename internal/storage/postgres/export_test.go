package postgres

import "context"

func (d *DB) Truncate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `TRUNCATE users, events RESTART IDENTITY`)
	return err
}
