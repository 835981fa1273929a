package mysql

import "context"

// Truncate empties both tables between test runs.
func (d *DB) Truncate(ctx context.Context) error {
	for _, table := range []string{"users", "events"} {
		if _, err := d.db.ExecContext(ctx, "TRUNCATE TABLE "+table); err != nil {
			return err
		}
	}
	return nil
}
