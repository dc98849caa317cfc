package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SeedDevOptions controls the demo roster written by SeedDev.
type SeedDevOptions struct {
	// Identities to seed. Defaults to a three-person demo roster.
	Identities []string
}

var demoRoster = []string{"1001", "1002", "1003"}

// SeedDev writes a demo roster when the roster is empty.  Existing rosters
// are left untouched.
func SeedDev(ctx context.Context, conn *sql.DB, opt SeedDevOptions) error {
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM roster_entries;`).Scan(&n); err != nil {
		return fmt.Errorf("count roster: %w", err)
	}
	if n > 0 {
		return nil
	}

	ids := opt.Identities
	if len(ids) == 0 {
		ids = demoRoster
	}
	now := time.Now().UTC().UnixMilli()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO roster_columns(position, name) VALUES (0, 'id');`); err != nil {
		return fmt.Errorf("seed roster columns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO roster_meta(id, match_mode, updated_at_ms) VALUES (1, 'id', ?);`, now); err != nil {
		return fmt.Errorf("seed roster meta: %w", err)
	}
	for i, id := range ids {
		vals, _ := json.Marshal([]string{id})
		if _, err := tx.ExecContext(ctx, `
INSERT INTO roster_entries(position, identity, values_json, updated_at_ms)
VALUES (?, ?, ?, ?);`, i, id, string(vals), now); err != nil {
			return fmt.Errorf("seed roster entry %s: %w", id, err)
		}
	}
	return tx.Commit()
}
