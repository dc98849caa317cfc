package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// ensureImport guarantees a punch_imports row exists for imp.ID so the
// foreign key from punch_events is satisfied.  A repeated import ID adds
// to the existing row's record_count and must keep its match mode.
//
// Must be called inside an existing transaction.
func ensureImport(ctx context.Context, tx *sql.Tx, imp store.ImportRecord, count int, nowMs int64) error {
	match := imp.Match
	if match == "" {
		match = types.MatchByID
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO punch_imports(import_id, source, match_mode, record_count, imported_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(import_id) DO UPDATE SET
  record_count = punch_imports.record_count + excluded.record_count
WHERE punch_imports.match_mode = excluded.match_mode;
`, imp.ID, imp.Source, string(match), count, nowMs)
	if err != nil {
		return fmt.Errorf("ensureImport %s: %w", imp.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ensureImport %s: match mode differs from existing import", imp.ID)
	}
	return nil
}
