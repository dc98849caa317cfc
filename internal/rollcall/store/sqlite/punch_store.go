package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/rollcall/internal/db"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

type PunchStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewPunchStore(db *sql.DB, writer *dbpkg.Worker) *PunchStore {
	return &PunchStore{db: db, writer: writer}
}

func (s *PunchStore) AppendPunches(ctx context.Context, imp store.ImportRecord, recs []store.PunchRecord) error {
	imp.ID = strings.TrimSpace(imp.ID)
	if imp.ID == "" {
		return fmt.Errorf("AppendPunches: empty import id")
	}
	if imp.ImportedAt.IsZero() {
		imp.ImportedAt = time.Now().UTC()
	}
	nowMs := imp.ImportedAt.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := ensureImport(ctx, tx, imp, len(recs), nowMs); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO punch_events(
  import_id, identity, first_name, last_name, kind, door, occurred_at_ms, received_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`)
		if err != nil {
			return fmt.Errorf("AppendPunches prepare: %w", err)
		}
		defer stmt.Close()

		for _, r := range recs {
			if _, err := stmt.ExecContext(ctx,
				imp.ID, r.Identity, r.FirstName, r.LastName, r.Kind, r.Door,
				r.OccurredAt.UTC().UnixMilli(), nowMs,
			); err != nil {
				return fmt.Errorf("AppendPunches insert: %w", err)
			}
		}
		return nil
	})
}

func (s *PunchStore) ListPunches(ctx context.Context, from, to time.Time) ([]store.PunchRecord, error) {
	q := `
SELECT e.import_id, i.match_mode, e.identity, e.first_name, e.last_name, e.kind, e.door, e.occurred_at_ms
FROM punch_events e
JOIN punch_imports i ON i.import_id = e.import_id`
	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		where = append(where, "e.occurred_at_ms >= ?")
		args = append(args, from.UTC().UnixMilli())
	}
	if !to.IsZero() {
		where = append(where, "e.occurred_at_ms < ?")
		args = append(args, to.UTC().UnixMilli())
	}
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY e.occurred_at_ms, e.id;"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListPunches: %w", err)
	}
	defer rows.Close()

	var out []store.PunchRecord
	for rows.Next() {
		var (
			r     store.PunchRecord
			match string
			ms    int64
		)
		if err := rows.Scan(&r.ImportID, &match, &r.Identity, &r.FirstName, &r.LastName, &r.Kind, &r.Door, &ms); err != nil {
			return nil, fmt.Errorf("ListPunches scan: %w", err)
		}
		r.Match = types.MatchMode(match)
		r.OccurredAt = time.UnixMilli(ms).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneOlderThan deletes punches that occurred before cutoff and drops
// imports left with no punches.  Returns the number of punches deleted.
func (s *PunchStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM punch_events
WHERE occurred_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, `
DELETE FROM punch_imports
WHERE NOT EXISTS (
  SELECT 1 FROM punch_events e WHERE e.import_id = punch_imports.import_id
);
`); err != nil {
			return fmt.Errorf("PruneOlderThan imports: %w", err)
		}
		return nil
	})
	return deleted, err
}
