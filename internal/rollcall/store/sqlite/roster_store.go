package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/rollcall/internal/db"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

type RosterStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRosterStore(db *sql.DB, writer *dbpkg.Worker) *RosterStore {
	return &RosterStore{db: db, writer: writer}
}

// ReplaceRoster swaps the stored roster for table in one transaction.
func (s *RosterStore) ReplaceRoster(ctx context.Context, table types.RosterTable) error {
	nowMs := time.Now().UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM roster_columns;`); err != nil {
			return fmt.Errorf("ReplaceRoster clear columns: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM roster_entries;`); err != nil {
			return fmt.Errorf("ReplaceRoster clear entries: %w", err)
		}

		match := table.Match
		if match == "" {
			match = types.MatchByID
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO roster_meta(id, match_mode, updated_at_ms) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  match_mode = excluded.match_mode,
  updated_at_ms = excluded.updated_at_ms;
`, string(match), nowMs); err != nil {
			return fmt.Errorf("ReplaceRoster match mode: %w", err)
		}

		for i, c := range table.Columns {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO roster_columns(position, name) VALUES (?, ?);
`, i, c); err != nil {
				return fmt.Errorf("ReplaceRoster column %q: %w", c, err)
			}
		}

		for i, e := range table.Entries {
			vals, err := json.Marshal(e.Values)
			if err != nil {
				return fmt.Errorf("ReplaceRoster encode values: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO roster_entries(
  position, identity, name, department, seat, values_json, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?);
`, i, e.Key, e.Name, e.Department, e.Seat, string(vals), nowMs); err != nil {
				return fmt.Errorf("ReplaceRoster entry %q: %w", e.Key, err)
			}
		}
		return nil
	})
}

func (s *RosterStore) LoadRoster(ctx context.Context) (types.RosterTable, error) {
	var t types.RosterTable

	var match string
	err := s.db.QueryRowContext(ctx, `SELECT match_mode FROM roster_meta WHERE id = 1;`).Scan(&match)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return t, fmt.Errorf("LoadRoster match mode: %w", err)
	default:
		t.Match = types.MatchMode(match)
	}

	cols, err := s.db.QueryContext(ctx, `SELECT name FROM roster_columns ORDER BY position;`)
	if err != nil {
		return t, fmt.Errorf("LoadRoster columns: %w", err)
	}
	for cols.Next() {
		var name string
		if err := cols.Scan(&name); err != nil {
			cols.Close()
			return t, fmt.Errorf("LoadRoster scan column: %w", err)
		}
		t.Columns = append(t.Columns, name)
	}
	cols.Close()
	if err := cols.Err(); err != nil {
		return t, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT identity, name, department, seat, values_json
FROM roster_entries
ORDER BY position;
`)
	if err != nil {
		return t, fmt.Errorf("LoadRoster entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e    types.RosterEntry
			vals string
		)
		if err := rows.Scan(&e.Key, &e.Name, &e.Department, &e.Seat, &vals); err != nil {
			return t, fmt.Errorf("LoadRoster scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(vals), &e.Values); err != nil {
			return t, fmt.Errorf("LoadRoster decode values for %q: %w", e.Key, err)
		}
		t.Entries = append(t.Entries, e)
	}
	return t, rows.Err()
}
