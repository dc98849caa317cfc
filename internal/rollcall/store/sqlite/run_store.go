package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/BrandonDHaskell/rollcall/internal/db"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

type RunStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRunStore(db *sql.DB, writer *dbpkg.Worker) *RunStore {
	return &RunStore{db: db, writer: writer}
}

func (s *RunStore) SaveRun(ctx context.Context, rec store.RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	report, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("SaveRun encode report: %w", err)
	}

	var caseFold int
	if rec.CaseFold {
		caseFold = 1
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO reconcile_runs(
  run_id, created_at_ms, match_mode, case_fold, countable_kinds, timezone,
  roster_size, known_active, unknown_count, days, report_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, rec.CreatedAt.UTC().UnixMilli(), string(rec.Match), caseFold,
			strings.Join(rec.CountableKinds, ","), rec.Timezone,
			len(rec.Report.Roster), rec.Report.Stats.KnownActive,
			rec.Report.Stats.Unknown, rec.Report.Stats.Days, string(report),
		); err != nil {
			return fmt.Errorf("SaveRun insert: %w", err)
		}
		return nil
	})
}

const runColumns = `run_id, created_at_ms, match_mode, case_fold, countable_kinds, timezone, report_json`

func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+runColumns+`
FROM reconcile_runs
ORDER BY created_at_ms DESC, run_id
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	defer rows.Close()

	var out []store.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *RunStore) GetRun(ctx context.Context, id string) (store.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+runColumns+`
FROM reconcile_runs
WHERE run_id = ?;
`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.RunRecord{}, store.ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.RunRecord, error) {
	var (
		rec       store.RunRecord
		createdMs int64
		match     string
		caseFold  int
		kinds     string
		report    string
	)
	if err := sc.Scan(&rec.ID, &createdMs, &match, &caseFold, &kinds, &rec.Timezone, &report); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan run: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	rec.Match = types.MatchMode(match)
	rec.CaseFold = caseFold == 1
	if kinds != "" {
		rec.CountableKinds = strings.Split(kinds, ",")
	}
	if err := json.Unmarshal([]byte(report), &rec.Report); err != nil {
		return rec, fmt.Errorf("decode report %s: %w", rec.ID, err)
	}
	return rec, nil
}
