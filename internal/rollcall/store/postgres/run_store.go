// Package postgres keeps reconciliation runs in a shared Postgres database
// so several rollcall servers can list each other's history.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

var validSchema = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SanitizeSchema rejects anything that is not a bare SQL identifier.
func SanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	if !validSchema.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

type RunStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewRunStore returns a store writing to schema.reconcile_runs.  Call
// EnsureSchema once before use.
func NewRunStore(pool *pgxpool.Pool, schema string) (*RunStore, error) {
	schema, err := SanitizeSchema(schema)
	if err != nil {
		return nil, err
	}
	return &RunStore{pool: pool, schema: schema}, nil
}

func (s *RunStore) table() string { return s.schema + ".reconcile_runs" }

func (s *RunStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+s.schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+s.table()+` (
			run_id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			match_mode TEXT NOT NULL,
			case_fold BOOLEAN NOT NULL DEFAULT FALSE,
			countable_kinds TEXT[] NOT NULL DEFAULT '{}',
			timezone TEXT NOT NULL DEFAULT 'UTC',
			roster_size INTEGER NOT NULL DEFAULT 0,
			known_active INTEGER NOT NULL DEFAULT 0,
			unknown_count INTEGER NOT NULL DEFAULT 0,
			days INTEGER NOT NULL DEFAULT 0,
			report JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create reconcile_runs: %w", err)
	}
	return nil
}

func (s *RunStore) SaveRun(ctx context.Context, rec store.RunRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("SaveRun: run id %q: %w", rec.ID, err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	report, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("SaveRun encode report: %w", err)
	}
	kinds := rec.CountableKinds
	if kinds == nil {
		kinds = []string{}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO `+s.table()+` (
			run_id, created_at, match_mode, case_fold, countable_kinds, timezone,
			roster_size, known_active, unknown_count, days, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, rec.CreatedAt, string(rec.Match), rec.CaseFold, kinds, rec.Timezone,
		len(rec.Report.Roster), rec.Report.Stats.KnownActive, rec.Report.Stats.Unknown,
		rec.Report.Stats.Days, report)
	if err != nil {
		return fmt.Errorf("SaveRun insert: %w", err)
	}
	return nil
}

func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	query := `
		SELECT run_id, created_at, match_mode, case_fold, countable_kinds, timezone, report
		FROM ` + s.table() + `
		ORDER BY created_at DESC, run_id
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RunStore) GetRun(ctx context.Context, id string) (store.RunRecord, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return store.RunRecord{}, store.ErrNotFound
	}
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, created_at, match_mode, case_fold, countable_kinds, timezone, report
		FROM `+s.table()+`
		WHERE run_id = $1
	`, uid)
	rec, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.RunRecord{}, store.ErrNotFound
	}
	return rec, err
}

func scanRun(row pgx.Row) (store.RunRecord, error) {
	var (
		rec    store.RunRecord
		id     uuid.UUID
		match  string
		report []byte
	)
	if err := row.Scan(&id, &rec.CreatedAt, &match, &rec.CaseFold, &rec.CountableKinds, &rec.Timezone, &report); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan run: %w", err)
	}
	rec.ID = id.String()
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Match = types.MatchMode(match)
	if len(rec.CountableKinds) == 0 {
		rec.CountableKinds = nil
	}
	if err := json.Unmarshal(report, &rec.Report); err != nil {
		return rec, fmt.Errorf("decode report %s: %w", rec.ID, err)
	}
	return rec, nil
}
