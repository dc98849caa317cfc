package store

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// ImportRecord describes one uploaded punch log.
type ImportRecord struct {
	ID         string
	Source     string
	Match      types.MatchMode
	ImportedAt time.Time
	Count      int
}

// PunchRecord is a stored punch. Identity is the ID or the name depending
// on Match, copied from the import it arrived in.
type PunchRecord struct {
	ImportID   string
	Match      types.MatchMode
	Identity   string
	FirstName  string
	LastName   string
	Kind       string
	Door       string
	OccurredAt time.Time
}

// PunchStore persists imported punches as an append-only log.
type PunchStore interface {
	AppendPunches(ctx context.Context, imp ImportRecord, recs []PunchRecord) error
	// ListPunches returns punches with from <= OccurredAt < to, oldest first.
	// A zero bound is open.
	ListPunches(ctx context.Context, from, to time.Time) ([]PunchRecord, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
