package store

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

var ErrNotFound = errors.New("not found")

// RunRecord is one persisted reconciliation.
type RunRecord struct {
	ID             string
	CreatedAt      time.Time
	Match          types.MatchMode
	CaseFold       bool
	CountableKinds []string
	Timezone       string
	Report         types.Report
}

func (r RunRecord) Summary() types.RunSummary {
	return types.RunSummary{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		Match:       r.Match,
		CaseFold:    r.CaseFold,
		RosterSize:  len(r.Report.Roster),
		KnownActive: r.Report.Stats.KnownActive,
		Unknown:     r.Report.Stats.Unknown,
		Days:        r.Report.Stats.Days,
	}
}

type RunStore interface {
	SaveRun(ctx context.Context, rec RunRecord) error
	// ListRuns returns the newest runs first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	GetRun(ctx context.Context, id string) (RunRecord, error)
}
