package service

import (
	"context"
	"strings"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// RosterRegistry owns the stored roster used by stored reconciliations.
type RosterRegistry struct {
	store store.RosterStore
}

func NewRosterRegistry(st store.RosterStore) *RosterRegistry {
	return &RosterRegistry{store: st}
}

// Replace stores table as the current roster.  Entries with a blank key are
// dropped; an empty result is rejected and the stored roster is left as is.
func (r *RosterRegistry) Replace(ctx context.Context, table types.RosterTable) (types.RosterTable, error) {
	kept := types.RosterTable{Match: table.Match, Columns: table.Columns}
	for _, e := range table.Entries {
		if strings.TrimSpace(e.Key) == "" {
			continue
		}
		kept.Entries = append(kept.Entries, e)
	}
	if len(kept.Entries) == 0 {
		return types.RosterTable{}, ErrEmptyRoster
	}
	if err := r.store.ReplaceRoster(ctx, kept); err != nil {
		return types.RosterTable{}, err
	}
	return kept, nil
}

func (r *RosterRegistry) Current(ctx context.Context) (types.RosterTable, error) {
	return r.store.LoadRoster(ctx)
}
