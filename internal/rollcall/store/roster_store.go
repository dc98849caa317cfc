package store

import (
	"context"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// RosterStore holds the current roster. Replacing it is all-or-nothing.
type RosterStore interface {
	ReplaceRoster(ctx context.Context, table types.RosterTable) error
	LoadRoster(ctx context.Context) (types.RosterTable, error)
}
