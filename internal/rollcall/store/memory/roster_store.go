package memory

import (
	"context"
	"sync"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

type RosterStore struct {
	mu    sync.RWMutex
	table types.RosterTable
}

// NewRosterStore seeds the store with a bare ID roster built from keys.
func NewRosterStore(keys []string) *RosterStore {
	t := types.RosterTable{}
	if len(keys) > 0 {
		t.Match = types.MatchByID
		t.Columns = []string{"id"}
	}
	for _, k := range keys {
		t.Entries = append(t.Entries, types.RosterEntry{Key: k, Values: []string{k}})
	}
	return &RosterStore{table: t}
}

func (s *RosterStore) ReplaceRoster(_ context.Context, table types.RosterTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = cloneRoster(table)
	return nil
}

func (s *RosterStore) LoadRoster(_ context.Context) (types.RosterTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRoster(s.table), nil
}

func cloneRoster(t types.RosterTable) types.RosterTable {
	out := types.RosterTable{
		Match:   t.Match,
		Columns: append([]string(nil), t.Columns...),
		Entries: make([]types.RosterEntry, len(t.Entries)),
	}
	for i, e := range t.Entries {
		e.Values = append([]string(nil), e.Values...)
		out.Entries[i] = e
	}
	return out
}
