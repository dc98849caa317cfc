package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
)

// PunchStore is an in-memory append-only punch log.
// It is intended for use in tests and dev environments.
type PunchStore struct {
	mu      sync.Mutex
	imports []store.ImportRecord
	punches []store.PunchRecord
}

func NewPunchStore() *PunchStore {
	return &PunchStore{}
}

func (s *PunchStore) AppendPunches(_ context.Context, imp store.ImportRecord, recs []store.PunchRecord) error {
	if imp.ImportedAt.IsZero() {
		imp.ImportedAt = time.Now().UTC()
	}
	imp.Count = len(recs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports = append(s.imports, imp)
	for _, r := range recs {
		r.ImportID = imp.ID
		r.Match = imp.Match
		s.punches = append(s.punches, r)
	}
	return nil
}

func (s *PunchStore) ListPunches(_ context.Context, from, to time.Time) ([]store.PunchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.PunchRecord
	for _, p := range s.punches {
		if !from.IsZero() && p.OccurredAt.Before(from) {
			continue
		}
		if !to.IsZero() && !p.OccurredAt.Before(to) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (s *PunchStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.punches[:0]
	var deleted int64
	for _, p := range s.punches {
		if p.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, p)
	}
	s.punches = kept
	return deleted, nil
}

// Imports returns a copy of all recorded imports.  Test-only helper.
func (s *PunchStore) Imports() []store.ImportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.ImportRecord, len(s.imports))
	copy(out, s.imports)
	return out
}
