package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/reconcile"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// PunchService appends uploaded punch logs to the stored punch history.
type PunchService struct {
	store store.PunchStore
	loc   *time.Location
}

// NewPunchService parses zone-less timestamps in loc (UTC when nil).
func NewPunchService(ps store.PunchStore, loc *time.Location) *PunchService {
	if loc == nil {
		loc = time.UTC
	}
	return &PunchService{store: ps, loc: loc}
}

// Import stores every event with an identity and a parseable timestamp.
// Other events are counted as skipped.  match is the mode the event keys
// were read with; it is kept with the import.
func (s *PunchService) Import(ctx context.Context, source string, match types.MatchMode, events []types.EventRecord) (types.ImportResponse, error) {
	if match == "" {
		match = types.MatchByID
	}

	recs := make([]store.PunchRecord, 0, len(events))
	skipped := 0
	for _, ev := range events {
		key := strings.TrimSpace(ev.Key)
		first := strings.TrimSpace(ev.FirstName)
		last := strings.TrimSpace(ev.LastName)
		if key == "" && first == "" && last == "" {
			skipped++
			continue
		}
		at, ok := reconcile.ParseTimestamp(ev.Timestamp, s.loc)
		if !ok {
			skipped++
			continue
		}
		recs = append(recs, store.PunchRecord{
			Identity:   key,
			FirstName:  first,
			LastName:   last,
			Kind:       strings.TrimSpace(ev.Kind),
			Door:       strings.TrimSpace(ev.Door),
			OccurredAt: at.UTC(),
		})
	}
	punchesSkipped.Add(int64(skipped))
	if len(recs) == 0 {
		return types.ImportResponse{}, ErrEmptyImport
	}

	now := time.Now().UTC()
	imp := store.ImportRecord{
		ID:         uuid.NewString(),
		Source:     strings.TrimSpace(source),
		Match:      match,
		ImportedAt: now,
	}
	if err := s.store.AppendPunches(ctx, imp, recs); err != nil {
		return types.ImportResponse{}, err
	}
	punchesImported.Add(int64(len(recs)))

	return types.ImportResponse{
		OK:         true,
		ImportID:   imp.ID,
		Source:     imp.Source,
		Match:      match,
		Imported:   len(recs),
		Skipped:    skipped,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}
