package service_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/reconcile"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/service"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store/memory"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type failingRunStore struct{ store.RunStore }

func (failingRunStore) SaveRun(context.Context, store.RunRecord) error {
	return errors.New("disk full")
}

func newTestReconcileService(rosterKeys []string) (*service.ReconcileService, *memory.PunchStore, *memory.RunStore) {
	ps := memory.NewPunchStore()
	rs := memory.NewRunStore()
	reg := service.NewRosterRegistry(memory.NewRosterStore(rosterKeys))
	return service.NewReconcileService(reg, ps, rs, silentLogger()), ps, rs
}

func sampleEvents() []types.EventRecord {
	return []types.EventRecord{
		{Key: "1001", Timestamp: "2024-01-02 09:00:00"},
		{Key: "1001", Timestamp: "2024-01-02 17:00:00"},
		{Key: "9999", Timestamp: "2024-01-02 10:00:00"},
	}
}

// ── Run ──────────────────────────────────────────────────────────────────────

func TestRun_RecordsRun(t *testing.T) {
	svc, _, rs := newTestReconcileService(nil)
	ctx := context.Background()

	roster := types.RosterTable{Columns: []string{"id"}, Entries: []types.RosterEntry{{Key: "1001", Values: []string{"1001"}}}}
	rep, id, err := svc.Run(ctx, roster, sampleEvents(), types.DefaultOptions(types.MatchByID))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if id == "" {
		t.Fatal("expected a run id")
	}
	if rep.Stats.KnownActive != 1 || rep.Stats.Unknown != 1 {
		t.Errorf("unexpected stats %+v", rep.Stats)
	}

	got, err := rs.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Match != types.MatchByID || got.Timezone != "UTC" {
		t.Errorf("unexpected run record %+v", got)
	}
	if got.Report.Stats.KnownActive != 1 {
		t.Errorf("stored report mismatch: %+v", got.Report.Stats)
	}
}

func TestRun_SaveFailureStillReturnsReport(t *testing.T) {
	reg := service.NewRosterRegistry(memory.NewRosterStore(nil))
	svc := service.NewReconcileService(reg, memory.NewPunchStore(), failingRunStore{}, silentLogger())

	rep, id, err := svc.Run(context.Background(), types.RosterTable{}, sampleEvents(), types.DefaultOptions(types.MatchByID))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if id != "" {
		t.Errorf("expected empty run id, got %q", id)
	}
	if rep.Stats.Unknown != 2 {
		t.Errorf("expected 2 unknown, got %d", rep.Stats.Unknown)
	}
}

func TestRun_InvalidMatch(t *testing.T) {
	svc, _, rs := newTestReconcileService(nil)

	_, _, err := svc.Run(context.Background(), types.RosterTable{}, nil, types.Options{Match: "badge"})
	if !errors.Is(err, reconcile.ErrInvalidMatch) {
		t.Fatalf("expected ErrInvalidMatch, got %v", err)
	}
	runs, _ := rs.ListRuns(context.Background(), 0)
	if len(runs) != 0 {
		t.Errorf("expected no recorded runs, got %d", len(runs))
	}
}

func TestRun_WithoutRunStore(t *testing.T) {
	svc := service.NewReconcileService(nil, nil, nil, nil)

	_, id, err := svc.Run(context.Background(), types.RosterTable{}, sampleEvents(), types.DefaultOptions(types.MatchByID))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if id != "" {
		t.Errorf("expected no run id, got %q", id)
	}
	if _, _, err := svc.RunStored(context.Background(), types.DefaultOptions(types.MatchByID), time.Time{}, time.Time{}); !errors.Is(err, service.ErrNoStorage) {
		t.Errorf("expected ErrNoStorage, got %v", err)
	}
	if _, err := svc.Lookup(context.Background(), "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ── RunStored ────────────────────────────────────────────────────────────────

func TestRunStored_UsesStoredRosterAndRange(t *testing.T) {
	svc, ps, _ := newTestReconcileService([]string{"1001", "1002"})
	ctx := context.Background()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	err := ps.AppendPunches(ctx, store.ImportRecord{ID: "imp"}, []store.PunchRecord{
		{Identity: "1001", OccurredAt: day.Add(9 * time.Hour)},
		{Identity: "1001", OccurredAt: day.Add(12 * time.Hour)},
		{Identity: "1002", OccurredAt: day.Add(30 * time.Hour)},
		{Identity: "7777", OccurredAt: day.Add(10 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("AppendPunches: %v", err)
	}

	rep, _, err := svc.RunStored(ctx, types.DefaultOptions(types.MatchByID), day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("RunStored: %v", err)
	}
	if len(rep.Roster) != 2 {
		t.Fatalf("expected 2 roster rows, got %d", len(rep.Roster))
	}
	if rep.Roster[0].DaysVisited != 1 || rep.Roster[0].TotalDuration != 3*time.Hour {
		t.Errorf("unexpected row for 1001: %+v", rep.Roster[0])
	}
	if rep.Roster[1].DaysVisited != 0 {
		t.Errorf("1002 punched outside range, got %d days", rep.Roster[1].DaysVisited)
	}
	if len(rep.Unknown) != 1 || rep.Unknown[0].Key != "7777" {
		t.Errorf("unexpected unknown list %+v", rep.Unknown)
	}
}

func TestRunStored_RejectsMixedMatchModes(t *testing.T) {
	svc, ps, rs := newTestReconcileService([]string{"1001"})
	ctx := context.Background()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	err := ps.AppendPunches(ctx, store.ImportRecord{ID: "imp", Match: types.MatchByName}, []store.PunchRecord{
		{Identity: "Ann Lee", OccurredAt: day.Add(9 * time.Hour)},
	})
	if err != nil {
		t.Fatalf("AppendPunches: %v", err)
	}

	// Roster is keyed by ID, punches by name.
	if _, _, err := svc.RunStored(ctx, types.DefaultOptions(types.MatchByID), time.Time{}, time.Time{}); !errors.Is(err, service.ErrMatchMismatch) {
		t.Errorf("match=id: expected ErrMatchMismatch, got %v", err)
	}
	if _, _, err := svc.RunStored(ctx, types.DefaultOptions(types.MatchByName), time.Time{}, time.Time{}); !errors.Is(err, service.ErrMatchMismatch) {
		t.Errorf("match=name: expected ErrMatchMismatch, got %v", err)
	}

	runs, _ := rs.ListRuns(ctx, 0)
	if len(runs) != 0 {
		t.Errorf("expected no recorded runs, got %d", len(runs))
	}
}

// ── History ──────────────────────────────────────────────────────────────────

func TestHistory_NewestFirst(t *testing.T) {
	svc, _, _ := newTestReconcileService(nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		_, id, err := svc.Run(ctx, types.RosterTable{}, sampleEvents(), types.DefaultOptions(types.MatchByID))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}

	hist, err := svc.History(ctx, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 || hist[0].ID != ids[2] || hist[1].ID != ids[1] {
		t.Errorf("unexpected history %+v", hist)
	}

	rec, err := svc.Lookup(ctx, " "+ids[0]+" ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.ID != ids[0] {
		t.Errorf("Lookup returned %s", rec.ID)
	}
}
