package sqlite_test

import (
	"context"
	"reflect"
	"testing"

	sqlitestore "github.com/BrandonDHaskell/rollcall/internal/rollcall/store/sqlite"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

func TestRosterStore_EmptyLoad(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRosterStore(conn, newTestWriter(t, conn))

	got, err := rs.LoadRoster(context.Background())
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if len(got.Columns) != 0 || len(got.Entries) != 0 || got.Match != "" {
		t.Errorf("expected empty roster, got %+v", got)
	}
}

func TestRosterStore_ReplaceThenLoad(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRosterStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	first := types.RosterTable{
		Columns: []string{"id", "name"},
		Entries: []types.RosterEntry{
			{Key: "1", Name: "Old", Values: []string{"1", "Old"}},
		},
	}
	if err := rs.ReplaceRoster(ctx, first); err != nil {
		t.Fatalf("ReplaceRoster first: %v", err)
	}

	want := types.RosterTable{
		Match:   types.MatchByName,
		Columns: []string{"id", "name", "dept", "seat"},
		Entries: []types.RosterEntry{
			{Key: "2002", Name: "Ann Lee", Department: "Ops", Seat: "4B", Values: []string{"2002", "Ann Lee", "Ops", "4B"}},
			{Key: "1001", Name: "Bo Chan", Department: "Eng", Seat: "1A", Values: []string{"1001", "Bo Chan", "Eng", "1A"}},
		},
	}
	if err := rs.ReplaceRoster(ctx, want); err != nil {
		t.Fatalf("ReplaceRoster second: %v", err)
	}

	got, err := rs.LoadRoster(ctx)
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("roster mismatch\n got: %+v\nwant: %+v", got, want)
	}
}
