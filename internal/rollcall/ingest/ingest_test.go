package ingest_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/ingest"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/reconcile"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// ── Roster ───────────────────────────────────────────────────────────────────

func TestReadRoster_IDAliases(t *testing.T) {
	data := "Emp_ID,Full Name,Dept,Seat No\n" +
		" 101 ,Ada Lovelace,R&D,3A\n" +
		"\n" +
		"102,Alan Turing,Crypto,3B\n"

	table, err := ingest.ReadRoster(strings.NewReader(data), "seats.csv", types.MatchByID)
	if err != nil {
		t.Fatalf("ReadRoster: %v", err)
	}
	if len(table.Entries) != 2 {
		t.Fatalf("expected 2 entries (blank line dropped), got %d", len(table.Entries))
	}
	e := table.Entries[0]
	if e.Key != "101" || e.Name != "Ada Lovelace" || e.Department != "R&D" || e.Seat != "3A" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if len(table.Columns) != 4 || table.Columns[0] != "Emp_ID" {
		t.Errorf("expected original columns preserved, got %v", table.Columns)
	}
	if len(e.Values) != 4 {
		t.Errorf("expected full row carried, got %v", e.Values)
	}
}

func TestReadRoster_NameModeFromSplitColumns(t *testing.T) {
	data := "First Name;Last Name;Team\nAda;Lovelace;R&D\n"

	table, err := ingest.ReadRoster(strings.NewReader(data), "seats.txt", types.MatchByName)
	if err != nil {
		t.Fatalf("ReadRoster: %v", err)
	}
	if table.Entries[0].Key != "Ada Lovelace" {
		t.Errorf("expected joined name key, got %q", table.Entries[0].Key)
	}
	if table.Entries[0].Department != "R&D" {
		t.Errorf("expected semicolon delimiter detected, got %+v", table.Entries[0])
	}
}

func TestReadRoster_MissingIdentityColumn(t *testing.T) {
	_, err := ingest.ReadRoster(strings.NewReader("Full Name,Dept\nAda,R&D\n"), "seats.csv", types.MatchByID)
	if !errors.Is(err, ingest.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	var mce *ingest.MissingColumnError
	if !errors.As(err, &mce) || mce.Table != ingest.TableRoster || mce.Column != "id" {
		t.Errorf("unexpected error detail: %v", err)
	}
}

func TestReadRoster_Empty(t *testing.T) {
	_, err := ingest.ReadRoster(strings.NewReader("\n\n"), "seats.csv", types.MatchByID)
	if !errors.Is(err, ingest.ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

// ── Events ───────────────────────────────────────────────────────────────────

func TestReadEvents_TabDelimited(t *testing.T) {
	data := "Card Number\tEvent Time\tEvent Type\tFirst Name\tLast Name\tReader\n" +
		"101\t2024-01-01 09:00\tGranted\tAda\tLovelace\tLobby\n"

	events, err := ingest.ReadEvents(strings.NewReader(data), "punches.tsv", ingest.EventOptions{Match: types.MatchByID})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	want := types.EventRecord{
		Key: "101", Timestamp: "2024-01-01 09:00", Kind: "Granted",
		FirstName: "Ada", LastName: "Lovelace", Door: "Lobby",
	}
	if len(events) != 1 || events[0] != want {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestReadEvents_SeparateDateAndTime(t *testing.T) {
	data := "badge,date,time\n7,2024-02-03,08:15\n"

	events, err := ingest.ReadEvents(strings.NewReader(data), "punches.csv", ingest.EventOptions{Match: types.MatchByID})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if events[0].Timestamp != "2024-02-03 08:15" {
		t.Errorf("expected joined timestamp, got %q", events[0].Timestamp)
	}
}

func TestReadEvents_EventDateAndEventTimeColumns(t *testing.T) {
	data := "Card Number,Event Time,Event Date\n101,09:00:00,2024-01-01\n"

	events, err := ingest.ReadEvents(strings.NewReader(data), "punches.csv", ingest.EventOptions{Match: types.MatchByID})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(events) != 1 || events[0].Timestamp != "2024-01-01 09:00:00" {
		t.Fatalf("expected date and time joined, got %+v", events)
	}
	got, ok := reconcile.ParseTimestamp(events[0].Timestamp, time.UTC)
	if !ok || !got.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("joined timestamp did not parse: %v %v", got, ok)
	}
}

func TestReadEvents_PairWinsOverTimestampColumn(t *testing.T) {
	data := "id,timestamp,punch date,punch time\n1,garbage,2024-03-04,07:45\n"

	events, err := ingest.ReadEvents(strings.NewReader(data), "punches.csv", ingest.EventOptions{Match: types.MatchByID})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if events[0].Timestamp != "2024-03-04 07:45" {
		t.Errorf("expected date/time pair, got %q", events[0].Timestamp)
	}
}

func TestReadEvents_LoneTimeColumnHoldsFullTimestamp(t *testing.T) {
	data := "Card Number,Event Time\n101,2024-01-01 09:00:00\n"

	events, err := ingest.ReadEvents(strings.NewReader(data), "punches.csv", ingest.EventOptions{Match: types.MatchByID})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if events[0].Timestamp != "2024-01-01 09:00:00" {
		t.Errorf("unexpected timestamp %q", events[0].Timestamp)
	}
}

func TestReadEvents_MissingColumns(t *testing.T) {
	cases := []struct {
		name   string
		data   string
		opts   ingest.EventOptions
		column string
	}{
		{"no id", "name,timestamp\nA,2024-01-01\n", ingest.EventOptions{Match: types.MatchByID}, "id"},
		{"no name", "id,timestamp\n1,2024-01-01\n", ingest.EventOptions{Match: types.MatchByName}, "name"},
		{"no timestamp", "id,kind\n1,granted\n", ingest.EventOptions{Match: types.MatchByID}, "timestamp"},
		{"kind required", "id,timestamp\n1,2024-01-01\n", ingest.EventOptions{Match: types.MatchByID, RequireKind: true}, "event kind"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ingest.ReadEvents(strings.NewReader(tc.data), "events.csv", tc.opts)
			var mce *ingest.MissingColumnError
			if !errors.As(err, &mce) {
				t.Fatalf("expected MissingColumnError, got %v", err)
			}
			if mce.Table != ingest.TableEvents || mce.Column != tc.column {
				t.Errorf("expected %s/%s, got %s/%s", ingest.TableEvents, tc.column, mce.Table, mce.Column)
			}
		})
	}
}

// ── Decoding ─────────────────────────────────────────────────────────────────

func TestDecodeText_Windows1252Fallback(t *testing.T) {
	// "José" with é encoded as 0xE9 (Latin-1 / Windows-1252).
	got := ingest.DecodeText([]byte{'J', 'o', 's', 0xE9})
	if got != "José" {
		t.Errorf("expected José, got %q", got)
	}
}

func TestDecodeText_StripsUTF8BOM(t *testing.T) {
	got := ingest.DecodeText(append([]byte{0xEF, 0xBB, 0xBF}, "id\n"...))
	if got != "id\n" {
		t.Errorf("expected BOM stripped, got %q", got)
	}
}

func TestDecodeText_UTF16LE(t *testing.T) {
	got := ingest.DecodeText([]byte{0xFF, 0xFE, 'i', 0, 'd', 0})
	if got != "id" {
		t.Errorf("expected utf-16 decoded, got %q", got)
	}
}

func TestReadRows_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]any{"ID", "Name"})
	_ = f.SetSheetRow(sheet, "A2", &[]any{"101", "Ada"})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	table, err := ingest.ReadRoster(&buf, "seats.xlsx", types.MatchByID)
	if err != nil {
		t.Fatalf("ReadRoster xlsx: %v", err)
	}
	if len(table.Entries) != 1 || table.Entries[0].Key != "101" || table.Entries[0].Name != "Ada" {
		t.Errorf("unexpected xlsx roster %+v", table)
	}
}

// ── Workbook dates ───────────────────────────────────────────────────────────

func writeWorkbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return &buf
}

func TestReadEvents_XLSXDateTimeCells(t *testing.T) {
	at := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	buf := writeWorkbook(t,
		[]any{"Card Number", "Event Time"},
		[]any{"101", at},
	)

	events, err := ingest.ReadEvents(buf, "punches.xlsx", ingest.EventOptions{Match: types.MatchByID})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	got, ok := reconcile.ParseTimestamp(events[0].Timestamp, time.UTC)
	if !ok || !got.Equal(at) {
		t.Errorf("raw %q parsed to %v (ok=%v), want %v", events[0].Timestamp, got, ok, at)
	}
}

func TestReadEvents_XLSXSeparateDateAndTimeCells(t *testing.T) {
	// 0.3958333 of a day is 09:30.
	buf := writeWorkbook(t,
		[]any{"Badge", "Event Date", "Event Time"},
		[]any{"7", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 9.5 / 24},
	)

	events, err := ingest.ReadEvents(buf, "punches.xlsx", ingest.EventOptions{Match: types.MatchByID})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	got, ok := reconcile.ParseTimestamp(events[0].Timestamp, time.UTC)
	want := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	if !ok || !got.Equal(want) {
		t.Errorf("raw %q parsed to %v (ok=%v), want %v", events[0].Timestamp, got, ok, want)
	}
}

func TestReconcile_XLSXPunchLog(t *testing.T) {
	roster, err := ingest.ReadRoster(strings.NewReader("Employee ID,Name\n101,Ada\n102,Bo\n"), "roster.csv", types.MatchByID)
	if err != nil {
		t.Fatalf("ReadRoster: %v", err)
	}
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	buf := writeWorkbook(t,
		[]any{"Card Number", "Event Time", "Event Type"},
		[]any{"101", day.Add(9 * time.Hour), "Entry"},
		[]any{"101", day.Add(17 * time.Hour), "Exit"},
		[]any{"555", day.Add(10 * time.Hour), "Entry"},
	)
	events, err := ingest.ReadEvents(buf, "punches.xlsx", ingest.EventOptions{Match: types.MatchByID})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}

	rep, err := reconcile.Reconcile(roster, events, types.DefaultOptions(types.MatchByID))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if rep.Stats.BadTimestamp != 0 {
		t.Fatalf("expected every workbook timestamp to parse, %d skipped", rep.Stats.BadTimestamp)
	}
	if rep.Roster[0].DaysVisited != 1 || rep.Roster[0].TotalDuration != 8*time.Hour {
		t.Errorf("unexpected row for 101: %+v", rep.Roster[0])
	}
	if rep.Roster[0].FirstVisit != "2024-01-02" {
		t.Errorf("unexpected first visit %q", rep.Roster[0].FirstVisit)
	}
	if rep.Stats.KnownActive != 1 || len(rep.Unknown) != 1 || rep.Unknown[0].Key != "555" {
		t.Errorf("unexpected classification: stats=%+v unknown=%+v", rep.Stats, rep.Unknown)
	}
}
