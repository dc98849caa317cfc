// Package reconcile joins a seating roster with a punch log. Everything in
// it is a pure function of its inputs.
package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

var (
	ErrInvalidMatch = errors.New("match must be \"id\" or \"name\"")
)

// Reconcile produces the enriched roster, the unknown-identity list and the
// daily summary. It fails only on invalid options; bad records are skipped
// and counted in Report.Stats.
func Reconcile(roster types.RosterTable, events []types.EventRecord, opts types.Options) (types.Report, error) {
	match, ok := types.ParseMatchMode(string(opts.Match))
	if !ok {
		return types.Report{}, fmt.Errorf("%w: got %q", ErrInvalidMatch, opts.Match)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	n := NewNormalizer(match, opts.CaseFold)
	punches, evStats := Prepare(events, n, kindSet(opts.CountableKinds), loc)
	visits := AggregateVisits(punches)

	rows, rosterKeys, rosterStats := MergeRoster(roster, n, visits)
	unknown := ExtractUnknown(punches, rosterKeys, visits)
	daily := BuildDailySummary(punches, rosterKeys)

	st := evStats
	st.RosterRead = rosterStats.RosterRead
	st.RosterBlank = rosterStats.RosterBlank
	st.RosterDuplicates = rosterStats.RosterDuplicates
	st.KnownActive = rosterStats.KnownActive
	st.Unknown = len(unknown)
	st.Days = len(daily.Rows)

	columns := make([]string, len(roster.Columns))
	copy(columns, roster.Columns)

	return types.Report{
		RosterColumns: columns,
		Roster:        rows,
		Unknown:       unknown,
		Daily:         daily,
		Stats:         st,
	}, nil
}
