package reconcile

import (
	"sort"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// MergeRoster left-joins the roster with visits. Every roster key yields
// exactly one row in first-seen order; a duplicate key replaces the display
// fields of the earlier row. The returned set holds every normalized roster
// key.
func MergeRoster(roster types.RosterTable, n Normalizer, visits map[string]types.VisitAggregate) ([]types.RosterRow, map[string]struct{}, types.Stats) {
	var st types.Stats
	st.RosterRead = len(roster.Entries)

	rows := make([]types.RosterRow, 0, len(roster.Entries))
	index := make(map[string]int, len(roster.Entries))

	for _, entry := range roster.Entries {
		key, ok := n.Key(entry.Key)
		if !ok {
			st.RosterBlank++
			continue
		}
		if i, dup := index[key]; dup {
			st.RosterDuplicates++
			rows[i].RosterEntry = entry
			continue
		}
		index[key] = len(rows)
		rows = append(rows, types.RosterRow{RosterEntry: entry, NormalizedKey: key})
	}

	keys := make(map[string]struct{}, len(index))
	for i := range rows {
		keys[rows[i].NormalizedKey] = struct{}{}
		agg, ok := visits[rows[i].NormalizedKey]
		if !ok {
			continue
		}
		applyVisits(&rows[i], agg)
		st.KnownActive++
	}
	return rows, keys, st
}

func applyVisits(row *types.RosterRow, agg types.VisitAggregate) {
	row.DaysVisited = agg.DaysVisited
	row.FirstVisit = agg.FirstVisit()
	row.LastVisit = agg.LastVisit()
	row.TotalDuration = agg.TotalDuration
	row.Days = agg.Days
}

// ExtractUnknown lists identities present in punches but absent from
// rosterKeys, one row each, sorted by key. Names are the first non-empty
// values seen in punch order.
func ExtractUnknown(punches []Punch, rosterKeys map[string]struct{}, visits map[string]types.VisitAggregate) []types.UnknownRow {
	byKey := make(map[string]*types.UnknownRow)
	for _, p := range punches {
		if _, known := rosterKeys[p.Key]; known {
			continue
		}
		row, ok := byKey[p.Key]
		if !ok {
			row = &types.UnknownRow{Key: p.Key}
			byKey[p.Key] = row
		}
		if row.FirstName == "" {
			row.FirstName = p.FirstName
		}
		if row.LastName == "" {
			row.LastName = p.LastName
		}
	}

	out := make([]types.UnknownRow, 0, len(byKey))
	for key, row := range byKey {
		if agg, ok := visits[key]; ok {
			row.DaysVisited = agg.DaysVisited
			row.FirstVisit = agg.FirstVisit()
			row.LastVisit = agg.LastVisit()
			row.EventCount = agg.EventCount
			row.TotalDuration = agg.TotalDuration
			row.Days = agg.Days
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
