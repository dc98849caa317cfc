package reconcile

import (
	"sort"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// Classify reports whether key belongs to the roster.
func Classify(key string, rosterKeys map[string]struct{}) types.Classification {
	if _, ok := rosterKeys[key]; ok {
		return types.Known
	}
	return types.Unknown
}

// BuildDailySummary counts distinct active identities per date and
// classification.
func BuildDailySummary(punches []Punch, rosterKeys map[string]struct{}) types.DailySummary {
	active := make(map[string]map[string]struct{})
	for _, p := range punches {
		if !p.Dated {
			continue
		}
		date := dateOf(p.At)
		ids, ok := active[date]
		if !ok {
			ids = make(map[string]struct{})
			active[date] = ids
		}
		ids[p.Key] = struct{}{}
	}

	observed := make(map[types.Classification]bool)
	rows := make([]types.DailyRow, 0, len(active))
	for date, ids := range active {
		row := types.DailyRow{Date: date, Counts: make(map[types.Classification]int)}
		for key := range ids {
			c := Classify(key, rosterKeys)
			row.Counts[c]++
			observed[c] = true
		}
		rows = append(rows, row)
	}

	classes := []types.Classification{}
	for _, c := range types.Classifications {
		if observed[c] {
			classes = append(classes, c)
		}
	}
	for i := range rows {
		total := 0
		for _, c := range classes {
			// Materialize zero columns so every row carries every class.
			n := rows[i].Counts[c]
			rows[i].Counts[c] = n
			total += n
		}
		rows[i].TotalPresent = total
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })

	return types.DailySummary{Classes: classes, Rows: rows}
}
