package reconcile

import (
	"sort"
	"strings"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// Punch is an event that survived identity normalization and the kind
// filter. Dated is false when its timestamp could not be parsed.
type Punch struct {
	Key       string
	At        time.Time
	Dated     bool
	FirstName string
	LastName  string
}

// Prepare normalizes identities, applies the countable-kind filter and
// parses timestamps. Records with a blank identity are dropped; records
// with a bad timestamp are kept undated so they still count for
// classification.
func Prepare(events []types.EventRecord, n Normalizer, kinds map[string]struct{}, loc *time.Location) ([]Punch, types.Stats) {
	var st types.Stats
	st.EventsRead = len(events)

	out := make([]Punch, 0, len(events))
	for _, ev := range events {
		key, ok := n.EventKey(ev)
		if !ok {
			st.BlankIdentity++
			continue
		}
		if len(kinds) > 0 {
			if _, ok := kinds[normalizeKind(ev.Kind)]; !ok {
				st.FilteredByKind++
				continue
			}
		}

		p := Punch{
			Key:       key,
			FirstName: strings.TrimSpace(ev.FirstName),
			LastName:  strings.TrimSpace(ev.LastName),
		}
		if t, ok := ParseTimestamp(ev.Timestamp, loc); ok {
			p.At = t
			p.Dated = true
		} else {
			st.BadTimestamp++
		}
		out = append(out, p)
	}
	return out, st
}

func normalizeKind(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func kindSet(kinds []string) map[string]struct{} {
	out := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		k = normalizeKind(k)
		if k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}

// AggregateVisits groups dated punches by identity and date. Identities
// without a dated punch get no aggregate.
func AggregateVisits(punches []Punch) map[string]types.VisitAggregate {
	type dayKey struct {
		key  string
		date string
	}
	days := make(map[dayKey]*types.DayVisit)
	counts := make(map[string]int)

	for _, p := range punches {
		if !p.Dated {
			continue
		}
		counts[p.Key]++
		dk := dayKey{key: p.Key, date: dateOf(p.At)}
		d, ok := days[dk]
		if !ok {
			days[dk] = &types.DayVisit{Date: dk.date, FirstIn: p.At, LastOut: p.At}
			continue
		}
		if p.At.Before(d.FirstIn) {
			d.FirstIn = p.At
		}
		if p.At.After(d.LastOut) {
			d.LastOut = p.At
		}
	}

	out := make(map[string]types.VisitAggregate, len(counts))
	for dk, d := range days {
		d.Duration = d.LastOut.Sub(d.FirstIn)
		agg := out[dk.key]
		agg.Key = dk.key
		agg.Days = append(agg.Days, *d)
		agg.TotalDuration += d.Duration
		out[dk.key] = agg
	}
	for key, agg := range out {
		sort.Slice(agg.Days, func(i, j int) bool { return agg.Days[i].Date < agg.Days[j].Date })
		agg.DaysVisited = len(agg.Days)
		agg.EventCount = counts[key]
		out[key] = agg
	}
	return out
}
