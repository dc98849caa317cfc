package httpapi

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// reportToProto flattens a report into a google.protobuf.Struct.  Durations
// become hours; dates stay ISO strings.
func reportToProto(resp types.ReconcileResponse) (*structpb.Struct, error) {
	rep := resp.Report

	roster := make([]any, 0, len(rep.Roster))
	for _, row := range rep.Roster {
		values := make([]any, len(row.Values))
		for i, v := range row.Values {
			values[i] = v
		}
		roster = append(roster, map[string]any{
			"key":          row.Key,
			"name":         row.Name,
			"department":   row.Department,
			"seat":         row.Seat,
			"values":       values,
			"days_visited": row.DaysVisited,
			"first_visit":  row.FirstVisit,
			"last_visit":   row.LastVisit,
			"total_hours":  types.Hours(row.TotalDuration),
		})
	}

	unknown := make([]any, 0, len(rep.Unknown))
	for _, u := range rep.Unknown {
		unknown = append(unknown, map[string]any{
			"key":          u.Key,
			"first_name":   u.FirstName,
			"last_name":    u.LastName,
			"days_visited": u.DaysVisited,
			"first_visit":  u.FirstVisit,
			"last_visit":   u.LastVisit,
			"event_count":  u.EventCount,
			"total_hours":  types.Hours(u.TotalDuration),
		})
	}

	classes := make([]any, len(rep.Daily.Classes))
	for i, c := range rep.Daily.Classes {
		classes[i] = string(c)
	}
	daily := make([]any, 0, len(rep.Daily.Rows))
	for _, d := range rep.Daily.Rows {
		counts := make(map[string]any, len(d.Counts))
		for c, n := range d.Counts {
			counts[string(c)] = n
		}
		daily = append(daily, map[string]any{
			"date":          d.Date,
			"counts":        counts,
			"total_present": d.TotalPresent,
		})
	}

	columns := make([]any, len(rep.RosterColumns))
	for i, c := range rep.RosterColumns {
		columns[i] = c
	}

	st := rep.Stats
	return structpb.NewStruct(map[string]any{
		"ok":             resp.OK,
		"run_id":         resp.RunID,
		"server_time":    resp.ServerTime,
		"roster_columns": columns,
		"roster":         roster,
		"unknown":        unknown,
		"daily": map[string]any{
			"classes": classes,
			"rows":    daily,
		},
		"stats": map[string]any{
			"events_read":       st.EventsRead,
			"blank_identity":    st.BlankIdentity,
			"bad_timestamp":     st.BadTimestamp,
			"filtered_by_kind":  st.FilteredByKind,
			"roster_read":       st.RosterRead,
			"roster_blank":      st.RosterBlank,
			"roster_duplicates": st.RosterDuplicates,
			"known_active":      st.KnownActive,
			"unknown":           st.Unknown,
			"days":              st.Days,
		},
	})
}

// runSummariesToProto wraps run summaries in a Struct with a "runs" list.
func runSummariesToProto(runs []types.RunSummary) (*structpb.Struct, error) {
	list := make([]any, 0, len(runs))
	for _, r := range runs {
		list = append(list, map[string]any{
			"id":           r.ID,
			"created_at":   r.CreatedAt,
			"match":        string(r.Match),
			"case_fold":    r.CaseFold,
			"roster_size":  r.RosterSize,
			"known_active": r.KnownActive,
			"unknown":      r.Unknown,
			"days":         r.Days,
		})
	}
	return structpb.NewStruct(map[string]any{"runs": list})
}
