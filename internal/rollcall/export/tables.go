// Package export renders a reconciliation report as CSV, xlsx and PDF.
package export

import (
	"fmt"
	"strconv"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// Table names accepted by WriteCSV.
const (
	TableRoster  = "roster"
	TableUnknown = "unknown"
	TableDaily   = "daily"
)

var Tables = []string{TableRoster, TableUnknown, TableDaily}

func IsTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}

// Records returns the header and rows of one table.
func Records(rep types.Report, table string) ([][]string, error) {
	switch table {
	case TableRoster:
		return rosterRecords(rep), nil
	case TableUnknown:
		return unknownRecords(rep), nil
	case TableDaily:
		return dailyRecords(rep), nil
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
}

func rosterRecords(rep types.Report) [][]string {
	header := append([]string{}, rep.RosterColumns...)
	if len(header) == 0 {
		header = []string{"identity", "name", "department", "seat"}
	}
	header = append(header, "days_visited", "first_visit", "last_visit", "total_hours", "avg_hours")

	out := make([][]string, 0, len(rep.Roster)+1)
	out = append(out, header)
	for _, r := range rep.Roster {
		var rec []string
		if len(rep.RosterColumns) > 0 {
			rec = append(rec, r.Values...)
		} else {
			rec = append(rec, r.Key, r.Name, r.Department, r.Seat)
		}
		rec = append(rec,
			itoa(r.DaysVisited),
			r.FirstVisit,
			r.LastVisit,
			hours(r.TotalDuration.Hours(), r.DaysVisited > 0),
			hours(avgHours(r.TotalDuration.Hours(), r.DaysVisited), r.DaysVisited > 0),
		)
		out = append(out, rec)
	}
	return out
}

func unknownRecords(rep types.Report) [][]string {
	out := make([][]string, 0, len(rep.Unknown)+1)
	out = append(out, []string{
		"identity", "first_name", "last_name", "days_visited",
		"first_visit", "last_visit", "total_hours", "event_count",
	})
	for _, u := range rep.Unknown {
		out = append(out, []string{
			u.Key,
			u.FirstName,
			u.LastName,
			itoa(u.DaysVisited),
			u.FirstVisit,
			u.LastVisit,
			hours(u.TotalDuration.Hours(), u.DaysVisited > 0),
			itoa(u.EventCount),
		})
	}
	return out
}

func dailyRecords(rep types.Report) [][]string {
	header := []string{"date"}
	for _, c := range rep.Daily.Classes {
		header = append(header, string(c))
	}
	header = append(header, "total_present")

	out := make([][]string, 0, len(rep.Daily.Rows)+1)
	out = append(out, header)
	for _, row := range rep.Daily.Rows {
		rec := []string{row.Date}
		for _, c := range rep.Daily.Classes {
			rec = append(rec, itoa(row.Counts[c]))
		}
		rec = append(rec, itoa(row.TotalPresent))
		out = append(out, rec)
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// hours renders "" for identities that never visited so the column reads
// as empty rather than zero.
func hours(h float64, visited bool) string {
	if !visited {
		return ""
	}
	return strconv.FormatFloat(h, 'f', 2, 64)
}

func avgHours(total float64, days int) float64 {
	if days == 0 {
		return 0
	}
	return total / float64(days)
}
