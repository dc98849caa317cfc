package types

import (
	"strings"
	"time"
)

// MatchMode selects which roster column identities are matched on.
type MatchMode string

const (
	MatchByID   MatchMode = "id"
	MatchByName MatchMode = "name"
)

type Classification string

const (
	Known   Classification = "known"
	Unknown Classification = "unknown"
)

// Classifications lists every classification in column order.
var Classifications = []Classification{Known, Unknown}

// Options is the normalization policy for one reconciliation.
type Options struct {
	Match    MatchMode
	CaseFold bool

	// CountableKinds restricts which event kinds count as attendance.
	// Empty means every event counts.
	CountableKinds []string

	// Location is used to derive calendar dates. Nil means UTC.
	Location *time.Location
}

// DefaultOptions case-folds only when matching by name.
func DefaultOptions(match MatchMode) Options {
	return Options{
		Match:    match,
		CaseFold: match == MatchByName,
		Location: time.UTC,
	}
}

func ParseMatchMode(s string) (MatchMode, bool) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchByID:
		return MatchByID, true
	case MatchByName:
		return MatchByName, true
	default:
		return "", false
	}
}

// RosterEntry is one seated person. Values holds the original row aligned
// to RosterTable.Columns.
type RosterEntry struct {
	Key        string   `json:"key"`
	Name       string   `json:"name,omitempty"`
	Department string   `json:"department,omitempty"`
	Seat       string   `json:"seat,omitempty"`
	Values     []string `json:"values,omitempty"`
}

type RosterTable struct {
	// Match is the mode the entry keys were read with. Empty when unknown.
	Match   MatchMode     `json:"match,omitempty"`
	Columns []string      `json:"columns"`
	Entries []RosterEntry `json:"entries"`
}

// EventRecord is one punch from the security system, timestamp unparsed.
type EventRecord struct {
	Key       string `json:"key"`
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Door      string `json:"door,omitempty"`
}

// DayVisit is the first and last punch of one identity on one date.
type DayVisit struct {
	Date     string        `json:"date"`
	FirstIn  time.Time     `json:"first_in"`
	LastOut  time.Time     `json:"last_out"`
	Duration time.Duration `json:"duration_ns"`
}

type VisitAggregate struct {
	Key           string        `json:"key"`
	DaysVisited   int           `json:"days_visited"`
	EventCount    int           `json:"event_count"`
	TotalDuration time.Duration `json:"total_duration_ns"`
	Days          []DayVisit    `json:"days"`
}

// FirstVisit returns the earliest visit date, or "" when there is none.
func (v VisitAggregate) FirstVisit() string {
	if len(v.Days) == 0 {
		return ""
	}
	return v.Days[0].Date
}

func (v VisitAggregate) LastVisit() string {
	if len(v.Days) == 0 {
		return ""
	}
	return v.Days[len(v.Days)-1].Date
}

// RosterRow is one roster entry joined with its visits. Date fields are
// empty strings when the entry never visited.
type RosterRow struct {
	RosterEntry
	NormalizedKey string        `json:"normalized_key"`
	DaysVisited   int           `json:"days_visited"`
	FirstVisit    string        `json:"first_visit"`
	LastVisit     string        `json:"last_visit"`
	TotalDuration time.Duration `json:"total_duration_ns"`
	Days          []DayVisit    `json:"days,omitempty"`
}

// UnknownRow is an identity seen in the punch log but absent from the roster.
type UnknownRow struct {
	Key           string        `json:"key"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	DaysVisited   int           `json:"days_visited"`
	FirstVisit    string        `json:"first_visit"`
	LastVisit     string        `json:"last_visit"`
	EventCount    int           `json:"event_count"`
	TotalDuration time.Duration `json:"total_duration_ns"`
	Days          []DayVisit    `json:"days,omitempty"`
}

type DailyRow struct {
	Date         string                 `json:"date"`
	Counts       map[Classification]int `json:"counts"`
	TotalPresent int                    `json:"total_present"`
}

// DailySummary holds one row per date. Classes lists the classification
// columns observed anywhere in the data, in Classifications order.
type DailySummary struct {
	Classes []Classification `json:"classes"`
	Rows    []DailyRow       `json:"rows"`
}

// Stats counts what was read and what was skipped during a run.
type Stats struct {
	EventsRead     int `json:"events_read"`
	BlankIdentity  int `json:"blank_identity"`
	BadTimestamp   int `json:"bad_timestamp"`
	FilteredByKind int `json:"filtered_by_kind"`

	RosterRead       int `json:"roster_read"`
	RosterBlank      int `json:"roster_blank"`
	RosterDuplicates int `json:"roster_duplicates"`

	KnownActive int `json:"known_active"`
	Unknown     int `json:"unknown"`
	Days        int `json:"days"`
}

type Report struct {
	RosterColumns []string     `json:"roster_columns"`
	Roster        []RosterRow  `json:"roster"`
	Unknown       []UnknownRow `json:"unknown"`
	Daily         DailySummary `json:"daily"`
	Stats         Stats        `json:"stats"`
}

// Hours renders d as hours rounded to two decimals.
func Hours(d time.Duration) float64 {
	return float64(d.Round(36*time.Second)) / float64(time.Hour)
}
