package ingest

import (
	"io"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

const (
	TableRoster = "roster"
	TableEvents = "events"
)

// ReadRoster reads and parses a roster file.
func ReadRoster(r io.Reader, filename string, match types.MatchMode) (types.RosterTable, error) {
	rows, err := ReadRows(r, filename)
	if err != nil {
		return types.RosterTable{}, err
	}
	return ParseRoster(rows, match)
}

// ParseRoster maps raw rows to roster entries. The identity column is the
// ID column when matching by ID and the name column (or first plus last
// name) when matching by name. Rows are kept as-is, blank identities
// included; the reconciler decides what to drop.
func ParseRoster(rows [][]string, match types.MatchMode) (types.RosterTable, error) {
	if len(rows) == 0 {
		return types.RosterTable{}, ErrEmptyTable
	}
	header := rows[0]
	h := indexHeaders(header)

	idIdx := h.find(idAliases)
	nameIdx := h.find(nameAliases)
	firstIdx := h.find(firstNameAliases)
	lastIdx := h.find(lastNameAliases)
	deptIdx := h.find(departmentAliases)
	seatIdx := h.find(seatAliases)

	splitName := nameIdx < 0 && firstIdx >= 0 && lastIdx >= 0
	switch match {
	case types.MatchByName:
		if nameIdx < 0 && !splitName {
			return types.RosterTable{}, &MissingColumnError{Table: TableRoster, Column: "name"}
		}
	default:
		if idIdx < 0 {
			return types.RosterTable{}, &MissingColumnError{Table: TableRoster, Column: "id"}
		}
	}

	columns := make([]string, len(header))
	for i := range header {
		columns[i] = cell(header, i)
	}

	table := types.RosterTable{
		Match:   types.MatchByID,
		Columns: columns,
		Entries: make([]types.RosterEntry, 0, len(rows)-1),
	}
	if match == types.MatchByName {
		table.Match = types.MatchByName
	}
	for _, row := range rows[1:] {
		name := cell(row, nameIdx)
		if splitName {
			name = joinName(cell(row, firstIdx), cell(row, lastIdx))
		}

		entry := types.RosterEntry{
			Name:       name,
			Department: cell(row, deptIdx),
			Seat:       cell(row, seatIdx),
			Values:     padRow(row, len(columns)),
		}
		if match == types.MatchByName {
			entry.Key = name
		} else {
			entry.Key = cell(row, idIdx)
		}
		table.Entries = append(table.Entries, entry)
	}
	return table, nil
}

func padRow(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}
