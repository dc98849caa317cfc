package ingest

import (
	"io"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

type EventOptions struct {
	Match types.MatchMode

	// RequireKind makes a missing event-kind column fatal. Set it when a
	// countable-kind filter is configured.
	RequireKind bool
}

func ReadEvents(r io.Reader, filename string, opts EventOptions) ([]types.EventRecord, error) {
	rows, err := ReadRows(r, filename)
	if err != nil {
		return nil, err
	}
	return ParseEvents(rows, opts)
}

// ParseEvents maps raw punch-log rows to event records. The timestamp comes
// from separate date and time columns when both exist, otherwise from a
// single date-time column. A lone date or time column is used as is.
func ParseEvents(rows [][]string, opts EventOptions) ([]types.EventRecord, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	h := indexHeaders(rows[0])

	idIdx := h.find(idAliases)
	nameIdx := h.find(nameAliases)
	firstIdx := h.find(firstNameAliases)
	lastIdx := h.find(lastNameAliases)
	tsIdx := h.find(timestampAliases)
	dateIdx := h.find(dateAliases)
	timeIdx := h.find(timeAliases)
	kindIdx := h.find(kindAliases)
	doorIdx := h.find(doorAliases)

	switch opts.Match {
	case types.MatchByName:
		if nameIdx < 0 && (firstIdx < 0 || lastIdx < 0) {
			return nil, &MissingColumnError{Table: TableEvents, Column: "name"}
		}
	default:
		if idIdx < 0 {
			return nil, &MissingColumnError{Table: TableEvents, Column: "id"}
		}
	}
	paired := dateIdx >= 0 && timeIdx >= 0
	if !paired && tsIdx < 0 {
		switch {
		case dateIdx >= 0:
			tsIdx = dateIdx
		case timeIdx >= 0:
			tsIdx = timeIdx
		default:
			return nil, &MissingColumnError{Table: TableEvents, Column: "timestamp"}
		}
	}
	if opts.RequireKind && kindIdx < 0 {
		return nil, &MissingColumnError{Table: TableEvents, Column: "event kind"}
	}

	out := make([]types.EventRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var ts string
		if paired {
			ts = joinDateTime(cell(row, dateIdx), cell(row, timeIdx))
		} else {
			ts = cell(row, tsIdx)
		}

		rec := types.EventRecord{
			Timestamp: ts,
			Kind:      cell(row, kindIdx),
			FirstName: cell(row, firstIdx),
			LastName:  cell(row, lastIdx),
			Door:      cell(row, doorIdx),
		}
		if opts.Match == types.MatchByName {
			rec.Key = cell(row, nameIdx)
		} else {
			rec.Key = cell(row, idIdx)
		}
		out = append(out, rec)
	}
	return out, nil
}
