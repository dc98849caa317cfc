package ingest

import "strings"

// Header aliases, matched after normalizeHeader.
var (
	idAliases = []string{
		"id", "employee id", "emp id", "employee no", "emp no", "employee number",
		"staff id", "person id", "user id", "badge", "badge id", "badge number",
		"card", "card number", "card no", "card id", "credential",
	}
	nameAliases = []string{
		"name", "full name", "employee name", "person name", "display name", "user name", "cardholder",
	}
	firstNameAliases  = []string{"first name", "firstname", "given name", "fname", "first"}
	lastNameAliases   = []string{"last name", "lastname", "surname", "family name", "lname", "last"}
	departmentAliases = []string{"department", "dept", "team", "division", "group"}
	seatAliases       = []string{"seat", "seat no", "seat number", "desk", "desk no", "workstation"}

	timestampAliases = []string{
		"timestamp", "time stamp", "date time", "datetime", "date and time",
		"event datetime", "punch datetime", "access datetime", "occurred at", "logged at",
	}
	dateAliases = []string{"date", "day", "event date", "punch date", "access date", "log date"}
	timeAliases = []string{
		"time", "clock time", "time of day", "event time", "punch time", "access time", "log time",
	}
	kindAliases = []string{
		"event", "event type", "event kind", "kind", "type", "status", "result", "access result", "description",
	}
	doorAliases = []string{"door", "reader", "device", "location", "point", "entrance"}
)

type headerIndex map[string]int

func indexHeaders(headers []string) headerIndex {
	out := make(headerIndex, len(headers))
	for i, h := range headers {
		key := normalizeHeader(h)
		if _, exists := out[key]; !exists {
			out[key] = i
		}
	}
	return out
}

// normalizeHeader ignores case, spaces, underscores, dashes and dots.
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "", "-", "", ".", "", "#", "no").Replace(s)
}

func (h headerIndex) find(aliases []string) int {
	for _, a := range aliases {
		if idx, ok := h[normalizeHeader(a)]; ok {
			return idx
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
