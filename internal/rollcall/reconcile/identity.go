package reconcile

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

// Normalizer turns raw identity strings into canonical matching keys.
type Normalizer struct {
	match    types.MatchMode
	caseFold bool
	fold     cases.Caser
}

func NewNormalizer(match types.MatchMode, caseFold bool) Normalizer {
	return Normalizer{match: match, caseFold: caseFold, fold: cases.Fold()}
}

// Key returns the canonical key for raw. The second result is false when
// raw is blank after trimming.
func (n Normalizer) Key(raw string) (string, bool) {
	fields := strings.Fields(norm.NFC.String(raw))
	if len(fields) == 0 {
		return "", false
	}
	key := strings.Join(fields, " ")

	if n.match == types.MatchByName {
		key = reorderName(key)
		if key == "" {
			return "", false
		}
	}
	if n.caseFold {
		key = n.fold.String(key)
	}
	return key, true
}

// EventKey uses the event's identity column, falling back to first and last
// name when matching by name.
func (n Normalizer) EventKey(ev types.EventRecord) (string, bool) {
	if k, ok := n.Key(ev.Key); ok {
		return k, true
	}
	if n.match != types.MatchByName {
		return "", false
	}
	return n.Key(ev.FirstName + " " + ev.LastName)
}

// reorderName rewrites "Last, First" as "First Last".
func reorderName(s string) string {
	last, first, ok := strings.Cut(s, ",")
	if !ok {
		return s
	}
	last = strings.TrimSpace(last)
	first = strings.TrimSpace(first)
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
