package httpapi

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/reconcile"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

var validate = validator.New()

// Defaults are the server-wide reconciliation options that a request may
// override.
type Defaults struct {
	Match          types.MatchMode
	CaseFold       *bool
	CountableKinds []string
	Location       *time.Location
}

// reconcileQuery is the query string accepted by the reconcile, roster and
// punch endpoints.
type reconcileQuery struct {
	Match    string `validate:"omitempty,oneof=id name"`
	CaseFold string `validate:"omitempty,boolean"`
	Kinds    string `validate:"omitempty,max=512"`
	TZ       string `validate:"omitempty,timezone"`
	Format   string `validate:"omitempty,oneof=json csv xlsx pdf proto"`
	Table    string `validate:"omitempty,oneof=roster unknown daily"`
	From     string `validate:"omitempty,max=64"`
	To       string `validate:"omitempty,max=64"`
	Limit    string `validate:"omitempty,number"`
}

func parseQuery(v url.Values) (reconcileQuery, error) {
	q := reconcileQuery{
		Match:    strings.ToLower(strings.TrimSpace(v.Get("match"))),
		CaseFold: strings.TrimSpace(v.Get("case_fold")),
		Kinds:    strings.TrimSpace(v.Get("kinds")),
		TZ:       strings.TrimSpace(v.Get("tz")),
		Format:   strings.ToLower(strings.TrimSpace(v.Get("format"))),
		Table:    strings.ToLower(strings.TrimSpace(v.Get("table"))),
		From:     strings.TrimSpace(v.Get("from")),
		To:       strings.TrimSpace(v.Get("to")),
		Limit:    strings.TrimSpace(v.Get("limit")),
	}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// validationFields maps each failing query parameter to its rule.
func validationFields(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[queryName(fe.Field())] = fe.Tag()
	}
	return out
}

func queryName(field string) string {
	switch field {
	case "CaseFold":
		return "case_fold"
	case "TZ":
		return "tz"
	default:
		return strings.ToLower(field)
	}
}

// options merges the query over d.
func (q reconcileQuery) options(d Defaults) (types.Options, error) {
	match := d.Match
	if q.Match != "" {
		match = types.MatchMode(q.Match)
	}
	if match == "" {
		match = types.MatchByID
	}
	opts := types.DefaultOptions(match)

	switch {
	case q.CaseFold != "":
		b, _ := strconv.ParseBool(q.CaseFold)
		opts.CaseFold = b
	case q.Match == "" && d.CaseFold != nil:
		opts.CaseFold = *d.CaseFold
	}

	opts.CountableKinds = d.CountableKinds
	if q.Kinds != "" {
		opts.CountableKinds = splitList(q.Kinds)
	}

	opts.Location = d.Location
	if q.TZ != "" {
		loc, err := time.LoadLocation(q.TZ)
		if err != nil {
			return opts, fmt.Errorf("tz: %w", err)
		}
		opts.Location = loc
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return opts, nil
}

// window parses from/to in loc.  Either bound may be empty.
func (q reconcileQuery) window(loc *time.Location) (time.Time, time.Time, error) {
	var from, to time.Time
	if q.From != "" {
		t, ok := reconcile.ParseTimestamp(q.From, loc)
		if !ok {
			return from, to, fmt.Errorf("from: cannot parse %q", q.From)
		}
		from = t
	}
	if q.To != "" {
		t, ok := reconcile.ParseTimestamp(q.To, loc)
		if !ok {
			return from, to, fmt.Errorf("to: cannot parse %q", q.To)
		}
		to = t
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, errors.New("from must be before to")
	}
	return from, to, nil
}

func (q reconcileQuery) limit() int {
	n, err := strconv.Atoi(q.Limit)
	if err != nil || n <= 0 {
		return 50
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
