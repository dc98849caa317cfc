// Command rollcall reconciles a seating roster against a badge punch log and
// writes the enriched roster, the visitor list and the daily summary.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BrandonDHaskell/rollcall/internal/config"
	"github.com/BrandonDHaskell/rollcall/internal/db"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/export"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/ingest"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/service"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/store/postgres"
	sqlitestore "github.com/BrandonDHaskell/rollcall/internal/rollcall/store/sqlite"
	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		exitWithError(err)
	}
}

type cliOptions struct {
	rosterPath string
	eventsPath string
	match      string
	caseFold   string
	kinds      string
	tz         string
	csvDir     string
	xlsxOut    string
	pdfOut     string
	jsonOut    string
	dbKind     string
	dbPath     string
	dbURL      string
	dbSchema   string
}

func parseFlags(args []string) (cliOptions, error) {
	var o cliOptions
	fs := flag.NewFlagSet("rollcall", flag.ContinueOnError)
	fs.StringVar(&o.rosterPath, "roster", "", "Path to the seating roster (csv, tsv, xlsx, xls)")
	fs.StringVar(&o.eventsPath, "events", "", "Path to the badge punch log (csv, tsv, xlsx, xls)")
	fs.StringVar(&o.match, "match", "id", "Identity to match on: id or name")
	fs.StringVar(&o.caseFold, "case-fold", "", "Case-insensitive matching (true/false); default true for name, false for id")
	fs.StringVar(&o.kinds, "kinds", "", "Comma-separated event kinds that count as attendance; default all")
	fs.StringVar(&o.tz, "tz", "UTC", "IANA time zone used to derive calendar dates")
	fs.StringVar(&o.csvDir, "csv-dir", "", "Optional directory for roster.csv, unknown.csv and daily.csv")
	fs.StringVar(&o.xlsxOut, "xlsx", "", "Optional workbook output path")
	fs.StringVar(&o.pdfOut, "pdf", "", "Optional PDF summary output path")
	fs.StringVar(&o.jsonOut, "json", "", "Optional JSON report output path")
	fs.StringVar(&o.dbKind, "db", "", "Record the run in a database: sqlite or postgres")
	fs.StringVar(&o.dbPath, "db-path", os.Getenv("ROLLCALL_DB_PATH"), "SQLite path when -db=sqlite")
	fs.StringVar(&o.dbURL, "db-url", firstNonEmpty(os.Getenv("ROLLCALL_DATABASE_URL"), os.Getenv("DATABASE_URL")), "Postgres URL when -db=postgres")
	fs.StringVar(&o.dbSchema, "db-schema", "rollcall", "Postgres schema for run history")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if o.rosterPath == "" {
		return o, errors.New("-roster is required")
	}
	if o.eventsPath == "" {
		return o, errors.New("-events is required")
	}
	switch o.dbKind {
	case "", "sqlite", "postgres":
	default:
		return o, fmt.Errorf("-db must be sqlite or postgres, got %q", o.dbKind)
	}
	return o, nil
}

func (o cliOptions) reconcileOptions() (types.Options, error) {
	match, ok := types.ParseMatchMode(o.match)
	if !ok {
		return types.Options{}, fmt.Errorf("-match must be id or name, got %q", o.match)
	}
	opts := types.DefaultOptions(match)
	if o.caseFold != "" {
		switch strings.ToLower(o.caseFold) {
		case "1", "t", "true", "yes":
			opts.CaseFold = true
		case "0", "f", "false", "no":
			opts.CaseFold = false
		default:
			return opts, fmt.Errorf("invalid -case-fold %q", o.caseFold)
		}
	}
	for _, k := range strings.Split(o.kinds, ",") {
		if k = strings.TrimSpace(k); k != "" {
			opts.CountableKinds = append(opts.CountableKinds, k)
		}
	}
	loc, err := time.LoadLocation(o.tz)
	if err != nil {
		return opts, fmt.Errorf("invalid -tz: %w", err)
	}
	opts.Location = loc
	return opts, nil
}

func run(args []string, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	opts, err := o.reconcileOptions()
	if err != nil {
		return err
	}

	roster, err := readRoster(o.rosterPath, opts.Match)
	if err != nil {
		return err
	}
	events, err := readEvents(o.eventsPath, opts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	runs, closeRuns, err := openRunStore(ctx, o)
	if err != nil {
		return err
	}
	defer closeRuns()

	logger := log.New(os.Stderr, "rollcall ", log.LstdFlags|log.LUTC)
	svc := service.NewReconcileService(nil, nil, runs, logger)
	report, runID, err := svc.Run(ctx, roster, events, opts)
	if err != nil {
		return err
	}

	printReport(stdout, report, o)
	if runID != "" {
		fmt.Fprintf(stdout, "\nRun recorded as %s\n", runID)
	}
	return writeOutputs(stdout, report, o)
}

func readRoster(path string, match types.MatchMode) (types.RosterTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.RosterTable{}, err
	}
	defer f.Close()
	return ingest.ReadRoster(f, filepath.Base(path), match)
}

func readEvents(path string, opts types.Options) ([]types.EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ingest.ReadEvents(f, filepath.Base(path), ingest.EventOptions{
		Match:       opts.Match,
		RequireKind: len(opts.CountableKinds) > 0,
	})
}

// openRunStore returns nil when no -db was given.
func openRunStore(ctx context.Context, o cliOptions) (store.RunStore, func(), error) {
	switch o.dbKind {
	case "sqlite":
		conn, err := db.Open(ctx, db.Config{Path: o.dbPath})
		if err != nil {
			return nil, nil, err
		}
		w := db.NewWorker(conn)
		return sqlitestore.NewRunStore(conn, w), func() { w.Close(); conn.Close() }, nil
	case "postgres":
		if o.dbURL == "" {
			return nil, nil, errors.New("-db=postgres requires -db-url, ROLLCALL_DATABASE_URL or DATABASE_URL")
		}
		pctx, cancel := context.WithTimeout(ctx, 12*time.Second)
		defer cancel()
		pool, err := pgxpool.New(pctx, o.dbURL)
		if err != nil {
			return nil, nil, err
		}
		rs, err := postgres.NewRunStore(pool, o.dbSchema)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		if err := rs.EnsureSchema(pctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return rs, pool.Close, nil
	default:
		return nil, func() {}, nil
	}
}

func printReport(w io.Writer, rep types.Report, o cliOptions) {
	st := rep.Stats
	fmt.Fprintln(w, "Attendance Reconciliation")
	fmt.Fprintf(w, "Roster: %s\nEvents: %s\n\n", o.rosterPath, o.eventsPath)
	fmt.Fprintf(w, "Roster entries:     %d (blank %d, duplicate %d)\n", len(rep.Roster), st.RosterBlank, st.RosterDuplicates)
	fmt.Fprintf(w, "Events read:        %d (blank id %d, bad time %d, filtered %d)\n",
		st.EventsRead, st.BlankIdentity, st.BadTimestamp, st.FilteredByKind)
	fmt.Fprintf(w, "Roster present:     %d\n", st.KnownActive)
	fmt.Fprintf(w, "Unknown identities: %d\n", st.Unknown)
	fmt.Fprintf(w, "Days covered:       %d\n", st.Days)

	if len(rep.Daily.Rows) > 0 {
		fmt.Fprintln(w, "\nDaily presence")
		for _, d := range rep.Daily.Rows {
			parts := make([]string, 0, len(rep.Daily.Classes))
			for _, c := range rep.Daily.Classes {
				parts = append(parts, fmt.Sprintf("%s=%d", c, d.Counts[c]))
			}
			fmt.Fprintf(w, "- %s: %s total=%d\n", d.Date, strings.Join(parts, " "), d.TotalPresent)
		}
	}

	if len(rep.Unknown) > 0 {
		fmt.Fprintln(w, "\nTop unknown identities")
		for i, u := range rep.Unknown {
			if i == 10 {
				fmt.Fprintf(w, "... and %d more\n", len(rep.Unknown)-10)
				break
			}
			fmt.Fprintf(w, "- %s: %d days, %.2f h\n", u.Key, u.DaysVisited, types.Hours(u.TotalDuration))
		}
	}
}

// artifact is one rendered output file.
type artifact struct {
	path string
	note string
	body []byte
}

// writeOutputs renders every requested file before writing any of them, and
// removes what it wrote if a later write fails.
func writeOutputs(stdout io.Writer, rep types.Report, o cliOptions) error {
	arts, err := renderOutputs(rep, o)
	if err != nil {
		return err
	}

	written := make([]string, 0, len(arts))
	for _, a := range arts {
		if err := writeFile(a.path, a.body); err != nil {
			for _, p := range written {
				_ = os.Remove(p)
			}
			return err
		}
		written = append(written, a.path)
	}

	for _, a := range arts {
		if a.note != "" {
			fmt.Fprintln(stdout, a.note)
		}
	}
	return nil
}

func renderOutputs(rep types.Report, o cliOptions) ([]artifact, error) {
	var arts []artifact
	render := func(path, note string, fn func(io.Writer) error) error {
		var buf bytes.Buffer
		if err := fn(&buf); err != nil {
			return fmt.Errorf("render %s: %w", path, err)
		}
		arts = append(arts, artifact{path: path, note: note, body: buf.Bytes()})
		return nil
	}

	if o.csvDir != "" {
		for i, table := range export.Tables {
			note := ""
			if i == len(export.Tables)-1 {
				note = "\nCSV tables saved to " + o.csvDir
			}
			path := filepath.Join(o.csvDir, table+".csv")
			if err := render(path, note, func(w io.Writer) error { return export.WriteCSV(w, rep, table) }); err != nil {
				return nil, err
			}
		}
	}
	if o.xlsxOut != "" {
		if err := render(o.xlsxOut, "Workbook saved to "+o.xlsxOut, func(w io.Writer) error {
			return export.WriteWorkbook(w, rep)
		}); err != nil {
			return nil, err
		}
	}
	if o.pdfOut != "" {
		if err := render(o.pdfOut, "PDF summary saved to "+o.pdfOut, func(w io.Writer) error {
			return export.WritePDF(w, rep, "Attendance reconciliation")
		}); err != nil {
			return nil, err
		}
	}
	if o.jsonOut != "" {
		if err := render(o.jsonOut, "JSON report saved to "+o.jsonOut, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}); err != nil {
			return nil, err
		}
	}
	return arts, nil
}

func writeFile(path string, body []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
