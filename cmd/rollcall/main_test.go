package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BrandonDHaskell/rollcall/internal/rollcall/types"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRun_WritesAllOutputs(t *testing.T) {
	dir := t.TempDir()
	roster := writeTemp(t, dir, "roster.csv", "Name,Seat\n\"Lee, Ann\",4B\nBo Chan,1A\n")
	events := writeTemp(t, dir, "events.csv",
		"First Name,Last Name,Event Time\nann,LEE,2024-01-02 09:00:00\nAnn,Lee,2024-01-02 12:00:00\nZed,Roe,2024-01-03 08:00:00\n")

	var out bytes.Buffer
	err := run([]string{
		"-roster", roster, "-events", events, "-match", "name",
		"-csv-dir", filepath.Join(dir, "csv"),
		"-xlsx", filepath.Join(dir, "out", "report.xlsx"),
		"-pdf", filepath.Join(dir, "out", "report.pdf"),
		"-json", filepath.Join(dir, "out", "report.json"),
		"-db", "sqlite", "-db-path", filepath.Join(dir, "db", "rollcall.db"),
	}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Roster present:     1", "Unknown identities: 1", "Run recorded as"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}

	f, err := os.Open(filepath.Join(dir, "csv", "roster.csv"))
	if err != nil {
		t.Fatalf("open roster.csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read roster.csv: %v", err)
	}
	if len(records) != 3 || records[1][0] != "Lee, Ann" {
		t.Errorf("unexpected roster.csv %v", records)
	}

	for _, name := range []string{"unknown.csv", "daily.csv"} {
		if _, err := os.Stat(filepath.Join(dir, "csv", name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	for _, name := range []string{"report.xlsx", "report.pdf"} {
		if st, err := os.Stat(filepath.Join(dir, "out", name)); err != nil || st.Size() == 0 {
			t.Errorf("missing or empty %s: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "out", "report.json"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var rep types.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if rep.Stats.KnownActive != 1 || rep.Roster[0].TotalDuration.Hours() != 3 {
		t.Errorf("unexpected json report stats=%+v", rep.Stats)
	}
}

func TestRun_FailedOutputLeavesNoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	roster := writeTemp(t, dir, "roster.csv", "id\n1\n")
	events := writeTemp(t, dir, "events.csv", "id,timestamp\n1,2024-01-02 09:00\n")

	// A directory where the JSON file should go makes the last write fail.
	taken := filepath.Join(dir, "taken")
	if err := os.Mkdir(taken, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	var out bytes.Buffer
	err := run([]string{
		"-roster", roster, "-events", events,
		"-csv-dir", filepath.Join(dir, "csv"),
		"-xlsx", filepath.Join(dir, "report.xlsx"),
		"-json", taken,
	}, &out)
	if err == nil {
		t.Fatal("expected write error")
	}

	for _, path := range []string{
		filepath.Join(dir, "csv", "roster.csv"),
		filepath.Join(dir, "csv", "unknown.csv"),
		filepath.Join(dir, "csv", "daily.csv"),
		filepath.Join(dir, "report.xlsx"),
	} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should not exist after a failed run (stat err=%v)", path, err)
		}
	}
	if strings.Contains(out.String(), "saved to") {
		t.Errorf("no output should be reported as saved:\n%s", out.String())
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no roster", []string{"-events", "e.csv"}},
		{"no events", []string{"-roster", "r.csv"}},
		{"bad db", []string{"-roster", "r.csv", "-events", "e.csv", "-db", "mysql"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseFlags(tc.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReconcileOptions(t *testing.T) {
	o := cliOptions{match: "id", caseFold: "yes", kinds: "entry, exit", tz: "America/New_York"}
	opts, err := o.reconcileOptions()
	if err != nil {
		t.Fatalf("reconcileOptions: %v", err)
	}
	if !opts.CaseFold || len(opts.CountableKinds) != 2 || opts.Location.String() != "America/New_York" {
		t.Errorf("unexpected options %+v", opts)
	}

	if _, err := (cliOptions{match: "badge", tz: "UTC"}).reconcileOptions(); err == nil {
		t.Error("expected error for bad match")
	}
	if _, err := (cliOptions{match: "id", tz: "Mars/Base"}).reconcileOptions(); err == nil {
		t.Error("expected error for bad tz")
	}
}

func TestRun_MissingColumnFails(t *testing.T) {
	dir := t.TempDir()
	roster := writeTemp(t, dir, "roster.csv", "Seat\n4B\n")
	events := writeTemp(t, dir, "events.csv", "id,timestamp\n1,2024-01-02 09:00\n")

	err := run([]string{"-roster", roster, "-events", events}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "roster") {
		t.Errorf("expected roster missing-column error, got %v", err)
	}
}
