package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health server

	// DB
	Env         string // "dev" | "prod"
	DBPath      string // e.g. "./data/rollcall.db"
	DatabaseURL string // optional Postgres for run history
	DBSchema    string

	// Reconciliation defaults, overridable per request.
	Match          string
	CaseFold       *bool // nil: fold only when matching by name
	CountableKinds []string
	Timezone       string

	MaxUploadMB int

	// Punch retention
	PunchRetentionDays int // 0 = keep forever
	PruneIntervalHours int // how often the pruner runs (default 6)
}

// LoadEnv reads .env (or the given files) into the process environment.
// Variables already set win.  A missing file is not an error.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("ROLLCALL_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	match := strings.ToLower(strings.TrimSpace(getenvDefault("ROLLCALL_MATCH", "id")))
	if match != "id" && match != "name" {
		match = "id"
	}

	return Config{
		HTTPAddr: getenvDefault("ROLLCALL_HTTP_ADDR", ":8080"),
		GRPCAddr: strings.TrimSpace(os.Getenv("ROLLCALL_GRPC_ADDR")),

		Env:         env,
		DBPath:      getenvDefault("ROLLCALL_DB_PATH", "./data/rollcall.db"),
		DatabaseURL: strings.TrimSpace(os.Getenv("ROLLCALL_DATABASE_URL")),
		DBSchema:    getenvDefault("ROLLCALL_DB_SCHEMA", "rollcall"),

		Match:          match,
		CaseFold:       getenvBool("ROLLCALL_CASE_FOLD"),
		CountableKinds: splitCSV(os.Getenv("ROLLCALL_COUNTABLE_KINDS")),
		Timezone:       getenvDefault("ROLLCALL_TIMEZONE", "UTC"),

		MaxUploadMB: getenvInt("ROLLCALL_MAX_UPLOAD_MB", 32),

		PunchRetentionDays: getenvInt("ROLLCALL_PUNCH_RETENTION_DAYS", 400),
		PruneIntervalHours: getenvInt("ROLLCALL_PRUNE_INTERVAL_HOURS", 6),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// getenvBool returns nil when key is unset or unparseable.
func getenvBool(key string) *bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
