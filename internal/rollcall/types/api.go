package types

type ReconcileResponse struct {
	OK         bool   `json:"ok"`
	RunID      string `json:"run_id,omitempty"`
	Report     Report `json:"report"`
	ServerTime string `json:"server_time"`
}

type ImportResponse struct {
	OK         bool      `json:"ok"`
	ImportID   string    `json:"import_id"`
	Source     string    `json:"source"`
	Match      MatchMode `json:"match"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	ServerTime string    `json:"server_time"`
}

type RosterResponse struct {
	OK         bool      `json:"ok"`
	Match      MatchMode `json:"match"`
	Entries    int       `json:"entries"`
	Columns    []string  `json:"columns"`
	ServerTime string    `json:"server_time"`
}

// RunSummary is the listing view of a persisted reconciliation.
type RunSummary struct {
	ID          string    `json:"id"`
	CreatedAt   string    `json:"created_at"`
	Match       MatchMode `json:"match"`
	CaseFold    bool      `json:"case_fold"`
	RosterSize  int       `json:"roster_size"`
	KnownActive int       `json:"known_active"`
	Unknown     int       `json:"unknown"`
	Days        int       `json:"days"`
}
