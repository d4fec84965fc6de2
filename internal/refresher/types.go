package refresher

import "time"

// ScopeStatus - итог обновления сетки одного сервиса
type ScopeStatus struct {
	Scope    string         `json:"scope"`
	Rows     int            `json:"rows"`
	Columns  int            `json:"columns"`
	Cells    int            `json:"cells"`
	Counts   map[string]int `json:"counts,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
}

type CycleSummary struct {
	GeneratedAt    time.Time     `json:"generated_at"`
	ScopesTotal    int           `json:"scopes_total"`
	RefreshedCount int           `json:"refreshed_count"`
	FailedCount    int           `json:"failed_count"`
	EmptyCount     int           `json:"empty_count"`
	Scopes         []ScopeStatus `json:"scopes"`
}

type Snapshot struct {
	StartedAt   time.Time     `json:"started_at"`
	Interval    time.Duration `json:"interval_ns"`
	LastRunAt   time.Time     `json:"last_run_at"`
	LastError   string        `json:"last_error,omitempty"`
	LastSummary *CycleSummary `json:"last_summary,omitempty"`
}
