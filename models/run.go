package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// CrawlRun records one fetch execution for observability.
type CrawlRun struct {
	ID            int64      `json:"id" db:"id"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        RunStatus  `json:"status" db:"status"`
	Found         int        `json:"found" db:"found"`
	Stored        int        `json:"stored" db:"stored"`
	PriceFiltered int        `json:"price_filtered" db:"price_filtered"`
	Dropped       int        `json:"dropped" db:"dropped"`
	FetchFailures int        `json:"fetch_failures" db:"fetch_failures"`
	ErrorMessage  string     `json:"error_message" db:"error_message"`
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
