// Package telemetry is the durable run ledger: an append-only event log and
// one upserted current-status row per hospital. Events are never mutated or
// deleted here; retention is an operational concern.
package telemetry

import "time"

// Severity levels recorded on events.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// Run outcomes recorded on the status row.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event is one immutable audit-log entry per pipeline stage transition.
type Event struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	Level       string                 `json:"level"`
	Name        string                 `json:"event"`
	HospitalID  string                 `json:"hospital_id"`
	Stage       string                 `json:"stage"`
	ErrorCode   string                 `json:"error_code,omitempty"`
	Message     string                 `json:"message"`
	DurationMS  *int64                 `json:"duration_ms,omitempty"`
	RecordCount *int                   `json:"record_count,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Status is the single current-state row for a hospital: created on the
// first run, overwritten on every subsequent one, never historical.
type Status struct {
	HospitalID           string     `json:"hospital_id"`
	LastRunAt            time.Time  `json:"last_run_at"`
	LastSuccessAt        *time.Time `json:"last_success_at,omitempty"`
	LastStatus           string     `json:"last_status"`
	LastErrorCode        string     `json:"last_error_code,omitempty"`
	PostprocessFailCount int        `json:"postprocess_fail_count"`
}

// EventFilter narrows ledger reads for the monitoring surface.
type EventFilter struct {
	HospitalID string
	Level      string
	Name       string
	Limit      int
}
