// Package model defines the domain types shared across the ingestion pipeline.
package model

import (
	"time"
)

// RunStatus represents the current state of an ingestion run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusPartial, RunStatusFailed:
		return true
	default:
		return false
	}
}

// IngestionRun is one attempt at ingesting a date range. Rows are append-only
// history: a run is never deleted, only its status advances.
type IngestionRun struct {
	ID                 string     `json:"id" db:"id"`
	FromDate           time.Time  `json:"from_date" db:"from_date"`
	ToDate             time.Time  `json:"to_date" db:"to_date"`
	Status             RunStatus  `json:"status" db:"status"`
	StartedAt          *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	DocumentsTotal     int        `json:"documents_total" db:"documents_total"`
	DocumentsProcessed int        `json:"documents_processed" db:"documents_processed"`
	DocumentsFailed    int        `json:"documents_failed" db:"documents_failed"`
	Error              string     `json:"error,omitempty" db:"error"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// DocStatus is the per-document ledger state within a run.
type DocStatus string

const (
	DocStatusPending   DocStatus = "pending"
	DocStatusCompleted DocStatus = "completed"
	DocStatusFailed    DocStatus = "failed"
	DocStatusSkipped   DocStatus = "skipped" // completed by an earlier run over the same date
)

// DocEntry is one document's progress record in the run ledger. A date that
// published no gazette produces no entries; a failed fetch produces an entry
// with status failed and the failure reason.
type DocEntry struct {
	ID         int64     `json:"id" db:"id"`
	RunID      string    `json:"run_id" db:"run_id"`
	GazetteID  string    `json:"gazette_id" db:"gazette_id"`
	GazetteDay time.Time `json:"gazette_day" db:"gazette_day"`
	Province   string    `json:"province" db:"province"`
	Status     DocStatus `json:"status" db:"status"`
	ActCount   int       `json:"act_count" db:"act_count"`
	Error      string    `json:"error,omitempty" db:"error"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
