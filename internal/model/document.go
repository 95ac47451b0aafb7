package model

import "time"

// DocumentRef is one entry in a gazette day's summary listing: a pointer to a
// section-A PDF for a single province.
type DocumentRef struct {
	GazetteID string    `json:"gazette_id"` // e.g. BORME-A-2025-28-02
	Day       time.Time `json:"day"`
	Province  string    `json:"province"`
	URL       string    `json:"url"`
}

// FetchStatus records the outcome of acquiring a source document.
type FetchStatus string

const (
	FetchStatusFetched FetchStatus = "fetched"
	FetchStatusCached  FetchStatus = "cached" // content was already present
	FetchStatusFailed  FetchStatus = "failed"
)

// SourceDocument is an acquired gazette document. ID is derived from the
// document content (SHA-256), so re-fetching the same reference under a
// different URL or run resolves to the same record. Immutable once fetched.
type SourceDocument struct {
	ID          string      `json:"id" db:"id"` // hex SHA-256 of raw content
	GazetteID   string      `json:"gazette_id" db:"gazette_id"`
	OriginDate  time.Time   `json:"origin_date" db:"origin_date"`
	Province    string      `json:"province" db:"province"`
	URL         string      `json:"url" db:"url"`
	Path        string      `json:"path" db:"path"` // cached location on disk
	SizeBytes   int64       `json:"size_bytes" db:"size_bytes"`
	FetchStatus FetchStatus `json:"fetch_status" db:"fetch_status"`
	FetchedAt   time.Time   `json:"fetched_at" db:"fetched_at"`
}
