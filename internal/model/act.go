package model

import "time"

// ActType is the normalized classification of a gazette notice.
type ActType string

const (
	ActIncorporation ActType = "incorporation"
	ActAppointment   ActType = "appointment"
	ActResignation   ActType = "resignation"
	ActCapitalChange ActType = "capital_change"
	ActDissolution   ActType = "dissolution"
	ActOther         ActType = "other"
)

// ExtractionStatus communicates how much of a notice block the extractor
// recovered, without treating routine formatting drift as an error.
type ExtractionStatus string

const (
	ExtractionFull         ExtractionStatus = "full"
	ExtractionPartial      ExtractionStatus = "partial"
	ExtractionUnclassified ExtractionStatus = "unclassified"
)

// ExtractedOfficer is an officer name/role pair recovered from an appointment
// or resignation notice.
type ExtractedOfficer struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ExtractedFields holds the structured fields recovered from one notice block.
// Absent fields stay zero-valued: a malformed capital figure is left nil, not
// guessed.
type ExtractedFields struct {
	CompanyName      string             `json:"company_name"`
	LegalForm        string             `json:"legal_form,omitempty"`
	Address          string             `json:"address,omitempty"`
	Locality         string             `json:"locality,omitempty"`
	Province         string             `json:"province,omitempty"`
	Capital          *float64           `json:"capital,omitempty"` // EUR
	CorporatePurpose string             `json:"corporate_purpose,omitempty"`
	SectorEstimate   string             `json:"sector_estimate,omitempty"` // CNAE division, best-effort
	OperationsStart  *time.Time         `json:"operations_start,omitempty"`
	Officers         []ExtractedOfficer `json:"officers,omitempty"`
}

// MercantileAct is one legal notice extracted from a source document.
// Immutable after creation: corrections require a new act, never a mutation.
type MercantileAct struct {
	ID         int64            `json:"id" db:"id"`
	CompanyID  int64            `json:"company_id" db:"company_id"`
	DocumentID string           `json:"document_id" db:"document_id"`
	GazetteID  string           `json:"gazette_id" db:"gazette_id"`
	Type       ActType          `json:"type" db:"act_type"`
	Label      string           `json:"label" db:"label"` // original gazette heading, e.g. "Ceses/Dimisiones"
	Status     ExtractionStatus `json:"status" db:"status"`
	Published  time.Time        `json:"published" db:"published"`
	Excerpt    string           `json:"excerpt,omitempty" db:"excerpt"`
	Fields     ExtractedFields  `json:"fields" db:"fields"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}
