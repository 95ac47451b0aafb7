package model

import "time"

// CompanyStatus is the lifecycle state inferred from the acts seen so far.
type CompanyStatus string

const (
	CompanyActive        CompanyStatus = "activa"
	CompanyDissolved     CompanyStatus = "disuelta"
	CompanyInLiquidation CompanyStatus = "en_liquidacion"
	CompanyExtinct       CompanyStatus = "extinguida"
)

// Company is the cumulative record for one mercantile entity, keyed by
// normalized name + province (no stable tax identifier appears in gazette
// data, so two distinct companies with identical normalized names in the same
// province will merge — a disclosed limitation). Never deleted; acts only
// accumulate.
type Company struct {
	ID               int64         `json:"id" db:"id"`
	Name             string        `json:"name" db:"name"`
	NormalizedName   string        `json:"normalized_name" db:"normalized_name"`
	LegalForm        string        `json:"legal_form,omitempty" db:"legal_form"`
	Address          string        `json:"address,omitempty" db:"address"`
	Locality         string        `json:"locality,omitempty" db:"locality"`
	Province         string        `json:"province" db:"province"`
	Capital          *float64      `json:"capital,omitempty" db:"capital"`
	CorporatePurpose string        `json:"corporate_purpose,omitempty" db:"corporate_purpose"`
	SectorEstimate   string        `json:"sector_estimate,omitempty" db:"sector_estimate"`
	Status           CompanyStatus `json:"status" db:"status"`
	IncorporatedOn   *time.Time    `json:"incorporated_on,omitempty" db:"incorporated_on"`
	FirstPublished   time.Time     `json:"first_published" db:"first_published"`
	LastPublished    time.Time     `json:"last_published" db:"last_published"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// Officer is a roster entry for a company. An officer stays active until a
// later resignation act supersedes the appointment.
type Officer struct {
	ID             int64     `json:"id" db:"id"`
	CompanyID      int64     `json:"company_id" db:"company_id"`
	Name           string    `json:"name" db:"name"`
	Role           string    `json:"role" db:"role"`
	Active         bool      `json:"active" db:"active"`
	EffectiveActID int64     `json:"effective_act_id" db:"effective_act_id"`
	Published      time.Time `json:"published" db:"published"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// AnomalyKind classifies a recoverable merge conflict.
type AnomalyKind string

const (
	AnomalyUnmatchedResignation AnomalyKind = "unmatched_resignation"
	AnomalyCapitalRegression    AnomalyKind = "capital_regression"
	AnomalyParse                AnomalyKind = "parse"
)

// MergeAnomaly records a conflict the resolver recovered from. Anomalies are
// logged and persisted but never fail a run.
type MergeAnomaly struct {
	ID        int64       `json:"id" db:"id"`
	RunID     string      `json:"run_id" db:"run_id"`
	CompanyID int64       `json:"company_id" db:"company_id"`
	ActID     int64       `json:"act_id" db:"act_id"`
	Kind      AnomalyKind `json:"kind" db:"kind"`
	Detail    string      `json:"detail" db:"detail"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}
