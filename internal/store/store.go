// Package store persists companies, acts, officers, documents and ingestion
// runs. Two backends exist: SQLite for single-machine use and Postgres for
// shared deployments. Both enforce the same uniqueness rules, so replaying a
// gazette day never duplicates rows.
package store

import (
	"context"
	"time"

	"github.com/registralia/borme-cli/internal/model"
)

// RunFilter specifies criteria for listing ingestion runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// CompanyFilter specifies structured criteria for listing companies.
type CompanyFilter struct {
	Province  string              `json:"province,omitempty"`
	Status    model.CompanyStatus `json:"status,omitempty"`
	LegalForm string              `json:"legal_form,omitempty"`
	Limit     int                 `json:"limit,omitempty"`
	Offset    int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Companies. The (normalized_name, province) pair is unique; the
	// resolver relies on it for identity.
	GetCompanyByKey(ctx context.Context, normalizedName, province string) (*model.Company, error)
	GetCompany(ctx context.Context, id int64) (*model.Company, error)
	CreateCompany(ctx context.Context, c *model.Company) (int64, error)
	UpdateCompany(ctx context.Context, c *model.Company) error
	ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error)
	// SearchCompanies matches free text against name, purpose and
	// locality. Each group holds interchangeable alternatives (synonym
	// expansion); groups are ANDed, alternatives ORed.
	SearchCompanies(ctx context.Context, groups [][]string, limit int) ([]model.Company, error)

	// Acts. Inserting a duplicate (company_id, gazette_id, act_type,
	// label) reports inserted=false instead of erroring.
	InsertAct(ctx context.Context, act *model.MercantileAct) (id int64, inserted bool, err error)
	ListActs(ctx context.Context, companyID int64) ([]model.MercantileAct, error)

	// Officers.
	ListOfficers(ctx context.Context, companyID int64) ([]model.Officer, error)
	UpsertOfficer(ctx context.Context, o *model.Officer) error
	DeactivateOfficer(ctx context.Context, officerID, actID int64, published time.Time) error

	// Source documents, keyed by content hash.
	UpsertDocument(ctx context.Context, doc *model.SourceDocument) error
	// BulkUpsertDocuments flushes a batch of document records at once;
	// ingestion uses it at day boundaries.
	BulkUpsertDocuments(ctx context.Context, docs []model.SourceDocument) error
	GetDocument(ctx context.Context, id string) (*model.SourceDocument, error)

	// Ingestion runs and their per-document ledger entries.
	CreateRun(ctx context.Context, run *model.IngestionRun) error
	// TransitionRun moves a run from one status to another and fails when
	// the run is not in the expected state.
	TransitionRun(ctx context.Context, runID string, from, to model.RunStatus) error
	FinishRun(ctx context.Context, run *model.IngestionRun) error
	GetRun(ctx context.Context, runID string) (*model.IngestionRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestionRun, error)
	UpsertDocEntry(ctx context.Context, entry *model.DocEntry) error
	ListDocEntries(ctx context.Context, runID string) ([]model.DocEntry, error)
	// CompletedGazetteIDs returns the gazette documents already processed
	// for a day by any earlier run, so re-runs skip them.
	CompletedGazetteIDs(ctx context.Context, day time.Time) (map[string]bool, error)

	// Merge anomalies flagged by the resolver.
	InsertAnomaly(ctx context.Context, a *model.MergeAnomaly) error
	ListAnomalies(ctx context.Context, runID string) ([]model.MergeAnomaly, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
