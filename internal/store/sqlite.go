package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/registralia/borme-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	legal_form      TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	locality        TEXT NOT NULL DEFAULT '',
	province        TEXT NOT NULL,
	capital         REAL,
	purpose         TEXT NOT NULL DEFAULT '',
	sector          TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'activa',
	incorporated_on DATETIME,
	first_published DATETIME NOT NULL,
	last_published  DATETIME NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (normalized_name, province)
);

CREATE TABLE IF NOT EXISTS acts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id  INTEGER NOT NULL REFERENCES companies(id),
	document_id TEXT NOT NULL,
	gazette_id  TEXT NOT NULL,
	act_type    TEXT NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	published   DATETIME NOT NULL,
	excerpt     TEXT NOT NULL DEFAULT '',
	fields      TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (company_id, gazette_id, act_type, label)
);

CREATE TABLE IF NOT EXISTS officers (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	company_id       INTEGER NOT NULL REFERENCES companies(id),
	name             TEXT NOT NULL,
	role             TEXT NOT NULL,
	active           INTEGER NOT NULL DEFAULT 1,
	effective_act_id INTEGER NOT NULL DEFAULT 0,
	published        DATETIME NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (company_id, name, role)
);

CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	gazette_id   TEXT NOT NULL,
	origin_date  DATETIME NOT NULL,
	province     TEXT NOT NULL,
	url          TEXT NOT NULL,
	path         TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL DEFAULT 0,
	fetch_status TEXT NOT NULL,
	fetched_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	from_date      DATETIME NOT NULL,
	to_date        DATETIME NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	started_at     DATETIME,
	finished_at    DATETIME,
	docs_total     INTEGER NOT NULL DEFAULT 0,
	docs_processed INTEGER NOT NULL DEFAULT 0,
	docs_failed    INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_documents (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	gazette_id  TEXT NOT NULL,
	gazette_day DATETIME NOT NULL,
	province    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	act_count   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (run_id, gazette_id)
);

CREATE TABLE IF NOT EXISTS anomalies (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL DEFAULT '',
	company_id INTEGER NOT NULL DEFAULT 0,
	act_id     INTEGER NOT NULL DEFAULT 0,
	kind       TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_companies_province ON companies(province);
CREATE INDEX IF NOT EXISTS idx_companies_status ON companies(status);
CREATE INDEX IF NOT EXISTS idx_acts_company ON acts(company_id);
CREATE INDEX IF NOT EXISTS idx_acts_gazette ON acts(gazette_id);
CREATE INDEX IF NOT EXISTS idx_officers_company ON officers(company_id);
CREATE INDEX IF NOT EXISTS idx_documents_gazette ON documents(gazette_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_documents_run ON run_documents(run_id);
CREATE INDEX IF NOT EXISTS idx_run_documents_day ON run_documents(gazette_day, status);
CREATE INDEX IF NOT EXISTS idx_anomalies_run ON anomalies(run_id);

CREATE VIRTUAL TABLE IF NOT EXISTS companies_fts USING fts5(
	name, purpose, locality,
	content='companies', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS companies_fts_insert AFTER INSERT ON companies BEGIN
	INSERT INTO companies_fts(rowid, name, purpose, locality)
	VALUES (new.id, new.name, new.purpose, new.locality);
END;

CREATE TRIGGER IF NOT EXISTS companies_fts_delete AFTER DELETE ON companies BEGIN
	INSERT INTO companies_fts(companies_fts, rowid, name, purpose, locality)
	VALUES ('delete', old.id, old.name, old.purpose, old.locality);
END;

CREATE TRIGGER IF NOT EXISTS companies_fts_update AFTER UPDATE ON companies BEGIN
	INSERT INTO companies_fts(companies_fts, rowid, name, purpose, locality)
	VALUES ('delete', old.id, old.name, old.purpose, old.locality);
	INSERT INTO companies_fts(rowid, name, purpose, locality)
	VALUES (new.id, new.name, new.purpose, new.locality);
END;
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Companies

const companyColumns = `id, name, normalized_name, legal_form, address, locality, province,
	capital, purpose, sector, status, incorporated_on, first_published, last_published,
	created_at, updated_at`

func (s *SQLiteStore) GetCompanyByKey(ctx context.Context, normalizedName, province string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE normalized_name = ? AND province = ?`,
		normalizedName, province,
	)
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id,
	)
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("company not found: %d", id)
	}
	return c, err
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, c *model.Company) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (name, normalized_name, legal_form, address, locality, province,
			capital, purpose, sector, status, incorporated_on, first_published, last_published,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.NormalizedName, c.LegalForm, c.Address, c.Locality, c.Province,
		nullFloat(c.Capital), c.CorporatePurpose, c.SectorEstimate, string(c.Status),
		nullTime(c.IncorporatedOn), c.FirstPublished, c.LastPublished, now, now,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert company %q", c.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: company id")
	}
	c.ID = id
	c.CreatedAt, c.UpdatedAt = now, now
	return id, nil
}

func (s *SQLiteStore) UpdateCompany(ctx context.Context, c *model.Company) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET name = ?, legal_form = ?, address = ?, locality = ?,
			capital = ?, purpose = ?, sector = ?, status = ?, incorporated_on = ?,
			first_published = ?, last_published = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.LegalForm, c.Address, c.Locality,
		nullFloat(c.Capital), c.CorporatePurpose, c.SectorEstimate, string(c.Status),
		nullTime(c.IncorporatedOn), c.FirstPublished, c.LastPublished, now, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %d", c.ID)
	}
	c.UpdatedAt = now
	return checkRowsAffected(res, "company", fmt.Sprint(c.ID))
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE 1=1`
	var args []any

	if filter.Province != "" {
		query += ` AND province = ?`
		args = append(args, filter.Province)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.LegalForm != "" {
		query += ` AND legal_form = ?`
		args = append(args, filter.LegalForm)
	}
	query += ` ORDER BY last_published DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

// SearchCompanies builds an FTS5 match expression from the expanded query
// groups: groups are ANDed, alternatives inside a group ORed.
func (s *SQLiteStore) SearchCompanies(ctx context.Context, groups [][]string, limit int) ([]model.Company, error) {
	match := fts5Match(groups)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.normalized_name, c.legal_form, c.address, c.locality, c.province,
			c.capital, c.purpose, c.sector, c.status, c.incorporated_on, c.first_published,
			c.last_published, c.created_at, c.updated_at
		 FROM companies c
		 JOIN companies_fts f ON c.id = f.rowid
		 WHERE companies_fts MATCH ?
		 ORDER BY rank LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: search companies iterate")
}

// RebuildSearchIndex re-derives the full-text table from the companies rows.
// Needed after bulk imports that bypass the triggers.
func (s *SQLiteStore) RebuildSearchIndex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO companies_fts(companies_fts) VALUES ('rebuild')`)
	return eris.Wrap(err, "sqlite: rebuild search index")
}

func fts5Match(groups [][]string) string {
	var parts []string
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		alts := make([]string, 0, len(group))
		for _, alt := range group {
			alts = append(alts, `"`+strings.ReplaceAll(alt, `"`, ``)+`"`)
		}
		parts = append(parts, "("+strings.Join(alts, " OR ")+")")
	}
	return strings.Join(parts, " AND ")
}

// Acts

func (s *SQLiteStore) InsertAct(ctx context.Context, act *model.MercantileAct) (int64, bool, error) {
	fieldsJSON, err := json.Marshal(act.Fields)
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: marshal act fields")
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO acts (company_id, document_id, gazette_id, act_type, label,
			status, published, excerpt, fields, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		act.CompanyID, act.DocumentID, act.GazetteID, string(act.Type), act.Label,
		string(act.Status), act.Published, act.Excerpt, string(fieldsJSON), now,
	)
	if err != nil {
		return 0, false, eris.Wrapf(err, "sqlite: insert act for company %d", act.CompanyID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: act id")
	}
	act.ID = id
	act.CreatedAt = now
	return id, true, nil
}

func (s *SQLiteStore) ListActs(ctx context.Context, companyID int64) ([]model.MercantileAct, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, document_id, gazette_id, act_type, label, status,
			published, excerpt, fields, created_at
		 FROM acts WHERE company_id = ? ORDER BY published, id`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list acts")
	}
	defer rows.Close()

	var out []model.MercantileAct
	for rows.Next() {
		var a model.MercantileAct
		var fieldsJSON string
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.DocumentID, &a.GazetteID, &a.Type,
			&a.Label, &a.Status, &a.Published, &a.Excerpt, &fieldsJSON, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan act")
		}
		if err := json.Unmarshal([]byte(fieldsJSON), &a.Fields); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal act fields")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list acts iterate")
}

// Officers

func (s *SQLiteStore) ListOfficers(ctx context.Context, companyID int64) ([]model.Officer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company_id, name, role, active, effective_act_id, published, created_at
		 FROM officers WHERE company_id = ? ORDER BY id`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list officers")
	}
	defer rows.Close()

	var out []model.Officer
	for rows.Next() {
		var o model.Officer
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.Name, &o.Role, &o.Active,
			&o.EffectiveActID, &o.Published, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan officer")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list officers iterate")
}

func (s *SQLiteStore) UpsertOfficer(ctx context.Context, o *model.Officer) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO officers (company_id, name, role, active, effective_act_id, published, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (company_id, name, role) DO UPDATE SET
			active = excluded.active,
			effective_act_id = excluded.effective_act_id,
			published = excluded.published
		 WHERE excluded.published >= officers.published`,
		o.CompanyID, o.Name, o.Role, o.Active, o.EffectiveActID, o.Published, now,
	)
	return eris.Wrapf(err, "sqlite: upsert officer %q", o.Name)
}

func (s *SQLiteStore) DeactivateOfficer(ctx context.Context, officerID, actID int64, published time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE officers SET active = 0, effective_act_id = ?, published = ? WHERE id = ?`,
		actID, published, officerID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: deactivate officer %d", officerID)
	}
	return checkRowsAffected(res, "officer", fmt.Sprint(officerID))
}

// Documents

func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *model.SourceDocument) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, gazette_id, origin_date, province, url, path,
			size_bytes, fetch_status, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			path = excluded.path,
			fetch_status = excluded.fetch_status,
			fetched_at = excluded.fetched_at`,
		doc.ID, doc.GazetteID, doc.OriginDate, doc.Province, doc.URL, doc.Path,
		doc.SizeBytes, string(doc.FetchStatus), doc.FetchedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert document %s", doc.GazetteID)
}

// BulkUpsertDocuments writes a batch of document records in one transaction.
func (s *SQLiteStore) BulkUpsertDocuments(ctx context.Context, docs []model.SourceDocument) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin bulk document upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range docs {
		d := &docs[i]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (id, gazette_id, origin_date, province, url, path,
				size_bytes, fetch_status, fetched_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
				path = excluded.path,
				fetch_status = excluded.fetch_status,
				fetched_at = excluded.fetched_at`,
			d.ID, d.GazetteID, d.OriginDate, d.Province, d.URL, d.Path,
			d.SizeBytes, string(d.FetchStatus), d.FetchedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: bulk upsert document %s", d.GazetteID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit bulk document upsert")
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.SourceDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, gazette_id, origin_date, province, url, path, size_bytes, fetch_status, fetched_at
		 FROM documents WHERE id = ?`, id,
	)
	var d model.SourceDocument
	err := row.Scan(&d.ID, &d.GazetteID, &d.OriginDate, &d.Province, &d.URL, &d.Path,
		&d.SizeBytes, &d.FetchStatus, &d.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get document")
	}
	return &d, nil
}

// Runs

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.IngestionRun) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, from_date, to_date, status, docs_total, docs_processed,
			docs_failed, error, created_at)
		 VALUES (?, ?, ?, ?, 0, 0, 0, '', ?)`,
		run.ID, run.FromDate, run.ToDate, string(run.Status), now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}
	run.CreatedAt = now
	return nil
}

func (s *SQLiteStore) TransitionRun(ctx context.Context, runID string, from, to model.RunStatus) error {
	var started any
	if to == model.RunStatusRunning {
		started = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, started_at = COALESCE(?, started_at) WHERE id = ? AND status = ?`,
		string(to), started, runID, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("run %s is not in state %s", runID, from)
	}
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.IngestionRun) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, docs_total = ?, docs_processed = ?,
			docs_failed = ?, error = ?
		 WHERE id = ?`,
		string(run.Status), nullTime(run.FinishedAt), run.DocumentsTotal,
		run.DocumentsProcessed, run.DocumentsFailed, run.Error, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.IngestionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, from_date, to_date, status, started_at, finished_at, docs_total,
			docs_processed, docs_failed, error, created_at
		 FROM runs WHERE id = ?`, runID,
	)
	r, err := scanIngestionRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestionRun, error) {
	query := `SELECT id, from_date, to_date, status, started_at, finished_at, docs_total,
		docs_processed, docs_failed, error, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []model.IngestionRun
	for rows.Next() {
		r, err := scanIngestionRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) UpsertDocEntry(ctx context.Context, entry *model.DocEntry) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_documents (run_id, gazette_id, gazette_day, province, status,
			act_count, error, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, gazette_id) DO UPDATE SET
			status = excluded.status,
			act_count = excluded.act_count,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		entry.RunID, entry.GazetteID, entry.GazetteDay, entry.Province,
		string(entry.Status), entry.ActCount, entry.Error, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert doc entry %s", entry.GazetteID)
	}
	entry.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) ListDocEntries(ctx context.Context, runID string) ([]model.DocEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, gazette_id, gazette_day, province, status, act_count, error, updated_at
		 FROM run_documents WHERE run_id = ? ORDER BY gazette_day, gazette_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list doc entries")
	}
	defer rows.Close()

	var out []model.DocEntry
	for rows.Next() {
		var e model.DocEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.GazetteID, &e.GazetteDay, &e.Province,
			&e.Status, &e.ActCount, &e.Error, &e.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan doc entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list doc entries iterate")
}

func (s *SQLiteStore) CompletedGazetteIDs(ctx context.Context, day time.Time) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT gazette_id FROM run_documents WHERE gazette_day = ? AND status = ?`,
		day, string(model.DocStatusCompleted),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: completed gazette ids")
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan gazette id")
		}
		done[id] = true
	}
	return done, eris.Wrap(rows.Err(), "sqlite: completed gazette ids iterate")
}

// Anomalies

func (s *SQLiteStore) InsertAnomaly(ctx context.Context, a *model.MergeAnomaly) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO anomalies (run_id, company_id, act_id, kind, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.RunID, a.CompanyID, a.ActID, string(a.Kind), a.Detail, now,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert anomaly")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: anomaly id")
	}
	a.ID = id
	a.CreatedAt = now
	return nil
}

func (s *SQLiteStore) ListAnomalies(ctx context.Context, runID string) ([]model.MergeAnomaly, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, company_id, act_id, kind, detail, created_at
		 FROM anomalies WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list anomalies")
	}
	defer rows.Close()

	var out []model.MergeAnomaly
	for rows.Next() {
		var a model.MergeAnomaly
		if err := rows.Scan(&a.ID, &a.RunID, &a.CompanyID, &a.ActID, &a.Kind, &a.Detail, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan anomaly")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list anomalies iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCompany(row scannable) (*model.Company, error) {
	var c model.Company
	var capital sql.NullFloat64
	var incorporated sql.NullTime

	err := row.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.LegalForm, &c.Address, &c.Locality,
		&c.Province, &capital, &c.CorporatePurpose, &c.SectorEstimate, &c.Status,
		&incorporated, &c.FirstPublished, &c.LastPublished, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "scan company")
	}
	if capital.Valid {
		c.Capital = &capital.Float64
	}
	if incorporated.Valid {
		t := incorporated.Time
		c.IncorporatedOn = &t
	}
	return &c, nil
}

func scanIngestionRun(row scannable) (*model.IngestionRun, error) {
	var r model.IngestionRun
	var started, finished sql.NullTime

	err := row.Scan(&r.ID, &r.FromDate, &r.ToDate, &r.Status, &started, &finished,
		&r.DocumentsTotal, &r.DocumentsProcessed, &r.DocumentsFailed, &r.Error, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "scan run")
	}
	if started.Valid {
		t := started.Time
		r.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
