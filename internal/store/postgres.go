package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/registralia/borme-cli/internal/db"
	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/normalize"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations: the resolver hits
// company lookup and act insert once per notice.
var preparedStatements = map[string]string{
	"get_company_by_key": `SELECT ` + companyColumns + ` FROM companies WHERE normalized_name = $1 AND province = $2`,
	"insert_act": `INSERT INTO acts (company_id, document_id, gazette_id, act_type, label, status, published, excerpt, fields, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (company_id, gazette_id, act_type, label) DO NOTHING
		RETURNING id`,
	"upsert_doc_entry": `INSERT INTO run_documents (run_id, gazette_id, gazette_day, province, status, act_count, error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, gazette_id) DO UPDATE SET
			status = EXCLUDED.status, act_count = EXCLUDED.act_count,
			error = EXCLUDED.error, updated_at = EXCLUDED.updated_at`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; tests use it with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	legal_form      TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	locality        TEXT NOT NULL DEFAULT '',
	province        TEXT NOT NULL,
	capital         DOUBLE PRECISION,
	purpose         TEXT NOT NULL DEFAULT '',
	sector          TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'activa',
	incorporated_on DATE,
	first_published TIMESTAMPTZ NOT NULL,
	last_published  TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	search_text     TEXT NOT NULL DEFAULT '',
	search_vector   TSVECTOR GENERATED ALWAYS AS (
		to_tsvector('spanish', coalesce(search_text, ''))
	) STORED,
	UNIQUE (normalized_name, province)
);

CREATE TABLE IF NOT EXISTS acts (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	company_id  BIGINT NOT NULL REFERENCES companies(id),
	document_id TEXT NOT NULL,
	gazette_id  TEXT NOT NULL,
	act_type    TEXT NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	published   TIMESTAMPTZ NOT NULL,
	excerpt     TEXT NOT NULL DEFAULT '',
	fields      JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company_id, gazette_id, act_type, label)
);

CREATE TABLE IF NOT EXISTS officers (
	id               BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	company_id       BIGINT NOT NULL REFERENCES companies(id),
	name             TEXT NOT NULL,
	role             TEXT NOT NULL,
	active           BOOLEAN NOT NULL DEFAULT true,
	effective_act_id BIGINT NOT NULL DEFAULT 0,
	published        TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company_id, name, role)
);

CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	gazette_id   TEXT NOT NULL,
	origin_date  TIMESTAMPTZ NOT NULL,
	province     TEXT NOT NULL,
	url          TEXT NOT NULL,
	path         TEXT NOT NULL,
	size_bytes   BIGINT NOT NULL DEFAULT 0,
	fetch_status TEXT NOT NULL,
	fetched_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	from_date      TIMESTAMPTZ NOT NULL,
	to_date        TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	started_at     TIMESTAMPTZ,
	finished_at    TIMESTAMPTZ,
	docs_total     INTEGER NOT NULL DEFAULT 0,
	docs_processed INTEGER NOT NULL DEFAULT 0,
	docs_failed    INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_documents (
	id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	gazette_id  TEXT NOT NULL,
	gazette_day TIMESTAMPTZ NOT NULL,
	province    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	act_count   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (run_id, gazette_id)
);

CREATE TABLE IF NOT EXISTS anomalies (
	id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	run_id     TEXT NOT NULL DEFAULT '',
	company_id BIGINT NOT NULL DEFAULT 0,
	act_id     BIGINT NOT NULL DEFAULT 0,
	kind       TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_companies_province ON companies(province);
CREATE INDEX IF NOT EXISTS idx_companies_status ON companies(status);
CREATE INDEX IF NOT EXISTS idx_companies_search ON companies USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_acts_company ON acts(company_id);
CREATE INDEX IF NOT EXISTS idx_acts_gazette ON acts(gazette_id);
CREATE INDEX IF NOT EXISTS idx_officers_company ON officers(company_id);
CREATE INDEX IF NOT EXISTS idx_documents_gazette ON documents(gazette_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_documents_run ON run_documents(run_id);
CREATE INDEX IF NOT EXISTS idx_run_documents_day ON run_documents(gazette_day, status);
CREATE INDEX IF NOT EXISTS idx_anomalies_run ON anomalies(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Companies

// searchText is the diacritic-folded text the search_vector is generated
// from. Queries are folded the same way before they reach the backend, so
// "informatica" matches a purpose that spells "informática"; indexing the
// accented source text would stem the two to different lexemes.
func searchText(c *model.Company) string {
	return normalize.Fold(strings.TrimSpace(c.Name + " " + c.CorporatePurpose + " " + c.Locality))
}

func (s *PostgresStore) GetCompanyByKey(ctx context.Context, normalizedName, province string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE normalized_name = $1 AND province = $2`,
		normalizedName, province,
	)
	c, err := scanCompanyPgx(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *PostgresStore) GetCompany(ctx context.Context, id int64) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id,
	)
	c, err := scanCompanyPgx(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("company not found: %d", id)
	}
	return c, err
}

func (s *PostgresStore) CreateCompany(ctx context.Context, c *model.Company) (int64, error) {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO companies (name, normalized_name, legal_form, address, locality, province,
			capital, purpose, sector, status, incorporated_on, first_published, last_published,
			created_at, updated_at, search_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id`,
		c.Name, c.NormalizedName, c.LegalForm, c.Address, c.Locality, c.Province,
		c.Capital, c.CorporatePurpose, c.SectorEstimate, string(c.Status),
		c.IncorporatedOn, c.FirstPublished, c.LastPublished, now, now, searchText(c),
	).Scan(&c.ID)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert company %q", c.Name)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return c.ID, nil
}

func (s *PostgresStore) UpdateCompany(ctx context.Context, c *model.Company) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET name = $1, legal_form = $2, address = $3, locality = $4,
			capital = $5, purpose = $6, sector = $7, status = $8, incorporated_on = $9,
			first_published = $10, last_published = $11, updated_at = $12, search_text = $13
		 WHERE id = $14`,
		c.Name, c.LegalForm, c.Address, c.Locality,
		c.Capital, c.CorporatePurpose, c.SectorEstimate, string(c.Status),
		c.IncorporatedOn, c.FirstPublished, c.LastPublished, now, searchText(c), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("company not found: %d", c.ID)
	}
	c.UpdatedAt = now
	return nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Province != "" {
		query += ` AND province = ` + arg(filter.Province)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.LegalForm != "" {
		query += ` AND legal_form = ` + arg(filter.LegalForm)
	}
	query += ` ORDER BY last_published DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompanyPgx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

// SearchCompanies builds a tsquery from the expanded query groups: groups
// are ANDed, alternatives inside a group ORed.
func (s *PostgresStore) SearchCompanies(ctx context.Context, groups [][]string, limit int) ([]model.Company, error) {
	tsquery := tsQuery(groups)
	if tsquery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+companyColumns+` FROM companies
		 WHERE search_vector @@ to_tsquery('spanish', $1)
		 ORDER BY ts_rank(search_vector, to_tsquery('spanish', $1)) DESC
		 LIMIT $2`,
		tsquery, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompanyPgx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: search companies iterate")
}

func tsQuery(groups [][]string) string {
	var parts []string
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		alts := make([]string, 0, len(group))
		for _, alt := range group {
			cleaned := strings.Map(func(r rune) rune {
				switch r {
				case '&', '|', '!', '(', ')', ':', '\'':
					return -1
				}
				return r
			}, alt)
			if cleaned == "" {
				continue
			}
			alts = append(alts, cleaned)
		}
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, "("+strings.Join(alts, " | ")+")")
	}
	return strings.Join(parts, " & ")
}

// Acts

func (s *PostgresStore) InsertAct(ctx context.Context, act *model.MercantileAct) (int64, bool, error) {
	fieldsJSON, err := json.Marshal(act.Fields)
	if err != nil {
		return 0, false, eris.Wrap(err, "postgres: marshal act fields")
	}
	now := time.Now().UTC()

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO acts (company_id, document_id, gazette_id, act_type, label, status,
			published, excerpt, fields, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (company_id, gazette_id, act_type, label) DO NOTHING
		 RETURNING id`,
		act.CompanyID, act.DocumentID, act.GazetteID, string(act.Type), act.Label,
		string(act.Status), act.Published, act.Excerpt, fieldsJSON, now,
	).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrapf(err, "postgres: insert act for company %d", act.CompanyID)
	}
	act.ID = id
	act.CreatedAt = now
	return id, true, nil
}

func (s *PostgresStore) ListActs(ctx context.Context, companyID int64) ([]model.MercantileAct, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, document_id, gazette_id, act_type, label, status,
			published, excerpt, fields, created_at
		 FROM acts WHERE company_id = $1 ORDER BY published, id`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list acts")
	}
	defer rows.Close()

	var out []model.MercantileAct
	for rows.Next() {
		var a model.MercantileAct
		var fieldsJSON []byte
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.DocumentID, &a.GazetteID, &a.Type,
			&a.Label, &a.Status, &a.Published, &a.Excerpt, &fieldsJSON, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan act")
		}
		if err := json.Unmarshal(fieldsJSON, &a.Fields); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal act fields")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list acts iterate")
}

// Officers

func (s *PostgresStore) ListOfficers(ctx context.Context, companyID int64) ([]model.Officer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, company_id, name, role, active, effective_act_id, published, created_at
		 FROM officers WHERE company_id = $1 ORDER BY id`,
		companyID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list officers")
	}
	defer rows.Close()

	var out []model.Officer
	for rows.Next() {
		var o model.Officer
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.Name, &o.Role, &o.Active,
			&o.EffectiveActID, &o.Published, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan officer")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list officers iterate")
}

func (s *PostgresStore) UpsertOfficer(ctx context.Context, o *model.Officer) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO officers (company_id, name, role, active, effective_act_id, published, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (company_id, name, role) DO UPDATE SET
			active = EXCLUDED.active,
			effective_act_id = EXCLUDED.effective_act_id,
			published = EXCLUDED.published
		 WHERE EXCLUDED.published >= officers.published`,
		o.CompanyID, o.Name, o.Role, o.Active, o.EffectiveActID, o.Published,
	)
	return eris.Wrapf(err, "postgres: upsert officer %q", o.Name)
}

func (s *PostgresStore) DeactivateOfficer(ctx context.Context, officerID, actID int64, published time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE officers SET active = false, effective_act_id = $1, published = $2 WHERE id = $3`,
		actID, published, officerID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: deactivate officer %d", officerID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("officer not found: %d", officerID)
	}
	return nil
}

// Documents

var documentColumns = []string{
	"id", "gazette_id", "origin_date", "province", "url", "path",
	"size_bytes", "fetch_status", "fetched_at",
}

func (s *PostgresStore) UpsertDocument(ctx context.Context, doc *model.SourceDocument) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (id, gazette_id, origin_date, province, url, path,
			size_bytes, fetch_status, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			path = EXCLUDED.path,
			fetch_status = EXCLUDED.fetch_status,
			fetched_at = EXCLUDED.fetched_at`,
		doc.ID, doc.GazetteID, doc.OriginDate, doc.Province, doc.URL, doc.Path,
		doc.SizeBytes, string(doc.FetchStatus), doc.FetchedAt,
	)
	return eris.Wrapf(err, "postgres: upsert document %s", doc.GazetteID)
}

func (s *PostgresStore) BulkUpsertDocuments(ctx context.Context, docs []model.SourceDocument) error {
	rows := make([][]any, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []any{
			d.ID, d.GazetteID, d.OriginDate, d.Province, d.URL, d.Path,
			d.SizeBytes, string(d.FetchStatus), d.FetchedAt,
		})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "documents",
		Columns:      documentColumns,
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"path", "fetch_status", "fetched_at"},
	}, rows)
	return eris.Wrap(err, "postgres: bulk upsert documents")
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.SourceDocument, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, gazette_id, origin_date, province, url, path, size_bytes, fetch_status, fetched_at
		 FROM documents WHERE id = $1`, id,
	)
	var d model.SourceDocument
	err := row.Scan(&d.ID, &d.GazetteID, &d.OriginDate, &d.Province, &d.URL, &d.Path,
		&d.SizeBytes, &d.FetchStatus, &d.FetchedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get document")
	}
	return &d, nil
}

// Runs

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.IngestionRun) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, from_date, to_date, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.FromDate, run.ToDate, string(run.Status), now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}
	run.CreatedAt = now
	return nil
}

func (s *PostgresStore) TransitionRun(ctx context.Context, runID string, from, to model.RunStatus) error {
	var started *time.Time
	if to == model.RunStatusRunning {
		t := time.Now().UTC()
		started = &t
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, started_at = COALESCE($2, started_at)
		 WHERE id = $3 AND status = $4`,
		string(to), started, runID, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: transition run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run %s is not in state %s", runID, from)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.IngestionRun) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, finished_at = $2, docs_total = $3, docs_processed = $4,
			docs_failed = $5, error = $6
		 WHERE id = $7`,
		string(run.Status), run.FinishedAt, run.DocumentsTotal,
		run.DocumentsProcessed, run.DocumentsFailed, run.Error, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.IngestionRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, from_date, to_date, status, started_at, finished_at, docs_total,
			docs_processed, docs_failed, error, created_at
		 FROM runs WHERE id = $1`, runID,
	)
	r, err := scanIngestionRunPgx(row)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestionRun, error) {
	query := `SELECT id, from_date, to_date, status, started_at, finished_at, docs_total,
		docs_processed, docs_failed, error, created_at FROM runs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.IngestionRun
	for rows.Next() {
		r, err := scanIngestionRunPgx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) UpsertDocEntry(ctx context.Context, entry *model.DocEntry) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_documents (run_id, gazette_id, gazette_day, province, status,
			act_count, error, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (run_id, gazette_id) DO UPDATE SET
			status = EXCLUDED.status, act_count = EXCLUDED.act_count,
			error = EXCLUDED.error, updated_at = EXCLUDED.updated_at`,
		entry.RunID, entry.GazetteID, entry.GazetteDay, entry.Province,
		string(entry.Status), entry.ActCount, entry.Error, now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert doc entry %s", entry.GazetteID)
	}
	entry.UpdatedAt = now
	return nil
}

func (s *PostgresStore) ListDocEntries(ctx context.Context, runID string) ([]model.DocEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, gazette_id, gazette_day, province, status, act_count, error, updated_at
		 FROM run_documents WHERE run_id = $1 ORDER BY gazette_day, gazette_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list doc entries")
	}
	defer rows.Close()

	var out []model.DocEntry
	for rows.Next() {
		var e model.DocEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.GazetteID, &e.GazetteDay, &e.Province,
			&e.Status, &e.ActCount, &e.Error, &e.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan doc entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list doc entries iterate")
}

func (s *PostgresStore) CompletedGazetteIDs(ctx context.Context, day time.Time) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT gazette_id FROM run_documents WHERE gazette_day = $1 AND status = $2`,
		day, string(model.DocStatusCompleted),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: completed gazette ids")
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan gazette id")
		}
		done[id] = true
	}
	return done, eris.Wrap(rows.Err(), "postgres: completed gazette ids iterate")
}

// Anomalies

func (s *PostgresStore) InsertAnomaly(ctx context.Context, a *model.MergeAnomaly) error {
	now := time.Now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO anomalies (run_id, company_id, act_id, kind, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		a.RunID, a.CompanyID, a.ActID, string(a.Kind), a.Detail, now,
	).Scan(&a.ID)
	if err != nil {
		return eris.Wrap(err, "postgres: insert anomaly")
	}
	a.CreatedAt = now
	return nil
}

func (s *PostgresStore) ListAnomalies(ctx context.Context, runID string) ([]model.MergeAnomaly, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, company_id, act_id, kind, detail, created_at
		 FROM anomalies WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list anomalies")
	}
	defer rows.Close()

	var out []model.MergeAnomaly
	for rows.Next() {
		var a model.MergeAnomaly
		if err := rows.Scan(&a.ID, &a.RunID, &a.CompanyID, &a.ActID, &a.Kind, &a.Detail, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan anomaly")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list anomalies iterate")
}

// scan helpers

func scanCompanyPgx(row pgx.Row) (*model.Company, error) {
	var c model.Company
	var capital *float64
	var incorporated *time.Time

	err := row.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.LegalForm, &c.Address, &c.Locality,
		&c.Province, &capital, &c.CorporatePurpose, &c.SectorEstimate, &c.Status,
		&incorporated, &c.FirstPublished, &c.LastPublished, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "scan company")
	}
	c.Capital = capital
	c.IncorporatedOn = incorporated
	return &c, nil
}

func scanIngestionRunPgx(row pgx.Row) (*model.IngestionRun, error) {
	var r model.IngestionRun
	var started, finished *time.Time

	err := row.Scan(&r.ID, &r.FromDate, &r.ToDate, &r.Status, &started, &finished,
		&r.DocumentsTotal, &r.DocumentsProcessed, &r.DocumentsFailed, &r.Error, &r.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, eris.Wrap(err, "scan run")
	}
	r.StartedAt = started
	r.FinishedAt = finished
	return &r, nil
}
