package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registralia/borme-cli/internal/config"
	"github.com/registralia/borme-cli/internal/docstore"
	"github.com/registralia/borme-cli/internal/index"
	"github.com/registralia/borme-cli/internal/ingest"
	"github.com/registralia/borme-cli/internal/metrics"
	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/normalize"
	"github.com/registralia/borme-cli/internal/pdftext"
	"github.com/registralia/borme-cli/internal/resolve"
	"github.com/registralia/borme-cli/internal/store"
)

func newTestEnv(t *testing.T) *env {
	t.Helper()
	cfg = &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
	}

	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	return &env{
		store:    st,
		metrics:  metrics.New(),
		searcher: index.New(st),
	}
}

func seedTestCompany(t *testing.T, st store.Store) *model.Company {
	t.Helper()
	now := time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC)
	c := &model.Company{
		Name:             "DELTA SERVICIOS SL",
		NormalizedName:   normalize.Name("DELTA SERVICIOS SL"),
		Province:         "Madrid",
		LegalForm:        "SL",
		CorporatePurpose: "Servicios de limpieza",
		Status:           model.CompanyActive,
		FirstPublished:   now,
		LastPublished:    now,
	}
	_, err := st.CreateCompany(context.Background(), c)
	require.NoError(t, err)
	return c
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	apiRouter(env).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.metrics.CompaniesCreated.Inc()

	rec := httptest.NewRecorder()
	apiRouter(env).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "borme_companies_created_total 1")
}

func TestGetCompanyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	c := seedTestCompany(t, env.store)

	rec := httptest.NewRecorder()
	apiRouter(env).ServeHTTP(rec, httptest.NewRequest("GET", fmt.Sprintf("/api/companies/%d", c.ID), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Company model.Company `json:"company"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, c.Name, resp.Company.Name)

	rec = httptest.NewRecorder()
	apiRouter(env).ServeHTTP(rec, httptest.NewRequest("GET", "/api/companies/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	apiRouter(env).ServeHTTP(rec, httptest.NewRequest("GET", "/api/companies/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchCompaniesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	seedTestCompany(t, env.store)

	rec := httptest.NewRecorder()
	apiRouter(env).ServeHTTP(rec, httptest.NewRequest("GET", "/api/companies?q=limpieza", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var companies []model.Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &companies))
	require.Len(t, companies, 1)
	assert.Equal(t, "DELTA SERVICIOS SL", companies[0].Name)
}

func TestListCompaniesEndpointFilters(t *testing.T) {
	env := newTestEnv(t)
	seedTestCompany(t, env.store)

	rec := httptest.NewRecorder()
	apiRouter(env).ServeHTTP(rec, httptest.NewRequest("GET", "/api/companies?province=Sevilla", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

// quietFetcher reports every day as having no gazette issue.
type quietFetcher struct{}

func (quietFetcher) Summary(context.Context, time.Time) ([]model.DocumentRef, error) {
	return nil, nil
}

func (quietFetcher) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("no documents to download")
}

func (quietFetcher) DownloadToFile(context.Context, string, string) (int64, error) {
	return 0, errors.New("no documents to download")
}

func TestIngestEndpointReturnsRunID(t *testing.T) {
	env := newTestEnv(t)
	resolver, err := resolve.New(env.store, 8)
	require.NoError(t, err)
	env.ingester = ingest.New(
		env.store, quietFetcher{},
		docstore.New(t.TempDir(), quietFetcher{}),
		pdftext.NewCLI(""),
		resolver, env.metrics,
		ingest.Options{Workers: 1},
	)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/ingest", strings.NewReader(`{"from":"2025-05-17","to":"2025-05-18"}`))
	apiRouter(env).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["run_id"])

	run, err := env.store.GetRun(context.Background(), resp["run_id"])
	require.NoError(t, err)
	assert.Equal(t, resp["run_id"], run.ID)
}

func TestIngestEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/ingest", strings.NewReader(`{"from":"not-a-date"}`))
	apiRouter(env).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/ingest", strings.NewReader(`{"from":"2025-05-19","to":"2025-05-01"}`))
	apiRouter(env).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	apiRouter(env).ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Contains(t, snap, "runs_total")
}
