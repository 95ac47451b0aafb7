package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/normalize"
	"github.com/registralia/borme-cli/internal/store"
)

func newTestSearcher(t *testing.T) (*Searcher, store.Store) {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return New(s), s
}

func seedCompany(t *testing.T, s store.Store, name, purpose, province string) *model.Company {
	t.Helper()
	now := time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC)
	c := &model.Company{
		Name:             name,
		NormalizedName:   normalize.Name(name),
		Province:         province,
		CorporatePurpose: purpose,
		Status:           model.CompanyActive,
		FirstPublished:   now,
		LastPublished:    now,
	}
	_, err := s.CreateCompany(context.Background(), c)
	require.NoError(t, err)
	return c
}

func TestSearchExpandsSynonyms(t *testing.T) {
	searcher, s := newTestSearcher(t)
	ctx := context.Background()

	seedCompany(t, s, "IBERDATA INFORMATICA SL", "Desarrollo de software a medida", "Madrid")
	seedCompany(t, s, "PANADERIA LA ESPIGA SL", "Elaboración de pan", "Sevilla")

	// "tecnologia" is in the same synonym group as "informatica".
	results, err := searcher.Search(ctx, "tecnologia", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "IBERDATA INFORMATICA SL", results[0].Name)
}

func TestSearchRequiresAllGroups(t *testing.T) {
	searcher, s := newTestSearcher(t)
	ctx := context.Background()

	seedCompany(t, s, "IBERDATA INFORMATICA SL", "Desarrollo de software", "Madrid")
	seedCompany(t, s, "SUR SOFTWARE SL", "Consultoría informática", "Sevilla")

	// Both words must match; only the second company mentions consultoria.
	results, err := searcher.Search(ctx, "software consultoria", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "SUR SOFTWARE SL", results[0].Name)
}

func TestSearchEmptyQuery(t *testing.T) {
	searcher, s := newTestSearcher(t)
	seedCompany(t, s, "IBERDATA INFORMATICA SL", "Software", "Madrid")

	results, err := searcher.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Single-letter words are dropped during expansion.
	results, err = searcher.Search(context.Background(), "a", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRebuildSQLite(t *testing.T) {
	searcher, s := newTestSearcher(t)
	ctx := context.Background()

	seedCompany(t, s, "IBERDATA INFORMATICA SL", "Software", "Madrid")
	require.NoError(t, searcher.Rebuild(ctx))

	results, err := searcher.Search(ctx, "informatica", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
