package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registralia/borme-cli/internal/docstore"
	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/resilience"
	"github.com/registralia/borme-cli/internal/resolve"
	"github.com/registralia/borme-cli/internal/store"
)

var testDay = time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC)

const madridText = `BOLETÍN OFICIAL DEL REGISTRO MERCANTIL

101 - DELTA SERVICIOS SL.
Constitución. Comienzo de operaciones: 2.05.2025. Objeto social: Servicios de
limpieza. Domicilio: CALLE SOL 5 (MADRID). Capital: 10.000,00 Euros.
`

const albaceteText = `BOLETÍN OFICIAL DEL REGISTRO MERCANTIL

201 - OMEGA AGRARIA SL.
Nombramientos. Adm. Unico: RUIZ SOTO, CARMEN. Datos registrales. T 12, F 3.
`

type stubFetcher struct {
	refs     map[string][]model.DocumentRef
	payloads map[string][]byte
}

func (s *stubFetcher) Summary(_ context.Context, day time.Time) ([]model.DocumentRef, error) {
	return s.refs[day.Format("2006-01-02")], nil
}

func (s *stubFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	p, ok := s.payloads[url]
	if !ok {
		return nil, eris.Errorf("no payload for %s", url)
	}
	return io.NopCloser(bytes.NewReader(p)), nil
}

func (s *stubFetcher) DownloadToFile(_ context.Context, url, path string) (int64, error) {
	p, ok := s.payloads[url]
	if !ok {
		return 0, eris.Errorf("no payload for %s", url)
	}
	if err := os.WriteFile(path, p, 0o644); err != nil {
		return 0, err
	}
	return int64(len(p)), nil
}

// stubConverter returns canned gazette text keyed by a substring of the
// cached file path.
type stubConverter struct {
	byGazette map[string]string
	failFor   string
}

func (c *stubConverter) Text(_ context.Context, pdfPath string) (string, error) {
	if c.failFor != "" && strings.Contains(pdfPath, c.failFor) {
		return "", eris.New("pdftotext: damaged file")
	}
	for gazetteID, text := range c.byGazette {
		if strings.Contains(pdfPath, gazetteID) {
			return text, nil
		}
	}
	return "", eris.Errorf("no text for %s", pdfPath)
}

// flakyStore fails the first N document flushes, then behaves normally.
type flakyStore struct {
	store.Store
	flushFailures int
}

func (s *flakyStore) BulkUpsertDocuments(ctx context.Context, docs []model.SourceDocument) error {
	if s.flushFailures > 0 {
		s.flushFailures--
		return eris.New("connection lost during flush")
	}
	return s.Store.BulkUpsertDocuments(ctx, docs)
}

func newTestIngester(t *testing.T, conv *stubConverter) (*Ingester, store.Store) {
	return newTestIngesterWith(t, conv, func(s store.Store) store.Store { return s })
}

func newTestIngesterWith(t *testing.T, conv *stubConverter, wrap func(store.Store) store.Store) (*Ingester, store.Store) {
	t.Helper()
	sq, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	require.NoError(t, sq.Migrate(context.Background()))
	st := wrap(sq)

	f := &stubFetcher{
		refs: map[string][]model.DocumentRef{
			"2025-05-19": {
				{GazetteID: "BORME-A-2025-93-28", Day: testDay, Province: "Madrid", URL: "https://example.org/93-28.pdf"},
				{GazetteID: "BORME-A-2025-93-02", Day: testDay, Province: "Albacete", URL: "https://example.org/93-02.pdf"},
			},
		},
		payloads: map[string][]byte{
			"https://example.org/93-28.pdf": []byte("pdf-madrid"),
			"https://example.org/93-02.pdf": []byte("pdf-albacete"),
		},
	}

	r, err := resolve.New(st, 64)
	require.NoError(t, err)

	docs := docstore.New(t.TempDir(), f)
	ing := New(st, f, docs, conv, r, nil, Options{
		Workers: 2,
		Retry:   resilience.RetryConfig{MaxAttempts: 1},
	})
	return ing, st
}

func defaultConverter() *stubConverter {
	return &stubConverter{byGazette: map[string]string{
		"BORME-A-2025-93-28": madridText,
		"BORME-A-2025-93-02": albaceteText,
	}}
}

func TestRunIngestsDay(t *testing.T) {
	ing, st := newTestIngester(t, defaultConverter())
	ctx := context.Background()

	run, err := ing.Run(ctx, testDay, testDay)
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.DocumentsTotal)
	assert.Equal(t, 2, run.DocumentsProcessed)
	assert.Zero(t, run.DocumentsFailed)
	require.NotNil(t, run.FinishedAt)

	entries, err := st.ListDocEntries(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, model.DocStatusCompleted, e.Status)
		assert.Equal(t, 1, e.ActCount)
	}

	madrid, err := st.GetCompanyByKey(ctx, "DELTA SERVICIOS SL", "Madrid")
	require.NoError(t, err)
	require.NotNil(t, madrid)
	require.NotNil(t, madrid.Capital)
	assert.InDelta(t, 10000.0, *madrid.Capital, 0.001)

	albacete, err := st.GetCompanyByKey(ctx, "OMEGA AGRARIA SL", "Albacete")
	require.NoError(t, err)
	require.NotNil(t, albacete)
	officers, err := st.ListOfficers(ctx, albacete.ID)
	require.NoError(t, err)
	assert.Len(t, officers, 1)

	// Document records are flushed at the day boundary, keyed by content.
	sum := sha256.Sum256([]byte("pdf-madrid"))
	doc, err := st.GetDocument(ctx, hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "BORME-A-2025-93-28", doc.GazetteID)
}

func TestRunSkipsDocumentsCompletedByEarlierRun(t *testing.T) {
	ing, st := newTestIngester(t, defaultConverter())
	ctx := context.Background()

	first, err := ing.Run(ctx, testDay, testDay)
	require.NoError(t, err)
	require.Equal(t, model.RunStatusCompleted, first.Status)

	second, err := ing.Run(ctx, testDay, testDay)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, second.Status)

	entries, err := st.ListDocEntries(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, model.DocStatusSkipped, e.Status)
	}

	// No duplicate acts were created.
	c, err := st.GetCompanyByKey(ctx, "DELTA SERVICIOS SL", "Madrid")
	require.NoError(t, err)
	acts, err := st.ListActs(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, acts, 1)
}

func TestRunRecordsDocumentFailure(t *testing.T) {
	conv := defaultConverter()
	conv.failFor = "BORME-A-2025-93-02"
	ing, st := newTestIngester(t, conv)
	ctx := context.Background()

	run, err := ing.Run(ctx, testDay, testDay)
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusPartial, run.Status)
	assert.Equal(t, 1, run.DocumentsProcessed)
	assert.Equal(t, 1, run.DocumentsFailed)

	entries, err := st.ListDocEntries(ctx, run.ID)
	require.NoError(t, err)
	byID := map[string]model.DocEntry{}
	for _, e := range entries {
		byID[e.GazetteID] = e
	}
	assert.Equal(t, model.DocStatusCompleted, byID["BORME-A-2025-93-28"].Status)
	assert.Equal(t, model.DocStatusFailed, byID["BORME-A-2025-93-02"].Status)
	assert.Contains(t, byID["BORME-A-2025-93-02"].Error, "damaged file")

	// Repairing the converter and rerunning retries only the failed
	// gazette; the one that completed is skipped.
	conv.failFor = ""
	second, err := ing.Run(ctx, testDay, testDay)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, second.Status)
	assert.Equal(t, 2, second.DocumentsProcessed)
	assert.Zero(t, second.DocumentsFailed)

	entries, err = st.ListDocEntries(ctx, second.ID)
	require.NoError(t, err)
	byID = map[string]model.DocEntry{}
	for _, e := range entries {
		byID[e.GazetteID] = e
	}
	assert.Equal(t, model.DocStatusSkipped, byID["BORME-A-2025-93-28"].Status)
	assert.Equal(t, model.DocStatusCompleted, byID["BORME-A-2025-93-02"].Status)
	assert.Equal(t, 1, byID["BORME-A-2025-93-02"].ActCount)

	omega, err := st.GetCompanyByKey(ctx, "OMEGA AGRARIA SL", "Albacete")
	require.NoError(t, err)
	require.NotNil(t, omega)
}

func TestRunRetriesGazetteAfterLostFlush(t *testing.T) {
	flaky := &flakyStore{flushFailures: 1}
	ing, st := newTestIngesterWith(t, defaultConverter(), func(s store.Store) store.Store {
		flaky.Store = s
		return flaky
	})
	ctx := context.Background()

	first, err := ing.Run(ctx, testDay, testDay)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPartial, first.Status)

	// The flush never landed, so neither the document rows nor their
	// completed ledger entries may exist: a completed entry without its
	// document row would make every rerun skip the gazette forever.
	sum := sha256.Sum256([]byte("pdf-madrid"))
	doc, err := st.GetDocument(ctx, hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	assert.Nil(t, doc)

	done, err := st.CompletedGazetteIDs(ctx, testDay)
	require.NoError(t, err)
	assert.Empty(t, done)

	second, err := ing.Run(ctx, testDay, testDay)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, second.Status)
	assert.Equal(t, 2, second.DocumentsProcessed)

	doc, err = st.GetDocument(ctx, hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "BORME-A-2025-93-28", doc.GazetteID)

	// Acts applied before the lost flush replay as no-ops on the rerun.
	c, err := st.GetCompanyByKey(ctx, "DELTA SERVICIOS SL", "Madrid")
	require.NoError(t, err)
	require.NotNil(t, c)
	acts, err := st.ListActs(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, acts, 1)
}

func TestRunDayWithoutGazette(t *testing.T) {
	ing, _ := newTestIngester(t, defaultConverter())

	// A Saturday: the stub has no refs for it.
	saturday := time.Date(2025, 5, 17, 0, 0, 0, 0, time.UTC)
	run, err := ing.Run(context.Background(), saturday, saturday)
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Zero(t, run.DocumentsTotal)
}

func TestRunRejectsInvertedRange(t *testing.T) {
	ing, _ := newTestIngester(t, defaultConverter())

	_, err := ing.Run(context.Background(), testDay, testDay.AddDate(0, 0, -1))
	require.Error(t, err)
}

func TestFinalStatus(t *testing.T) {
	assert.Equal(t, model.RunStatusCompleted, finalStatus(5, 0, false))
	assert.Equal(t, model.RunStatusPartial, finalStatus(4, 1, false))
	assert.Equal(t, model.RunStatusFailed, finalStatus(0, 3, false))
	assert.Equal(t, model.RunStatusPartial, finalStatus(2, 0, true))
	// An empty range that saw no documents is still a completed run.
	assert.Equal(t, model.RunStatusCompleted, finalStatus(0, 0, false))
}
