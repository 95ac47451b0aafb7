package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const sampleSummaryXML = `<?xml version="1.0" encoding="utf-8"?>
<response>
  <status><code>200</code></status>
  <data>
    <sumario>
      <metadatos>
        <publicacion>BORME</publicacion>
        <fecha_publicacion>20250519</fecha_publicacion>
      </metadatos>
      <diario numero="93">
        <seccion codigo="A" nombre="Actos inscritos">
          <item>
            <identificador>BORME-A-2025-93-02</identificador>
            <titulo>ALBACETE</titulo>
            <url_pdf>/borme/dias/2025/05/19/pdfs/BORME-A-2025-93-02.pdf</url_pdf>
          </item>
          <item>
            <identificador>BORME-A-2025-93-28</identificador>
            <titulo>MADRID</titulo>
            <url_pdf>https://www.boe.es/borme/dias/2025/05/19/pdfs/BORME-A-2025-93-28.pdf</url_pdf>
          </item>
          <item>
            <identificador>BORME-A-2025-93-99</identificador>
            <titulo>ÍNDICE ALFABÉTICO DE SOCIEDADES</titulo>
            <url_pdf>/borme/dias/2025/05/19/pdfs/BORME-A-2025-93-99.pdf</url_pdf>
          </item>
        </seccion>
        <seccion codigo="C" nombre="Anuncios">
          <item>
            <identificador>BORME-C-2025-3000</identificador>
            <titulo>Convocatorias</titulo>
            <url_pdf>/borme/dias/2025/05/19/pdfs/BORME-C-2025-3000.pdf</url_pdf>
          </item>
        </seccion>
      </diario>
    </sumario>
  </data>
</response>`

func newTestFetcher(baseURL string) *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		BaseURL:    baseURL,
		MaxRetries: 2,
		RateLimiters: map[string]*rate.Limiter{
			"127.0.0.1": rate.NewLimiter(rate.Inf, 1),
		},
	})
}

func TestSummary(t *testing.T) {
	day := time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/datosabiertos/api/borme/sumario/20250519", r.URL.Path)
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleSummaryXML))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	refs, err := f.Summary(context.Background(), day)
	require.NoError(t, err)

	// Section C and the alphabetical index are skipped.
	require.Len(t, refs, 2)
	assert.Equal(t, "BORME-A-2025-93-02", refs[0].GazetteID)
	assert.Equal(t, "Albacete", refs[0].Province)
	assert.Equal(t, srv.URL+"/borme/dias/2025/05/19/pdfs/BORME-A-2025-93-02.pdf", refs[0].URL)
	assert.Equal(t, day, refs[0].Day)

	assert.Equal(t, "Madrid", refs[1].Province)
	// Absolute URLs are kept as published.
	assert.Equal(t, "https://www.boe.es/borme/dias/2025/05/19/pdfs/BORME-A-2025-93-28.pdf", refs[1].URL)
}

func TestSummaryNoIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	refs, err := f.Summary(context.Background(), time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestSummaryMalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<response><broken"))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	_, err := f.Summary(context.Background(), time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse summary")
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	body, err := f.Download(context.Background(), srv.URL+"/doc.pdf")
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck
	assert.Equal(t, 2, calls)
}
