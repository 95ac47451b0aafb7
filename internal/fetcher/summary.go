package fetcher

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/provinces"
)

// sectionCompanies is the gazette section that carries company acts.
const sectionCompanies = "A"

// summaryResponse mirrors the XML envelope of the daily summary endpoint.
type summaryResponse struct {
	XMLName xml.Name `xml:"response"`
	Status  struct {
		Code int `xml:"code"`
	} `xml:"status"`
	Data struct {
		Summary struct {
			Meta struct {
				PublicationDate string `xml:"fecha_publicacion"`
			} `xml:"metadatos"`
			Issues []summaryIssue `xml:"diario"`
		} `xml:"sumario"`
	} `xml:"data"`
}

type summaryIssue struct {
	Number   string           `xml:"numero,attr"`
	Sections []summarySection `xml:"seccion"`
}

type summarySection struct {
	Code  string        `xml:"codigo,attr"`
	Name  string        `xml:"nombre,attr"`
	Items []summaryItem `xml:"item"`
}

type summaryItem struct {
	Identifier string `xml:"identificador"`
	Title      string `xml:"titulo"`
	PDF        string `xml:"url_pdf"`
}

// Summary fetches the daily summary and returns the section-A document
// references. A 404 means no issue was published that day (weekends and
// holidays) and yields an empty slice.
func (f *HTTPFetcher) Summary(ctx context.Context, day time.Time) ([]model.DocumentRef, error) {
	endpoint := f.opts.BaseURL + "/datosabiertos/api/borme/sumario/" + day.Format("20060102")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create summary request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/xml")

	resp, err := f.doWithRetry(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "summary for %s", day.Format("2006-01-02"))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		zap.L().Info("no gazette issue published",
			zap.String("day", day.Format("2006-01-02")))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("summary: unexpected status %d for %s", resp.StatusCode, day.Format("2006-01-02"))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read summary body")
	}

	return parseSummary(raw, day, f.opts.BaseURL)
}

// parseSummary extracts section-A document references from the summary XML.
// The alphabetical company index items are skipped: they duplicate the
// per-province documents.
func parseSummary(raw []byte, day time.Time, baseURL string) ([]model.DocumentRef, error) {
	var env summaryResponse
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, eris.Wrapf(err, "parse summary for %s", day.Format("2006-01-02"))
	}

	var refs []model.DocumentRef
	for _, issue := range env.Data.Summary.Issues {
		for _, section := range issue.Sections {
			if section.Code != sectionCompanies {
				continue
			}
			for _, item := range section.Items {
				if item.Identifier == "" || item.PDF == "" {
					continue
				}
				if strings.HasPrefix(strings.ToUpper(item.Title), "ÍNDICE") ||
					strings.HasPrefix(strings.ToUpper(item.Title), "INDICE") {
					continue
				}
				pdf := item.PDF
				if !strings.HasPrefix(pdf, "http") {
					pdf = baseURL + pdf
				}
				province := provinces.Normalize(item.Title)
				if province == "" {
					province = strings.TrimSpace(item.Title)
				}
				refs = append(refs, model.DocumentRef{
					GazetteID: item.Identifier,
					Day:       day,
					Province:  province,
					URL:       pdf,
				})
			}
		}
	}
	return refs, nil
}
