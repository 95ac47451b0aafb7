// Package extract turns the plain text of a gazette section-A document into
// structured mercantile acts. Extraction is regex-driven and lossy on
// purpose: anything the patterns cannot read is kept as an unclassified act
// with its raw excerpt so no notice silently disappears.
package extract

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/sector"
)

// headerRe matches the numbered company header that opens every notice
// block, e.g. "123456 - ACME SOLUCIONES, SOCIEDAD LIMITADA."
var headerRe = regexp.MustCompile(`(?m)^(\d{1,7})\s*[.\-]+\s*(.+?)\.\s*$`)

var spaceRe = regexp.MustCompile(`\s+`)

const excerptLimit = 500

// Block is one company's notice block: the header name plus everything up to
// the next header.
type Block struct {
	Seq     string
	Company string
	Body    string
}

// Segment splits document text into company notice blocks. Text before the
// first header (issue banner, page furniture) is discarded.
func Segment(text string) []Block {
	headers := headerRe.FindAllStringSubmatchIndex(text, -1)
	blocks := make([]Block, 0, len(headers))
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := strings.TrimSpace(text[h[1]:end])
		blocks = append(blocks, Block{
			Seq:     text[h[2]:h[3]],
			Company: strings.TrimSpace(text[h[4]:h[5]]),
			Body:    spaceRe.ReplaceAllString(body, " "),
		})
	}
	return blocks
}

// Acts extracts every mercantile act from a document's text. Acts come back
// without IDs or company links; province is the document's province and is
// used when a notice does not state its own. The caller persists them.
func Acts(text, gazetteID, province string, published time.Time) []model.MercantileAct {
	blocks := Segment(text)
	var acts []model.MercantileAct
	for _, b := range blocks {
		acts = append(acts, blockActs(b, gazetteID, province, published)...)
	}
	zap.L().Debug("document extracted",
		zap.String("gazette_id", gazetteID),
		zap.Int("blocks", len(blocks)),
		zap.Int("acts", len(acts)))
	return acts
}

func blockActs(b Block, gazetteID, province string, published time.Time) []model.MercantileAct {
	headings := actPattern.FindAllStringSubmatchIndex(b.Body, -1)
	if len(headings) == 0 {
		// Nothing recognizable in the block: keep it as a single
		// unclassified act so the notice is still on record.
		return []model.MercantileAct{{
			GazetteID: gazetteID,
			Type:      model.ActOther,
			Label:     "",
			Status:    model.ExtractionUnclassified,
			Published: published,
			Excerpt:   excerpt(b.Body),
			Fields:    baseFields(b.Company, province),
		}}
	}

	acts := make([]model.MercantileAct, 0, len(headings))
	for i, h := range headings {
		end := len(b.Body)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		label, actType := classify(b.Body[h[2]:h[3]])
		body := strings.TrimSpace(b.Body[h[1]:end])

		fields := baseFields(b.Company, province)
		switch {
		case actType == model.ActIncorporation:
			inc := incorporationFields(body)
			inc.CompanyName = fields.CompanyName
			inc.LegalForm = fields.LegalForm
			if inc.Province == "" {
				inc.Province = province
			}
			inc.SectorEstimate = sector.Guess(inc.CorporatePurpose)
			inc.Officers = Officers(body)
			fields = inc
		case rosterLabel(label):
			fields.Officers = Officers(body)
		}

		acts = append(acts, model.MercantileAct{
			GazetteID: gazetteID,
			Type:      actType,
			Label:     label,
			Status:    status(actType, label, fields),
			Published: published,
			Excerpt:   excerpt(body),
			Fields:    fields,
		})
	}
	return acts
}

func baseFields(company, province string) model.ExtractedFields {
	name := strings.TrimRight(strings.TrimSpace(company), ".")
	return model.ExtractedFields{
		CompanyName: name,
		LegalForm:   LegalForm(name),
		Province:    province,
	}
}

// status grades how much of the notice the patterns managed to read.
func status(t model.ActType, label string, f model.ExtractedFields) model.ExtractionStatus {
	switch {
	case t == model.ActIncorporation:
		if f.Capital != nil && f.Address != "" && f.CorporatePurpose != "" {
			return model.ExtractionFull
		}
		return model.ExtractionPartial
	case rosterLabel(label):
		if len(f.Officers) > 0 {
			return model.ExtractionFull
		}
		return model.ExtractionPartial
	default:
		return model.ExtractionFull
	}
}

func excerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= excerptLimit {
		return body
	}
	return string(runes[:excerptLimit])
}
