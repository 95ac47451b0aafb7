package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/registralia/borme-cli/internal/model"
	"github.com/registralia/borme-cli/internal/provinces"
)

// pesetaRate converts pre-euro capital figures: 166.386 PTS per EUR.
const pesetaRate = 166.386

var (
	capitalRe  = regexp.MustCompile(`(?i)Capital(?:\s+suscrito)?:\s+([\d\.,]+)\s+(Euros?|€|Pesetas)`)
	purposeRe  = regexp.MustCompile(`(?is)Objeto\s+social:\s+(.+?)(?:\.\s+Domicilio:|\.\s+Capital:|\.\s+Comienzo|\.\s*$)`)
	addressRe  = regexp.MustCompile(`(?is)Domicilio:\s+(.+?)(?:\.\s+Capital:|\.\s+Objeto\s+social:|\.\s+Comienzo|\.\s+Datos|\.\s*$)`)
	startedRe  = regexp.MustCompile(`(?i)Comienzo\s+de\s+operaciones:\s+(\d{1,2}[./]\d{1,2}[./]\d{2,4})`)
	localityRe = regexp.MustCompile(`(?i)\b(?:C/|CALLE|AVDA\.?|AVENIDA|PLAZA|PZA\.?|CTRA\.?|CARRETERA|CAMINO|PASEO|POLIGONO|POL\.?)\b`)
)

// legalForms is checked in order: longer abbreviations first so that S.L.U.
// does not resolve as S.L.
var legalForms = []struct {
	re   *regexp.Regexp
	form string
}{
	{regexp.MustCompile(`(?i)\bSOCIEDAD\s+LIMITADA\s+UNIPERSONAL\b`), "SLU"},
	{regexp.MustCompile(`(?i)\bSOCIEDAD\s+LIMITADA\s+LABORAL\b`), "SLL"},
	{regexp.MustCompile(`(?i)\bSOCIEDAD\s+(?:DE\s+RESPONSABILIDAD\s+)?LIMITADA\b`), "SL"},
	{regexp.MustCompile(`(?i)\bSOCIEDAD\s+ANONIMA\s+UNIPERSONAL\b`), "SAU"},
	{regexp.MustCompile(`(?i)\bSOCIEDAD\s+AN[OÓ]NIMA\b`), "SA"},
	{regexp.MustCompile(`(?i)\bSOCIEDAD\s+COOPERATIVA\b`), "SCOOP"},
	{regexp.MustCompile(`(?i)\bS\.?\s?L\.?\s?U\.?\b`), "SLU"},
	{regexp.MustCompile(`(?i)\bS\.?\s?L\.?\s?L\.?\b`), "SLL"},
	{regexp.MustCompile(`(?i)\bS\.?\s?A\.?\s?U\.?\b`), "SAU"},
	{regexp.MustCompile(`(?i)\bS\.?\s?COOP\.?\b`), "SCOOP"},
	{regexp.MustCompile(`(?i)\bS\.?\s?L\.?\b`), "SL"},
	{regexp.MustCompile(`(?i)\bS\.?\s?A\.?\b`), "SA"},
	{regexp.MustCompile(`(?i)\bS\.?\s?C\.?\b`), "SC"},
	{regexp.MustCompile(`(?i)\bC\.?\s?B\.?\b`), "CB"},
}

// LegalForm infers the legal form abbreviation from a company name, or ""
// when the name carries no recognizable suffix.
func LegalForm(name string) string {
	for _, lf := range legalForms {
		if lf.re.MatchString(name) {
			return lf.form
		}
	}
	return ""
}

// parseCapital converts a Spanish-locale amount ("3.000,50") plus its unit
// into euros. Peseta figures are converted at the fixed exchange rate.
func parseCapital(raw, unit string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if strings.EqualFold(unit, "Pesetas") {
		v /= pesetaRate
	}
	return v, true
}

// parseDate accepts the gazette's dd.mm.yy and dd.mm.yyyy spellings, with
// either dots or slashes. Two-digit years below 50 resolve to 20xx.
func parseDate(raw string) (time.Time, bool) {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '.' || r == '/' })
	if len(parts) != 3 {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 100 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// addressParts splits "CALLE MAYOR 5 (MADRID)" style addresses into the
// street part and a locality, and tries to recognize a province in either.
func addressParts(address string) (locality, province string) {
	// Locality most often rides in a trailing parenthesis.
	if open := strings.LastIndex(address, "("); open >= 0 {
		if close := strings.Index(address[open:], ")"); close > 0 {
			locality = strings.TrimSpace(address[open+1 : open+close])
		}
	}
	if locality == "" {
		// Fall back to the segment after the last comma, unless it looks
		// like more street text.
		if comma := strings.LastIndex(address, ","); comma >= 0 {
			tail := strings.TrimSpace(address[comma+1:])
			if tail != "" && !localityRe.MatchString(tail) && !hasDigit(tail) {
				locality = tail
			}
		}
	}
	if locality != "" {
		if p := provinces.Normalize(locality); p != "" {
			province = p
		}
	}
	return locality, province
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// incorporationFields pulls the structured constitution fields out of a
// notice body. Missing fields stay zero-valued.
func incorporationFields(body string) model.ExtractedFields {
	var f model.ExtractedFields
	if m := capitalRe.FindStringSubmatch(body); m != nil {
		if v, ok := parseCapital(m[1], m[2]); ok {
			f.Capital = &v
		}
	}
	if m := purposeRe.FindStringSubmatch(body); m != nil {
		f.CorporatePurpose = strings.TrimSpace(m[1])
	}
	if m := addressRe.FindStringSubmatch(body); m != nil {
		f.Address = strings.TrimSpace(m[1])
		f.Locality, f.Province = addressParts(f.Address)
	}
	if m := startedRe.FindStringSubmatch(body); m != nil {
		if t, ok := parseDate(m[1]); ok {
			f.OperationsStart = &t
		}
	}
	return f
}
