// Package sector estimates a CNAE-2009 division from corporate-purpose text.
// The estimate is best-effort and never authoritative: an explicit CNAE
// mention wins, then a bare 4-digit code, then keyword scoring.
package sector

import (
	_ "embed"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/registralia/borme-cli/internal/normalize"
)

//go:embed cnae.yaml
var cnaeYAML []byte

// keywords maps a CNAE division to the purpose-text keywords that suggest it.
// Keywords are stored accent-free and lowercase.
var keywords = func() map[string][]string {
	m := make(map[string][]string)
	if err := yaml.Unmarshal(cnaeYAML, &m); err != nil {
		panic("sector: embedded cnae.yaml is invalid: " + err.Error())
	}
	return m
}()

var (
	cnaeMentionRe = regexp.MustCompile(`(?i)CNAE`)
	yearSkipRe    = regexp.MustCompile(`^[\s:\-]*20\d{2}\s*\)?`)
	activitySkip  = regexp.MustCompile(`(?i)^[\s:\-]*(?:actividad\s+principal|de\s+la\s+actividad\s+princ(?:ipal)?)\s*:?\s*`)
	sepSkipRe     = regexp.MustCompile(`^[\s:\-]+`)
	codeRe        = regexp.MustCompile(`^(\d{2})[.,]?\d{0,2}`)
	bareCodeRe    = regexp.MustCompile(`\b(\d{4})\b`)
)

// Guess returns the estimated CNAE division ("01".."99") for a corporate
// purpose, or "" when nothing matches.
func Guess(purpose string) string {
	if purpose == "" {
		return ""
	}

	if div := explicitMention(purpose); div != "" {
		return div
	}

	// Bare 4-digit code that isn't a year.
	for _, m := range bareCodeRe.FindAllStringSubmatch(purpose, -1) {
		code := m[1]
		if strings.HasPrefix(code, "19") || strings.HasPrefix(code, "20") {
			continue
		}
		if div := code[:2]; validDivision(div) {
			return div
		}
	}

	return keywordScore(purpose)
}

// explicitMention extracts the division from "CNAE 2009: 62.01"-style text.
func explicitMention(text string) string {
	for _, loc := range cnaeMentionRe.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		if m := yearSkipRe.FindString(rest); m != "" {
			rest = rest[len(m):]
		}
		if m := activitySkip.FindString(rest); m != "" {
			rest = rest[len(m):]
		}
		if m := sepSkipRe.FindString(rest); m != "" {
			rest = rest[len(m):]
		}
		if m := codeRe.FindStringSubmatch(rest); m != nil && validDivision(m[1]) {
			return m[1]
		}
	}
	return ""
}

func keywordScore(purpose string) string {
	text := strings.ToLower(normalize.Fold(purpose))
	best, bestCount := "", 0
	for div, kws := range keywords {
		count := 0
		for _, kw := range kws {
			if strings.Contains(text, kw) {
				count++
			}
		}
		if count > bestCount || (count == bestCount && count > 0 && div < best) {
			best, bestCount = div, count
		}
	}
	if bestCount == 0 {
		return ""
	}
	return best
}

func validDivision(div string) bool {
	return len(div) == 2 && div >= "01" && div <= "99"
}
