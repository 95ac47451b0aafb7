// Package normalize standardizes free-text fields from gazette notices for
// matching and indexing.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// foldTransformer decomposes to NFD, drops combining marks, recomposes.
// "Ñ" is kept: it is a distinct letter in Spanish names, not an accent.
var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.Predicate(func(r rune) bool {
		return unicode.Is(unicode.Mn, r) && r != 0x0303 // keep tilde so Ñ/ñ survive
	})),
	norm.NFC,
)

// Fold strips diacritics (except the eñe tilde), uppercases, and collapses
// whitespace.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToUpper(strings.TrimSpace(folded))
	return multiSpaceRe.ReplaceAllString(folded, " ")
}

// Name standardizes a company name for identity matching:
//  1. Trim whitespace and trailing periods
//  2. Fold diacritics, uppercase
//  3. Strip punctuation (commas, quotes, dashes)
//  4. Collapse multiple spaces
//
// Legal-form suffixes are deliberately NOT stripped: "ACME SL" and "ACME SA"
// are different registrations.
func Name(name string) string {
	name = strings.TrimRight(strings.TrimSpace(name), ".")
	if name == "" {
		return ""
	}

	name = Fold(name)

	name = strings.NewReplacer(
		",", "",
		"'", "",
		"\"", "",
		"-", " ",
		"&", " Y ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
