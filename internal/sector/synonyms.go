package sector

import (
	_ "embed"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/registralia/borme-cli/internal/normalize"
)

//go:embed synonyms.yaml
var synonymsYAML []byte

// synonymMap indexes every term of a synonym group to the whole group.
var synonymMap = func() map[string][]string {
	var groups [][]string
	if err := yaml.Unmarshal(synonymsYAML, &groups); err != nil {
		panic("sector: embedded synonyms.yaml is invalid: " + err.Error())
	}
	m := make(map[string][]string)
	for _, group := range groups {
		folded := make([]string, 0, len(group))
		for _, term := range group {
			folded = append(folded, normalize.Fold(term))
		}
		sort.Strings(folded)
		for _, term := range folded {
			m[term] = folded
		}
	}
	return m
}()

// Synonyms returns the synonym group for a folded search term, or nil when
// the term has no group.
func Synonyms(term string) []string {
	return synonymMap[normalize.Fold(term)]
}

// ExpandQuery splits a free-text query into per-word alternatives: each word
// with a synonym group becomes the whole group, other words stay singletons.
// Words shorter than two runes are dropped.
func ExpandQuery(query string) [][]string {
	var out [][]string
	for _, word := range strings.Fields(normalize.Fold(query)) {
		if len([]rune(word)) < 2 {
			continue
		}
		if group := synonymMap[word]; group != nil {
			out = append(out, group)
			continue
		}
		out = append(out, []string{word})
	}
	return out
}
