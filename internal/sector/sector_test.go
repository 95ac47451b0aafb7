package sector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuessExplicitCNAE(t *testing.T) {
	tests := []struct {
		purpose string
		want    string
	}{
		{"Actividades de programación informática. CNAE 6201.", "62"},
		{"CNAE 2009: 43.21 instalaciones eléctricas", "43"},
		{"CNAE de la actividad principal: 68,10", "68"},
		{"cnae 5610", "56"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Guess(tt.purpose), "purpose=%q", tt.purpose)
	}
}

func TestGuessBareCode(t *testing.T) {
	// A bare 4-digit code counts, years do not.
	assert.Equal(t, "62", Guess("Desde 2021 presta servicios con código 6209."))
	assert.Equal(t, "", Guess("Constituida en 2020 sin más datos."))
}

func TestGuessKeywords(t *testing.T) {
	tests := []struct {
		purpose string
		want    string
	}{
		{"La promoción inmobiliaria y la construcción de edificios.", "41"},
		{"Explotación de restaurante, bar y cafetería.", "56"},
		{"Desarrollo de software y consultoría informática.", "62"},
		{"Asesoría fiscal y contable para pymes.", "69"},
		{"", ""},
		{"Texto sin actividad reconocible.", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Guess(tt.purpose), "purpose=%q", tt.purpose)
	}
}

func TestSynonyms(t *testing.T) {
	group := Synonyms("construcción")
	assert.Contains(t, group, "OBRAS")
	assert.Contains(t, group, "REFORMAS")
	assert.Nil(t, Synonyms("zzzz"))
}

func TestExpandQuery(t *testing.T) {
	expanded := ExpandQuery("construcción madrid")
	if assert.Len(t, expanded, 2) {
		assert.Contains(t, expanded[0], "CONSTRUCCION")
		assert.Contains(t, expanded[0], "OBRAS")
		assert.Equal(t, []string{"MADRID"}, expanded[1])
	}

	assert.Empty(t, ExpandQuery(""))
	// Single-letter words are dropped.
	assert.Len(t, ExpandQuery("a madrid"), 1)
}
