package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Construcción", "CONSTRUCCION"},
		{"  málaga  ", "MALAGA"},
		{"Señor   Peña", "SEÑOR PEÑA"},
		{"Álava", "ALAVA"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), "Fold(%q)", tt.in)
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Soluciones, S.L.", "ACME SOLUCIONES S.L"},
		{"GESTIÓN   IBÉRICA SL.", "GESTION IBERICA SL"},
		{"PÉREZ & HIJOS SA", "PEREZ Y HIJOS SA"},
		{"taller-mecánico del sur slu", "TALLER MECANICO DEL SUR SLU"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Name(tt.in), "Name(%q)", tt.in)
	}
}

func TestNameKeepsLegalForm(t *testing.T) {
	// SL vs SA must stay distinct: the suffix is part of the identity.
	assert.NotEqual(t, Name("ACME SL"), Name("ACME SA"))
}
