package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registralia/borme-cli/internal/model"
)

const sampleDoc = `BOLETÍN OFICIAL DEL REGISTRO MERCANTIL
Núm. 93  Lunes 19 de mayo de 2025  Pág. 20871

218472 - ACME SOLUCIONES, SOCIEDAD LIMITADA.
Constitución. Comienzo de operaciones: 12.05.2025. Objeto social: Desarrollo
de software y consultoría informática. Domicilio: CALLE GRAN VIA 1 (MADRID).
Capital: 3.000,00 Euros.
218473 - BETA LOGISTICA SL.
Nombramientos. Adm. Unico: GARCIA LOPEZ, MARIA. Apoderado: PEREZ RUIZ, JUAN;
SANZ GIL, ANA. Datos registrales. T 1234, F 56.
218474 - GAMMA TEXTIL SA.
xx 93 qq 20871 zz
`

var day = time.Date(2025, 5, 19, 0, 0, 0, 0, time.UTC)

func TestSegment(t *testing.T) {
	blocks := Segment(sampleDoc)
	require.Len(t, blocks, 3)
	assert.Equal(t, "218472", blocks[0].Seq)
	assert.Equal(t, "ACME SOLUCIONES, SOCIEDAD LIMITADA", blocks[0].Company)
	assert.Equal(t, "BETA LOGISTICA SL", blocks[1].Company)
	assert.Equal(t, "GAMMA TEXTIL SA", blocks[2].Company)
	// Wrapped lines are joined before field extraction.
	assert.Contains(t, blocks[0].Body, "Desarrollo de software")
}

func TestActsIncorporation(t *testing.T) {
	acts := Acts(sampleDoc, "BORME-A-2025-93-28", "Madrid", day)
	require.NotEmpty(t, acts)

	act := acts[0]
	assert.Equal(t, model.ActIncorporation, act.Type)
	assert.Equal(t, "Constitución", act.Label)
	assert.Equal(t, model.ExtractionFull, act.Status)
	assert.Equal(t, "ACME SOLUCIONES, SOCIEDAD LIMITADA", act.Fields.CompanyName)
	assert.Equal(t, "SL", act.Fields.LegalForm)
	require.NotNil(t, act.Fields.Capital)
	assert.InDelta(t, 3000.0, *act.Fields.Capital, 0.01)
	assert.Equal(t, "CALLE GRAN VIA 1 (MADRID)", act.Fields.Address)
	assert.Equal(t, "MADRID", act.Fields.Locality)
	assert.Equal(t, "Madrid", act.Fields.Province)
	assert.Equal(t, "Desarrollo de software y consultoría informática", act.Fields.CorporatePurpose)
	assert.Equal(t, "62", act.Fields.SectorEstimate)
	require.NotNil(t, act.Fields.OperationsStart)
	assert.Equal(t, time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC), *act.Fields.OperationsStart)
}

func TestActsAppointments(t *testing.T) {
	acts := Acts(sampleDoc, "BORME-A-2025-93-28", "Madrid", day)
	require.GreaterOrEqual(t, len(acts), 2)

	act := acts[1]
	assert.Equal(t, model.ActAppointment, act.Type)
	assert.Equal(t, "Nombramientos", act.Label)
	assert.Equal(t, model.ExtractionFull, act.Status)
	assert.Equal(t, "BETA LOGISTICA SL", act.Fields.CompanyName)
	require.Len(t, act.Fields.Officers, 3)
	assert.Equal(t, model.ExtractedOfficer{Name: "GARCIA LOPEZ, MARIA", Role: "Adm. Unico"}, act.Fields.Officers[0])
	assert.Equal(t, model.ExtractedOfficer{Name: "PEREZ RUIZ, JUAN", Role: "Apoderado"}, act.Fields.Officers[1])
	assert.Equal(t, model.ExtractedOfficer{Name: "SANZ GIL, ANA", Role: "Apoderado"}, act.Fields.Officers[2])
}

func TestActsUnreadableBlock(t *testing.T) {
	acts := Acts(sampleDoc, "BORME-A-2025-93-28", "Madrid", day)
	require.Len(t, acts, 3)

	act := acts[2]
	assert.Equal(t, model.ActOther, act.Type)
	assert.Empty(t, act.Label)
	assert.Equal(t, model.ExtractionUnclassified, act.Status)
	assert.Equal(t, "GAMMA TEXTIL SA", act.Fields.CompanyName)
	assert.Equal(t, "SA", act.Fields.LegalForm)
	assert.Nil(t, act.Fields.Capital)
	assert.Empty(t, act.Fields.CorporatePurpose)
	assert.NotEmpty(t, act.Excerpt)
}

func TestActsMultipleHeadingsInBlock(t *testing.T) {
	text := `1001 - DELTA ENERGIA SLU.
Disolución. Liquidador: MARTIN SOTO, LUIS. Extinción. Datos registrales.
`
	acts := Acts(text, "BORME-A-2025-93-01", "Sevilla", day)
	require.Len(t, acts, 2)
	assert.Equal(t, model.ActDissolution, acts[0].Type)
	assert.Equal(t, "Disolución", acts[0].Label)
	assert.Equal(t, model.ActDissolution, acts[1].Type)
	assert.Equal(t, "Extinción", acts[1].Label)
	assert.Equal(t, "SLU", acts[0].Fields.LegalForm)
	assert.Equal(t, "Sevilla", acts[0].Fields.Province)
}

func TestClassifyHeadings(t *testing.T) {
	label, actType := classify("depósito de cuentas")
	assert.Equal(t, "Depósito de cuentas", label)
	assert.Equal(t, model.ActOther, actType)

	label, actType = classify("Constitución")
	assert.Equal(t, "Constitución", label)
	assert.Equal(t, model.ActIncorporation, actType)
}

func TestParseCapital(t *testing.T) {
	tests := []struct {
		raw, unit string
		want      float64
	}{
		{"3.000,00", "Euros", 3000},
		{"3.000", "Euros", 3000},
		{"60.101,21", "Euros", 60101.21},
		{"10.000.000", "Pesetas", 10000000 / 166.386},
	}
	for _, tt := range tests {
		got, ok := parseCapital(tt.raw, tt.unit)
		require.True(t, ok, "raw=%q", tt.raw)
		assert.InDelta(t, tt.want, got, 0.01, "raw=%q", tt.raw)
	}

	_, ok := parseCapital("n/a", "Euros")
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"12.05.2025", time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)},
		{"1/2/24", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"31.12.99", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := parseDate(tt.raw)
		require.True(t, ok, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
	}

	_, ok := parseDate("mañana")
	assert.False(t, ok)
	_, ok = parseDate("45.13.2025")
	assert.False(t, ok)
}

func TestLegalForm(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"ACME SOLUCIONES SL", "SL"},
		{"ACME, S.L.", "SL"},
		{"ACME SOCIEDAD LIMITADA", "SL"},
		{"ACME SOCIEDAD LIMITADA UNIPERSONAL", "SLU"},
		{"ACME SLU", "SLU"},
		{"ACME SOCIEDAD ANONIMA", "SA"},
		{"ACME S.A.U.", "SAU"},
		{"ACME S.COOP.", "SCOOP"},
		{"ACME Y OTROS CB", "CB"},
		{"ACME SOLUCIONES", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LegalForm(tt.name), "name=%q", tt.name)
	}
}

func TestAddressParts(t *testing.T) {
	tests := []struct {
		address, locality, province string
	}{
		{"CALLE GRAN VIA 1 (MADRID)", "MADRID", "Madrid"},
		{"AVDA. DIAGONAL 100 (BARCELONA)", "BARCELONA", "Barcelona"},
		{"POLIGONO SUR NAVE 3, GETAFE", "GETAFE", ""},
		{"CALLE MAYOR 5", "", ""},
	}
	for _, tt := range tests {
		locality, province := addressParts(tt.address)
		assert.Equal(t, tt.locality, locality, "address=%q", tt.address)
		assert.Equal(t, tt.province, province, "address=%q", tt.address)
	}
}

func TestOfficersRoleAliases(t *testing.T) {
	body := "Cons.Del: RUIZ VEGA, PABLO. Adm. Mancom.: LARA GIL, EVA; POZO DIAZ, IVAN."
	officers := Officers(body)
	require.Len(t, officers, 3)
	assert.Equal(t, "Consejero Delegado", officers[0].Role)
	assert.Equal(t, "Adm. Mancom.", officers[1].Role)
	assert.Equal(t, "Adm. Mancom.", officers[2].Role)
}

func TestOfficersDropsNoise(t *testing.T) {
	officers := Officers("Liquidador: X.")
	assert.Empty(t, officers)
}
