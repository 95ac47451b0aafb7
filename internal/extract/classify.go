package extract

import (
	"regexp"
	"strings"

	"github.com/registralia/borme-cli/internal/model"
)

// actLabels lists the notice headings that appear in section A of the
// gazette, longest-match first where one is a prefix of another.
var actLabels = []string{
	"Constitución",
	"Nombramientos",
	"Ceses/Dimisiones",
	"Revocaciones",
	"Reelecciones",
	"Cambio de domicilio social",
	"Cambio de objeto social",
	"Cambio de denominación social",
	"Ampliación de objeto social",
	"Ampliación de capital",
	"Reducción de capital",
	"Modificación de estatutos",
	"Disolución",
	"Liquidación",
	"Extinción",
	"Fusión",
	"Escisión",
	"Situación concursal",
	"Depósito de cuentas",
	"Emisión de obligaciones",
	"Transformación de sociedad",
	"Cancelaciones de oficio de nombramientos",
	"Declaración de unipersonalidad",
	"Pérdida del carácter de unipersonalidad",
	"Fe de erratas",
	"Otros conceptos",
}

// labelType maps a gazette heading onto the normalized act type. Headings not
// listed here classify as "other" while keeping the original label.
var labelType = map[string]model.ActType{
	"Constitución":         model.ActIncorporation,
	"Nombramientos":        model.ActAppointment,
	"Reelecciones":         model.ActAppointment,
	"Ceses/Dimisiones":     model.ActResignation,
	"Revocaciones":         model.ActResignation,
	"Ampliación de capital": model.ActCapitalChange,
	"Reducción de capital":  model.ActCapitalChange,
	"Disolución":           model.ActDissolution,
	"Liquidación":          model.ActDissolution,
	"Extinción":            model.ActDissolution,
}

var actPattern = func() *regexp.Regexp {
	quoted := make([]string, 0, len(actLabels))
	for _, l := range actLabels {
		quoted = append(quoted, regexp.QuoteMeta(l))
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)\.\s*`)
}()

// canonicalLabel maps a case-folded heading back to its canonical spelling.
var canonicalLabel = func() map[string]string {
	m := make(map[string]string, len(actLabels))
	for _, l := range actLabels {
		m[strings.ToLower(l)] = l
	}
	return m
}()

// classify resolves a matched heading to (canonical label, act type).
func classify(heading string) (string, model.ActType) {
	label, ok := canonicalLabel[strings.ToLower(heading)]
	if !ok {
		return heading, model.ActOther
	}
	if t, ok := labelType[label]; ok {
		return label, t
	}
	return label, model.ActOther
}

// rosterLabel reports whether acts under this heading carry officer lists.
func rosterLabel(label string) bool {
	switch label {
	case "Nombramientos", "Ceses/Dimisiones", "Reelecciones", "Revocaciones":
		return true
	default:
		return false
	}
}
