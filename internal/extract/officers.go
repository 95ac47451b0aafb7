package extract

import (
	"regexp"
	"strings"

	"github.com/registralia/borme-cli/internal/model"
)

var officerRe = regexp.MustCompile(`(?i)(Adm\.\s*(?:Unico|Unica|Solid\.?|Mancom\.?)|Administrador(?:a)?\s+(?:Unic[oa]|Solidari[oa]|Mancomunad[oa])|Presidente|Vice[Pp]residente|Secretario|Vicesecretario|Consejero(?:\s+Delegado)?|Cons\.\s?Del(?:eg)?\.?|Liquidador(?:es)?|Auditor(?:\s+de\s+cuentas)?|Apoderad[oa](?:s)?|Director\s+General|Socio\s+[UÚ]nico)\s*[:.]?\s*((?:[^;.]+)(?:;[^;.]+)*)`)

// roleAliases folds the gazette's role spellings onto a canonical form.
var roleAliases = map[string]string{
	"ADM. UNICO":    "Adm. Unico",
	"ADM.UNICO":     "Adm. Unico",
	"ADM. UNICA":    "Adm. Unico",
	"ADM. SOLID":    "Adm. Solid.",
	"ADM. SOLID.":   "Adm. Solid.",
	"ADM. MANCOM":   "Adm. Mancom.",
	"ADM. MANCOM.":  "Adm. Mancom.",
	"CONS.DEL":      "Consejero Delegado",
	"CONS.DELEG":    "Consejero Delegado",
	"CONS. DEL":     "Consejero Delegado",
	"CONS. DELEG.":  "Consejero Delegado",
	"LIQUIDADORES":  "Liquidador",
	"APODERADOS":    "Apoderado",
	"APODERADA":     "Apoderado",
	"SOCIO ÚNICO":   "Socio Unico",
	"SOCIO UNICO":   "Socio Unico",
	"VICEPRESIDENTE": "Vicepresidente",
}

func canonicalRole(raw string) string {
	role := strings.TrimSpace(strings.TrimRight(raw, ":. "))
	upper := strings.ToUpper(role)
	if c, ok := roleAliases[upper]; ok {
		return c
	}
	switch {
	case strings.HasPrefix(upper, "ADMINISTRADOR"):
		switch {
		case strings.Contains(upper, "SOLIDARI"):
			return "Adm. Solid."
		case strings.Contains(upper, "MANCOMUNAD"):
			return "Adm. Mancom."
		default:
			return "Adm. Unico"
		}
	case strings.HasPrefix(upper, "AUDITOR"):
		return "Auditor"
	}
	// Title-case unknown roles as-is.
	return role
}

// Officers extracts role/name pairs from a notice body. Multiple names under
// one role are split on semicolons; entries shorter than three runes are
// dropped as punctuation noise.
func Officers(body string) []model.ExtractedOfficer {
	var out []model.ExtractedOfficer
	seen := make(map[string]bool)
	for _, m := range officerRe.FindAllStringSubmatch(body, -1) {
		role := canonicalRole(m[1])
		for _, name := range strings.Split(m[2], ";") {
			name = strings.TrimSpace(strings.Trim(name, ".,"))
			if len([]rune(name)) <= 2 {
				continue
			}
			key := role + "\x00" + strings.ToUpper(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, model.ExtractedOfficer{Name: name, Role: role})
		}
	}
	return out
}
