// Package provinces holds the canonical Spanish province table and the
// normalization of the spellings that appear in gazette section headers and
// registered addresses.
package provinces

import "strings"

// Province is one entry of the canonical table.
type Province struct {
	Code   string
	Name   string
	Region string
}

// All lists the 52 provinces (including Ceuta and Melilla) with their INE code
// and autonomous community.
var All = []Province{
	{"01", "Álava", "País Vasco"},
	{"02", "Albacete", "Castilla-La Mancha"},
	{"03", "Alicante", "Comunidad Valenciana"},
	{"04", "Almería", "Andalucía"},
	{"05", "Ávila", "Castilla y León"},
	{"06", "Badajoz", "Extremadura"},
	{"07", "Baleares", "Islas Baleares"},
	{"08", "Barcelona", "Cataluña"},
	{"09", "Burgos", "Castilla y León"},
	{"10", "Cáceres", "Extremadura"},
	{"11", "Cádiz", "Andalucía"},
	{"12", "Castellón", "Comunidad Valenciana"},
	{"13", "Ciudad Real", "Castilla-La Mancha"},
	{"14", "Córdoba", "Andalucía"},
	{"15", "A Coruña", "Galicia"},
	{"16", "Cuenca", "Castilla-La Mancha"},
	{"17", "Girona", "Cataluña"},
	{"18", "Granada", "Andalucía"},
	{"19", "Guadalajara", "Castilla-La Mancha"},
	{"20", "Guipúzcoa", "País Vasco"},
	{"21", "Huelva", "Andalucía"},
	{"22", "Huesca", "Aragón"},
	{"23", "Jaén", "Andalucía"},
	{"24", "León", "Castilla y León"},
	{"25", "Lleida", "Cataluña"},
	{"26", "La Rioja", "La Rioja"},
	{"27", "Lugo", "Galicia"},
	{"28", "Madrid", "Comunidad de Madrid"},
	{"29", "Málaga", "Andalucía"},
	{"30", "Murcia", "Región de Murcia"},
	{"31", "Navarra", "Navarra"},
	{"32", "Ourense", "Galicia"},
	{"33", "Asturias", "Asturias"},
	{"34", "Palencia", "Castilla y León"},
	{"35", "Las Palmas", "Canarias"},
	{"36", "Pontevedra", "Galicia"},
	{"37", "Salamanca", "Castilla y León"},
	{"38", "Santa Cruz de Tenerife", "Canarias"},
	{"39", "Cantabria", "Cantabria"},
	{"40", "Segovia", "Castilla y León"},
	{"41", "Sevilla", "Andalucía"},
	{"42", "Soria", "Castilla y León"},
	{"43", "Tarragona", "Cataluña"},
	{"44", "Teruel", "Aragón"},
	{"45", "Toledo", "Castilla-La Mancha"},
	{"46", "Valencia", "Comunidad Valenciana"},
	{"47", "Valladolid", "Castilla y León"},
	{"48", "Vizcaya", "País Vasco"},
	{"49", "Zamora", "Castilla y León"},
	{"50", "Zaragoza", "Aragón"},
	{"51", "Ceuta", "Ceuta"},
	{"52", "Melilla", "Melilla"},
}

// variants maps gazette spellings (co-official names, accent-less forms,
// historical abbreviations) onto the canonical name. Keys are uppercase.
var variants = map[string]string{
	"ALAVA":                  "Álava",
	"ARABA":                  "Álava",
	"ARABA/ALAVA":            "Álava",
	"ALMERIA":                "Almería",
	"AVILA":                  "Ávila",
	"BIZKAIA":                "Vizcaya",
	"GIPUZKOA":               "Guipúzcoa",
	"GUIPUZCOA":              "Guipúzcoa",
	"ILLES BALEARS":          "Baleares",
	"ISLAS BALEARES":         "Baleares",
	"CACERES":                "Cáceres",
	"CADIZ":                  "Cádiz",
	"CASTELLON":              "Castellón",
	"CASTELLO":               "Castellón",
	"CORDOBA":                "Córdoba",
	"A CORUÑA":               "A Coruña",
	"LA CORUÑA":              "A Coruña",
	"A CORUNA":               "A Coruña",
	"LA CORUNA":              "A Coruña",
	"GERONA":                 "Girona",
	"GIRONA":                 "Girona",
	"JAEN":                   "Jaén",
	"LEON":                   "León",
	"LERIDA":                 "Lleida",
	"LLEIDA":                 "Lleida",
	"MALAGA":                 "Málaga",
	"ORENSE":                 "Ourense",
	"OURENSE":                "Ourense",
	"S.C. TENERIFE":          "Santa Cruz de Tenerife",
	"SC TENERIFE":            "Santa Cruz de Tenerife",
	"STA. CRUZ DE TENERIFE":  "Santa Cruz de Tenerife",
	"SANTA CRUZ DE TENERIFE": "Santa Cruz de Tenerife",
	"LAS PALMAS":             "Las Palmas",
	"VALENCIA/VALENCIA":      "Valencia",
}

var byUpper = func() map[string]string {
	m := make(map[string]string, len(All)+len(variants))
	for _, p := range All {
		m[strings.ToUpper(p.Name)] = p.Name
	}
	for k, v := range variants {
		m[k] = v
	}
	return m
}()

// Normalize matches a raw province string against the canonical table.
// Returns "" when the string is not recognizable as a province.
func Normalize(raw string) string {
	return byUpper[strings.ToUpper(strings.TrimSpace(raw))]
}

// Valid reports whether name is a canonical province name.
func Valid(name string) bool {
	for _, p := range All {
		if p.Name == name {
			return true
		}
	}
	return false
}
