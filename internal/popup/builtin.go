package popup

// Default returns a registry with the formatters of the heat-planning layers.
func Default() *Registry {
	r := NewRegistry(Titled("name"))
	r.Register("kommunen", Titled("gen",
		Field{"Landkreis", "bez"},
		Field{"AGS", "ags"},
		Field{"Bevölkerung", "population"},
	))
	r.Register("energieanlagen", WithSymbol(Titled("name",
		Field{"Typ", "anlage"},
		Field{"Leistung", "leistung"},
		Field{"Energieträger", "energietraeger"},
	), "anlage", AssetSymbol))
	r.Register("waermenetze", Titled("name",
		Field{"Art", "art"},
		Field{"Bemerkung", "bemerkung"},
	))
	r.Register("erzeugungspotenziale", Titled("name",
		Field{"Art", "art"},
		Field{"Erzeugung", "erzeugungs"},
		Field{"Bemerkung", "bemerkung"},
	))
	r.Register("eignungsgebiete", Titled("name",
		Field{"Art", "art"},
	))
	r.Register("features", Titled("name",
		Field{"Info", "info"},
	))
	return r
}

var assetSymbols = map[string]string{
	"Freiflächen-Solaranlage":          "🔆️",
	"Windenergieanlage":                "🌬️",
	"Windenergieanlagn":                "🌬️", // misspelled in the source data
	"Wasserkraftwerk":                  "💧",
	"Geothermische Anlage":             "🛢️",
	"Bioenergieanlage":                 "♻️",
	"Klär- oder Deponiegasanlage":      "🧪",
	"Abfallverbrennungsanlage":         "🗑️",
	"Fossiles Heizkraftwerk":           "🏣",
	"Fossiles Kraftwerk":               "📂",
	"Fossiles Heizwerk":                "🔥",
	"Sonstige fossile Feuerungsanlage": "⛽",
	"Blockheizkraftwerk":               "🏭️",
}

const UnknownSymbol = "❓"

func AssetSymbol(anlage string) string {
	if s, ok := assetSymbols[anlage]; ok {
		return s
	}
	return UnknownSymbol
}
