package popup

import (
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
)

func TestDefault_KommunenRows(t *testing.T) {
	p := Default().Format("kommunen", geojson.Properties{
		"gen": "Oberursel", "bez": "Hochtaunuskreis", "ags": "06434008", "population": float64(46000),
	})
	if p.Title != "Oberursel" || len(p.Rows) != 3 {
		t.Fatalf("popup=%+v", p)
	}
	want := []Row{{"Landkreis", "Hochtaunuskreis"}, {"AGS", "06434008"}, {"Bevölkerung", "46000"}}
	for i, r := range want {
		if p.Rows[i] != r {
			t.Fatalf("row %d=%+v want %+v", i, p.Rows[i], r)
		}
	}
}

func TestDefault_EnergieanlagenSymbolAndMissingValues(t *testing.T) {
	p := Default().Format("energieanlagen", geojson.Properties{"name": "BHKW Nord", "anlage": "Blockheizkraftwerk"})
	if p.Symbol != "🏭️" {
		t.Fatalf("symbol=%q", p.Symbol)
	}
	if p.Rows[1] != (Row{"Leistung", ""}) || p.Rows[2] != (Row{"Energieträger", ""}) {
		t.Fatalf("missing values must render empty: %+v", p.Rows)
	}

	p = Default().Format("energieanlagen", geojson.Properties{"anlage": "Raumschiff"})
	if p.Symbol != UnknownSymbol || p.Title != "" {
		t.Fatalf("popup=%+v", p)
	}
}

func TestFormat_UnknownCategoryUsesFallback(t *testing.T) {
	p := Default().Format("sonstiges", geojson.Properties{"name": "X", "art": "y"})
	if p.Title != "X" || len(p.Rows) != 0 || p.Rows == nil {
		t.Fatalf("popup=%+v", p)
	}
	if p := Default().Format("sonstiges", nil); p.Title != "" {
		t.Fatalf("nil properties: %+v", p)
	}
}

func TestRegister_OverridesBuiltin(t *testing.T) {
	r := Default()
	r.Register("eignungsgebiete", Titled("bezeichnung"))
	if p := r.Format("eignungsgebiete", geojson.Properties{"bezeichnung": "Gebiet 7"}); p.Title != "Gebiet 7" {
		t.Fatalf("popup=%+v", p)
	}
}

func TestHTML_EscapesAndRendersRows(t *testing.T) {
	out := HTML(Default().Format("waermenetze", geojson.Properties{
		"name": "Netz <Süd>", "art": "Bestand", "bemerkung": `"alt"`,
	}))
	for _, want := range []string{
		"<h4>Netz &lt;Süd&gt;</h4>",
		"<tr><td><strong>Art:</strong></td><td>Bestand</td></tr>",
		"<td>&#34;alt&#34;</td>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(HTML(Popup{Title: "x"}), "<table>") {
		t.Fatal("no table expected without rows")
	}
}
