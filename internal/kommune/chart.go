package kommune

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/heatbox-map/internal/evaluate"
)

// Carriers are the energy-mix series in display order.
var Carriers = []string{"Gas", "Öl", "Fernwärme", "Elektro", "Sonstiges"}

type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
	Fill  bool      `json:"fill"`
}

type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type AxisTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type Axis struct {
	Stacked bool      `json:"stacked,omitempty"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Title   AxisTitle `json:"title"`
}

type Legend struct {
	Position string `json:"position"`
}

type Plugins struct {
	Legend Legend `json:"legend"`
}

type Options struct {
	Responsive bool            `json:"responsive"`
	Plugins    Plugins         `json:"plugins"`
	Scales     map[string]Axis `json:"scales"`
}

// Chart is a line chart configuration ready for the client charting library.
type Chart struct {
	Type    string    `json:"type"`
	Data    ChartData `json:"data"`
	Options Options   `json:"options"`
}

// NewChart builds the stacked share-per-carrier chart from energy-mix rows.
// Missing or unparsable shares are plotted as 0.
func NewChart(rows []map[string]any) Chart {
	lo, hi := 0.0, 100.0
	c := Chart{
		Type: "line",
		Data: ChartData{Labels: make([]string, 0, len(rows)), Datasets: make([]Dataset, 0, len(Carriers))},
		Options: Options{
			Responsive: true,
			Plugins:    Plugins{Legend: Legend{Position: "bottom"}},
			Scales: map[string]Axis{
				"y": {Stacked: true, Min: &lo, Max: &hi, Title: AxisTitle{Display: true, Text: "Anteil (%)"}},
				"x": {Title: AxisTitle{Display: true, Text: "Jahr"}},
			},
		},
	}
	for _, r := range rows {
		c.Data.Labels = append(c.Data.Labels, evaluate.PropString(geojson.Properties(r), "jahr"))
	}
	for _, carrier := range Carriers {
		ds := Dataset{Label: carrier, Data: make([]float64, len(rows)), Fill: true}
		for i, r := range rows {
			ds.Data[i] = share(r[carrier])
		}
		c.Data.Datasets = append(c.Data.Datasets, ds)
	}
	return c
}

func share(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		if err == nil {
			return f
		}
	}
	return 0
}
