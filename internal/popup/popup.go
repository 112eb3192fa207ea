// Package popup formats feature properties for the per-feature map popup.
package popup

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/heatbox-map/internal/evaluate"
)

type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Popup struct {
	Title  string `json:"title"`
	Symbol string `json:"symbol,omitempty"`
	Rows   []Row  `json:"rows"`
}

// Formatter turns one feature's properties into a popup.
type Formatter func(props geojson.Properties) Popup

// Registry maps category names to formatters; unknown categories use the
// fallback formatter.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Formatter
	fallback Formatter
}

func NewRegistry(fallback Formatter) *Registry {
	if fallback == nil {
		fallback = Titled("name")
	}
	return &Registry{byName: map[string]Formatter{}, fallback: fallback}
}

func (r *Registry) Register(category string, f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[category] = f
}

func (r *Registry) Lookup(category string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byName[category]
	return f, ok
}

func (r *Registry) Format(category string, props geojson.Properties) Popup {
	f, ok := r.Lookup(category)
	if !ok {
		f = r.fallback
	}
	p := f(props)
	if p.Rows == nil {
		p.Rows = []Row{}
	}
	return p
}

// Field pairs a row label with the property it reads.
type Field struct {
	Label string
	Key   string
}

// Titled builds a formatter with the title from titleKey and one row per field.
func Titled(titleKey string, fields ...Field) Formatter {
	return func(props geojson.Properties) Popup {
		p := Popup{Title: evaluate.PropString(props, titleKey), Rows: make([]Row, 0, len(fields))}
		for _, f := range fields {
			p.Rows = append(p.Rows, Row{Label: f.Label, Value: evaluate.PropString(props, f.Key)})
		}
		return p
	}
}

// WithSymbol decorates f with the marker symbol for the value of key.
func WithSymbol(f Formatter, key string, symbols func(string) string) Formatter {
	return func(props geojson.Properties) Popup {
		p := f(props)
		p.Symbol = symbols(evaluate.PropString(props, key))
		return p
	}
}

var tmpl = template.Must(template.New("popup").Parse(
	`<div class="popup">
<h4>{{if .Symbol}}{{.Symbol}} {{end}}{{.Title}}</h4>
{{- if .Rows}}
<table>{{range .Rows}}
<tr><td><strong>{{.Label}}:</strong></td><td>{{.Value}}</td></tr>{{end}}
</table>
{{- end}}
</div>
`))

func RenderHTML(w io.Writer, p Popup) error {
	if err := tmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render popup: %w", err)
	}
	return nil
}

func HTML(p Popup) string {
	var b strings.Builder
	_ = RenderHTML(&b, p)
	return b.String()
}
