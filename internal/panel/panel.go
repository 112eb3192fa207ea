// Package panel renders grouped evaluation results for the result panel.
package panel

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/heatbox-map/internal/evaluate"
)

// EmptyMessage is shown when no feature intersects the drawn polygon.
const EmptyMessage = "Keine enthaltenen Objekte gefunden."

type Section struct {
	Category string   `json:"category"`
	Label    string   `json:"label"`
	Header   string   `json:"header"`
	Count    int      `json:"count"`
	Entries  []string `json:"entries"`
}

type Panel struct {
	ID       string    `json:"id,omitempty"`
	Found    bool      `json:"found"`
	Total    int       `json:"total"`
	Message  string    `json:"message,omitempty"`
	Sections []Section `json:"groups"`
}

// Header is "<label> (<count>)".
func Header(g evaluate.Group) string {
	return g.Label + " (" + strconv.Itoa(g.Count()) + ")"
}

func Build(id string, res evaluate.Result) Panel {
	p := Panel{ID: id, Found: !res.Empty(), Total: res.Total(), Sections: []Section{}}
	if !p.Found {
		p.Message = EmptyMessage
		return p
	}
	for _, g := range res.Groups {
		p.Sections = append(p.Sections, Section{
			Category: g.Category,
			Label:    g.Label,
			Header:   Header(g),
			Count:    g.Count(),
			Entries:  g.Entries,
		})
	}
	return p
}

func Render(w io.Writer, p Panel, f Format) error {
	switch f {
	case FormatHTML:
		return RenderHTML(w, p)
	case FormatText:
		return RenderText(w, p)
	default:
		if err := json.NewEncoder(w).Encode(p); err != nil {
			return fmt.Errorf("encode panel: %w", err)
		}
		return nil
	}
}

var htmlTmpl = template.Must(template.New("panel").Parse(
	`{{if not .Found}}<em>{{.Message}}</em>
{{else}}{{range .Sections}}<section class="group" data-category="{{.Category}}">
<strong>{{.Header}}</strong>
<ul>{{range .Entries}}
<li>{{.}}</li>{{end}}
</ul>
</section>
{{end}}{{end}}`))

// RenderHTML writes an escaped fragment for the draw-result element.
func RenderHTML(w io.Writer, p Panel) error {
	if err := htmlTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render panel html: %w", err)
	}
	return nil
}

func RenderText(w io.Writer, p Panel) error {
	var b strings.Builder
	if !p.Found {
		b.WriteString(EmptyMessage)
		b.WriteByte('\n')
	}
	for i, s := range p.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s.Header)
		b.WriteByte('\n')
		for _, e := range s.Entries {
			b.WriteString("  - ")
			b.WriteString(e)
			b.WriteByte('\n')
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write panel text: %w", err)
	}
	return nil
}
