// Package evaluate groups the features of each category that intersect a query polygon.
package evaluate

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
	"github.com/mohammed-shakir/heatbox-map/internal/spatial"
)

// Placeholder is used when a feature has no display name.
const Placeholder = "Unbenannt"

// Collections maps a category name to its loaded features.
// A missing or nil entry is evaluated as an empty layer.
type Collections map[string]*geojson.FeatureCollection

type Group struct {
	Category string   `json:"category"`
	Label    string   `json:"label"`
	Entries  []string `json:"entries"`
}

func (g Group) Count() int { return len(g.Entries) }

// Skip records a feature left out because its geometry is unusable.
type Skip struct {
	Category string
	Index    int
	Reason   string
}

// Result holds only non-empty groups, in category declaration order.
type Result struct {
	Groups  []Group `json:"groups"`
	Skipped []Skip  `json:"-"`
}

func (r Result) Empty() bool { return len(r.Groups) == 0 }

func (r Result) Total() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Entries)
	}
	return n
}

type Evaluator struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger}
}

// Evaluate returns found=false when no category has a matching feature.
func (e *Evaluator) Evaluate(ctx context.Context, poly orb.Polygon, cats model.Categories, cols Collections) (Result, bool) {
	var res Result

	for _, c := range cats {
		fc := cols[c.Name]
		if fc == nil {
			continue
		}
		var entries []string
		for i, f := range fc.Features {
			if f == nil {
				continue
			}
			if err := spatial.Validate(f.Geometry); err != nil {
				res.Skipped = append(res.Skipped, Skip{Category: c.Name, Index: i, Reason: spatial.Reason(err)})
				e.logger.DebugContext(ctx, "skipping feature with invalid geometry",
					"category", c.Name, "index", i, "err", err)
				continue
			}
			if !spatial.Intersects(f.Geometry, poly) {
				continue
			}
			entries = append(entries, Entry(c, f.Properties))
		}
		if len(entries) > 0 {
			res.Groups = append(res.Groups, Group{Category: c.Name, Label: c.Label, Entries: entries})
		}
	}

	return res, !res.Empty()
}

// Entry formats one feature as "name" or "name (subtype)".
func Entry(c model.Category, props geojson.Properties) string {
	name := ""
	for _, f := range c.NameFields() {
		if name = PropString(props, f); name != "" {
			break
		}
	}
	if name == "" {
		name = Placeholder
	}
	if c.SubtypeField == "" {
		return name
	}
	if sub := PropString(props, c.SubtypeField); sub != "" {
		return name + " (" + sub + ")"
	}
	return name
}

// PropString renders a scalar property; missing, null and non-scalar values give "".
func PropString(props geojson.Properties, key string) string {
	if props == nil || key == "" {
		return ""
	}
	switch v := props[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case interface{ String() string }:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}
