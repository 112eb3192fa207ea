package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
	"github.com/mohammed-shakir/heatbox-map/internal/spatial"
)

// maxBodyBytes bounds the drawn polygon payload.
const maxBodyBytes = 1 << 20

var (
	errUnknownCategory = errors.New("unknown category")
	errNoCategories    = errors.New("categories lists no category")
)

// ParsePolygon accepts a GeoJSON Polygon geometry or a Feature wrapping one,
// as exported by the drawing tool. Open rings are closed before validation.
func ParsePolygon(body []byte) (orb.Polygon, error) {
	var tmp struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &tmp); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	var g orb.Geometry
	switch t := strings.TrimSpace(tmp.Type); t {
	case "Feature":
		f, err := geojson.UnmarshalFeature(body)
		if err != nil {
			return nil, fmt.Errorf("parse feature: %w", err)
		}
		g = f.Geometry
	case "Polygon":
		gg, err := geojson.UnmarshalGeometry(body)
		if err != nil {
			return nil, fmt.Errorf("parse geometry: %w", err)
		}
		g = gg.Geometry()
	default:
		return nil, fmt.Errorf(`unsupported GeoJSON "type": %q (must be Polygon or Feature)`, t)
	}

	poly, ok := g.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("feature geometry must be a Polygon, got %T", g)
	}
	poly = spatial.ClosePolygon(poly)
	if err := spatial.Validate(poly); err != nil {
		return nil, fmt.Errorf("invalid polygon: %w", err)
	}
	return poly, nil
}

// parseCategories restricts cats to a comma list; empty means all.
func parseCategories(raw string, cats model.Categories) (model.Categories, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return cats, nil
	}
	var names []string
	for n := range strings.SplitSeq(raw, ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := cats.Lookup(n); !ok {
			return nil, fmt.Errorf("%w: %q", errUnknownCategory, n)
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil, errNoCategories
	}
	return cats.Subset(names), nil
}
