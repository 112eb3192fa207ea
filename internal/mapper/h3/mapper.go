package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/heatbox-map/internal/mapper"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

func (m *Mapper) CellForPolygon(poly orb.Polygon, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	if len(poly) == 0 || len(poly[0]) == 0 {
		return "", errors.New("empty polygon")
	}
	c, area := planar.CentroidArea(poly)
	if area == 0 {
		// degenerate ring, fall back to the first vertex
		c = poly[0][0]
	}
	return pointCell(c, res)
}

func (m *Mapper) CellsForGeometry(g orb.Geometry, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errors.New("nil geometry")
	}
	set := map[string]struct{}{}
	if err := collect(g, res, set); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Mapper) Center(cell string) (orb.Point, error) {
	c, err := parseCell(cell)
	if err != nil {
		return orb.Point{}, err
	}
	ll, err := h3.CellToLatLng(c)
	if err != nil {
		return orb.Point{}, fmt.Errorf("h3 cell center: %w", err)
	}
	return orb.Point{ll.Lng, ll.Lat}, nil
}

func collect(g orb.Geometry, res int, set map[string]struct{}) error {
	switch v := g.(type) {
	case orb.Point:
		return addPoint(v, res, set)
	case orb.MultiPoint:
		for _, p := range v {
			if err := addPoint(p, res, set); err != nil {
				return err
			}
		}
	case orb.LineString:
		for _, p := range v {
			if err := addPoint(p, res, set); err != nil {
				return err
			}
		}
	case orb.MultiLineString:
		for _, ls := range v {
			if err := collect(ls, res, set); err != nil {
				return err
			}
		}
	case orb.Ring:
		return collect(orb.Polygon{v}, res, set)
	case orb.Bound:
		return collect(v.ToPolygon(), res, set)
	case orb.Polygon:
		return addPolygon(v, res, set)
	case orb.MultiPolygon:
		for pi, p := range v {
			if err := addPolygon(p, res, set); err != nil {
				return fmt.Errorf("polygon %d: %w", pi, err)
			}
		}
	case orb.Collection:
		for _, c := range v {
			if err := collect(c, res, set); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported geometry %T", g)
	}
	return nil
}

func addPoint(p orb.Point, res int, set map[string]struct{}) error {
	c, err := pointCell(p, res)
	if err != nil {
		return err
	}
	set[c] = struct{}{}
	return nil
}

// addPolygon polyfills the polygon and always includes the cells of its
// outer vertices, so areas smaller than a cell still map to one.
func addPolygon(p orb.Polygon, res int, set map[string]struct{}) error {
	if len(p) == 0 {
		return errors.New("empty polygon")
	}
	outer := toLoop(p[0])
	if len(outer) < 3 {
		return errors.New("outer ring has < 3 distinct vertices")
	}
	var holes []h3.GeoLoop
	for i := 1; i < len(p); i++ {
		h := toLoop(p[i])
		if len(h) < 3 {
			return fmt.Errorf("hole %d has < 3 distinct vertices", i-1)
		}
		holes = append(holes, h)
	}

	// v4 returns ([]h3.Cell, error)
	cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer, Holes: holes}, res)
	if err != nil {
		return fmt.Errorf("h3 polyfill: %w", err)
	}
	for _, c := range cells {
		set[c.String()] = struct{}{}
	}
	for _, pt := range p[0] {
		if err := addPoint(pt, res, set); err != nil {
			return err
		}
	}
	return nil
}

func pointCell(p orb.Point, res int) (string, error) {
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat(), Lng: p.Lon()}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for %v: %w", p, err)
	}
	return c.String(), nil
}

// toLoop drops the duplicated closing vertex; orb points are [lon, lat].
func toLoop(r orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(r))
	for _, p := range r {
		loop = append(loop, h3.LatLng{Lat: p.Lat(), Lng: p.Lon()})
	}
	if len(loop) >= 2 && loop[0] == loop[len(loop)-1] {
		loop = loop[:len(loop)-1]
	}
	return loop
}

func parseCell(cell string) (h3.Cell, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return 0, fmt.Errorf("parse cell: %w", err)
	}
	if !c.IsValid() {
		return 0, fmt.Errorf("invalid h3 cell %q", cell)
	}
	return c, nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
