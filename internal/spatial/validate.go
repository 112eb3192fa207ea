package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

var (
	ErrNilGeometry   = errors.New("geometry is null")
	ErrEmptyGeometry = errors.New("geometry is empty")
	ErrNonFinite     = errors.New("coordinate is not finite")
	ErrShortRing     = errors.New("ring has < 4 positions")
	ErrOpenRing      = errors.New("ring is not closed")
	ErrShortLine     = errors.New("line has < 2 positions")
)

// Validate checks that g can be fed to Intersects with a meaningful answer.
func Validate(g orb.Geometry) error {
	if g == nil {
		return ErrNilGeometry
	}
	switch g := g.(type) {
	case orb.Point:
		return checkPoint(g)
	case orb.MultiPoint:
		if len(g) == 0 {
			return ErrEmptyGeometry
		}
		for _, p := range g {
			if err := checkPoint(p); err != nil {
				return err
			}
		}
	case orb.LineString:
		return checkLine(g)
	case orb.MultiLineString:
		if len(g) == 0 {
			return ErrEmptyGeometry
		}
		for i, ls := range g {
			if err := checkLine(ls); err != nil {
				return fmt.Errorf("line %d: %w", i, err)
			}
		}
	case orb.Ring:
		return checkRing(g)
	case orb.Polygon:
		return checkPolygon(g)
	case orb.MultiPolygon:
		if len(g) == 0 {
			return ErrEmptyGeometry
		}
		for i, pg := range g {
			if err := checkPolygon(pg); err != nil {
				return fmt.Errorf("polygon %d: %w", i, err)
			}
		}
	case orb.Bound:
		if err := checkPoint(g.Min); err != nil {
			return err
		}
		return checkPoint(g.Max)
	case orb.Collection:
		if len(g) == 0 {
			return ErrEmptyGeometry
		}
		for i, c := range g {
			if err := Validate(c); err != nil {
				return fmt.Errorf("member %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported geometry %T", g)
	}
	return nil
}

// ClosePolygon returns p with every open ring closed by repeating its first position.
func ClosePolygon(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		if len(r) > 0 && !r[0].Equal(r[len(r)-1]) {
			cp := make(orb.Ring, len(r), len(r)+1)
			copy(cp, r)
			r = append(cp, r[0])
		}
		out[i] = r
	}
	return out
}

func checkPoint(p orb.Point) error {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}
	return nil
}

func checkLine(ls orb.LineString) error {
	if len(ls) < 2 {
		return ErrShortLine
	}
	for _, p := range ls {
		if err := checkPoint(p); err != nil {
			return err
		}
	}
	return nil
}

func checkRing(r orb.Ring) error {
	if len(r) < 4 {
		return ErrShortRing
	}
	if !r[0].Equal(r[len(r)-1]) {
		return ErrOpenRing
	}
	for _, p := range r {
		if err := checkPoint(p); err != nil {
			return err
		}
	}
	return nil
}

func checkPolygon(pg orb.Polygon) error {
	if len(pg) == 0 {
		return ErrEmptyGeometry
	}
	for i, r := range pg {
		if err := checkRing(r); err != nil {
			if i == 0 {
				return fmt.Errorf("outer ring: %w", err)
			}
			return fmt.Errorf("hole %d: %w", i-1, err)
		}
	}
	return nil
}

// Reason maps a validation error onto a short metric label.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNilGeometry):
		return "null_geometry"
	case errors.Is(err, ErrEmptyGeometry):
		return "empty_geometry"
	case errors.Is(err, ErrNonFinite):
		return "non_finite"
	case errors.Is(err, ErrShortRing), errors.Is(err, ErrOpenRing), errors.Is(err, ErrShortLine):
		return "malformed"
	default:
		return "unsupported"
	}
}
