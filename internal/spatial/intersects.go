// Package spatial implements planar geometry predicates over orb geometries.
package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Intersects reports whether a and b share at least one point.
// Boundaries count, so touching geometries intersect.
func Intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	pa, pb := decompose(a), decompose(b)
	if pa.empty() || pb.empty() {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	return pointsHit(pa, pb) ||
		pointsHit(pb, pa) ||
		edgesCross(pa, pb) ||
		probesInside(pa, pb) ||
		probesInside(pb, pa)
}

type parts struct {
	points []orb.Point
	lines  []orb.LineString
	polys  []orb.Polygon
}

func (p *parts) empty() bool {
	return len(p.points) == 0 && len(p.lines) == 0 && len(p.polys) == 0
}

func decompose(g orb.Geometry) *parts {
	p := &parts{}
	p.add(g)
	return p
}

func (p *parts) add(g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		p.points = append(p.points, g)
	case orb.MultiPoint:
		p.points = append(p.points, g...)
	case orb.LineString:
		switch len(g) {
		case 0:
		case 1:
			p.points = append(p.points, g[0])
		default:
			p.lines = append(p.lines, g)
		}
	case orb.MultiLineString:
		for _, ls := range g {
			p.add(ls)
		}
	case orb.Ring:
		p.add(orb.Polygon{g})
	case orb.Polygon:
		if len(g) > 0 && len(g[0]) > 0 {
			p.polys = append(p.polys, g)
		}
	case orb.MultiPolygon:
		for _, pg := range g {
			p.add(pg)
		}
	case orb.Bound:
		p.add(g.ToPolygon())
	case orb.Collection:
		for _, c := range g {
			if c != nil {
				p.add(c)
			}
		}
	}
}

// every segment of the lines and polygon rings
func (p *parts) segments(fn func(a, b orb.Point) bool) bool {
	for _, ls := range p.lines {
		for i := 0; i+1 < len(ls); i++ {
			if fn(ls[i], ls[i+1]) {
				return true
			}
		}
	}
	for _, pg := range p.polys {
		for _, r := range pg {
			for i := 0; i+1 < len(r); i++ {
				if fn(r[i], r[i+1]) {
					return true
				}
			}
		}
	}
	return false
}

func (p *parts) covers(pt orb.Point) bool {
	for _, pg := range p.polys {
		if planar.PolygonContains(pg, pt) {
			return true
		}
	}
	return false
}

// points of a that lie on or inside anything in b
func pointsHit(a, b *parts) bool {
	for _, pt := range a.points {
		for _, q := range b.points {
			if pt.Equal(q) {
				return true
			}
		}
		if b.covers(pt) {
			return true
		}
		if b.segments(func(s, e orb.Point) bool { return onSegment(pt, s, e) }) {
			return true
		}
	}
	return false
}

func edgesCross(a, b *parts) bool {
	return a.segments(func(s1, e1 orb.Point) bool {
		return b.segments(func(s2, e2 orb.Point) bool {
			return segmentsIntersect(s1, e1, s2, e2)
		})
	})
}

// catches full containment once no edges cross: one vertex of each
// line or polygon of a is tested against the polygons of b
func probesInside(a, b *parts) bool {
	if len(b.polys) == 0 {
		return false
	}
	for _, ls := range a.lines {
		if b.covers(ls[0]) {
			return true
		}
	}
	for _, pg := range a.polys {
		if b.covers(pg[0][0]) {
			return true
		}
	}
	return false
}

func orientation(a, b, c orb.Point) int {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func onSegment(p, a, b orb.Point) bool {
	if orientation(a, b, p) != 0 {
		return false
	}
	return p[0] >= min(a[0], b[0]) && p[0] <= max(a[0], b[0]) &&
		p[1] >= min(a[1], b[1]) && p[1] <= max(a[1], b[1])
}

func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	return (d1 == 0 && onSegment(p1, p3, p4)) ||
		(d2 == 0 && onSegment(p2, p3, p4)) ||
		(d3 == 0 && onSegment(p3, p1, p2)) ||
		(d4 == 0 && onSegment(p4, p1, p2))
}
