// Package mapper converts between geometries and H3 cells.
package mapper

import "github.com/paulmach/orb"

type Interface interface {
	// CellForPolygon returns the cell holding the polygon's centroid.
	CellForPolygon(poly orb.Polygon, res int) (string, error)
	// CellsForGeometry returns the sorted, unique cells touched by g.
	CellsForGeometry(g orb.Geometry, res int) ([]string, error)
	Center(cell string) (orb.Point, error)
}
