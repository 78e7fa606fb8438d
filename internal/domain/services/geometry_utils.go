package services

import (
	"fmt"
	"math"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
)

// AdjacencyTolerance is the gap in meters under which two room edges are
// treated as one shared wall.
const AdjacencyTolerance = 0.1

// SharesEdge reports whether two room outlines touch along a wall: some
// edge pair is collinear within tol and overlaps by more than tol.
func SharesEdge(a, b entities.Polygon, tol float64) bool {
	ba, bb := a.Bounds(), b.Bounds()
	if ba.MaxX+tol < bb.MinX || bb.MaxX+tol < ba.MinX ||
		ba.MaxY+tol < bb.MinY || bb.MaxY+tol < ba.MinY {
		return false
	}
	for _, ea := range a.Edges() {
		for _, eb := range b.Edges() {
			if edgesOverlap(ea, eb, tol) {
				return true
			}
		}
	}
	return false
}

func edgesOverlap(a, b entities.Segment, tol float64) bool {
	length := a.Length()
	if length < tol || b.Length() < tol {
		return false
	}
	if distanceToLine(b.Start, a) > tol || distanceToLine(b.End, a) > tol {
		return false
	}
	// Project b onto a's direction and intersect the parameter ranges.
	ux := (a.End.X - a.Start.X) / length
	uy := (a.End.Y - a.Start.Y) / length
	t0 := (b.Start.X-a.Start.X)*ux + (b.Start.Y-a.Start.Y)*uy
	t1 := (b.End.X-a.Start.X)*ux + (b.End.Y-a.Start.Y)*uy
	lo, hi := math.Max(0, math.Min(t0, t1)), math.Min(length, math.Max(t0, t1))
	return hi-lo > tol
}

func distanceToLine(p entities.Point, s entities.Segment) float64 {
	dx, dy := s.End.X-s.Start.X, s.End.Y-s.Start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return math.Hypot(p.X-s.Start.X, p.Y-s.Start.Y)
	}
	return math.Abs(dy*(p.X-s.Start.X)-dx*(p.Y-s.Start.Y)) / length
}

// segmentKey identifies an undirected segment with coordinates rounded to
// the centimeter so shared room edges collapse to one wall.
func segmentKey(s entities.Segment) string {
	a := fmt.Sprintf("%.2f,%.2f", s.Start.X, s.Start.Y)
	b := fmt.Sprintf("%.2f,%.2f", s.End.X, s.End.Y)
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// squareFor returns a square outline of the given area anchored at origin.
func squareFor(origin entities.Point, area float64) entities.Polygon {
	side := math.Sqrt(math.Max(area, 1))
	return entities.Rectangle(origin, side, side)
}

// layoutExtent returns the bounds of every room outline in g.
func layoutExtent(g *entities.Geometry) (entities.Bounds, bool) {
	var all entities.Polygon
	for _, r := range g.Rooms {
		all = append(all, r.Polygon...)
	}
	if len(all) == 0 {
		return entities.Bounds{}, false
	}
	return all.Bounds(), true
}
