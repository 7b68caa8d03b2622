// Package geometry provides the planar primitives shared by maps, converters
// and analyses. Points and bounding regions are golang/geo r2 values.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/lineintersector"
)

// Tolerance is the default snapping distance used when comparing endpoints.
const Tolerance = 1e-9

type Line struct {
	Start r2.Point `json:"start"`
	End   r2.Point `json:"end"`
}

func NewLine(x1, y1, x2, y2 float64) Line {
	return Line{Start: r2.Point{X: x1, Y: y1}, End: r2.Point{X: x2, Y: y2}}
}

func (l Line) Vector() r2.Point { return l.End.Sub(l.Start) }

func (l Line) Length() float64 { return l.Vector().Norm() }

func (l Line) Midpoint() r2.Point { return l.Start.Add(l.End).Mul(0.5) }

func (l Line) Bounds() r2.Rect { return r2.RectFromPoints(l.Start, l.End) }

// PointAt returns the point at parameter t along the line (0 = start, 1 = end).
func (l Line) PointAt(t float64) r2.Point { return l.Start.Add(l.Vector().Mul(t)) }

// Intersection reports whether l and o cross or touch within tol, returning
// the parameters along each line of the meeting point. Collinear overlaps
// report the overlap start.
func (l Line) Intersection(o Line, tol float64) (t, u float64, ok bool) {
	res := lineintersector.LineIntersectsLine(&lineintersector.RobustLineIntersector{},
		coord(l.Start), coord(l.End), coord(o.Start), coord(o.End))
	if res.HasIntersection() {
		t = math.Inf(1)
		for _, c := range res.Intersection() {
			if len(c) < 2 {
				continue
			}
			p := r2.Point{X: c[0], Y: c[1]}
			if pt := projectParam(p, l); pt < t {
				t, u = pt, projectParam(p, o)
			}
		}
		if !math.IsInf(t, 1) {
			return t, u, true
		}
	}
	return l.nearMiss(o, tol)
}

// nearMiss catches endpoints lying within tol of the other line, which the
// exact intersector reports as disjoint.
func (l Line) nearMiss(o Line, tol float64) (t, u float64, ok bool) {
	best := math.Inf(1)
	for _, p := range []r2.Point{l.Start, l.End} {
		if d := DistanceToSegment(p, o); d <= tol && d < best {
			best = d
			t, u = projectParam(p, l), projectParam(p, o)
		}
	}
	for _, p := range []r2.Point{o.Start, o.End} {
		if d := DistanceToSegment(p, l); d <= tol && d < best {
			best = d
			t, u = projectParam(p, l), projectParam(p, o)
		}
	}
	return t, u, !math.IsInf(best, 1)
}

func coord(p r2.Point) geom.Coord { return geom.Coord{p.X, p.Y} }

// Intersects reports whether l and o meet within tol.
func (l Line) Intersects(o Line, tol float64) bool {
	_, _, ok := l.Intersection(o, tol)
	return ok
}

// Crosses reports whether l and o meet somewhere other than at a shared
// endpoint of either line.
func (l Line) Crosses(o Line, tol float64) bool {
	t, u, ok := l.Intersection(o, tol)
	if !ok {
		return false
	}
	lt := tol / math.Max(l.Length(), tol)
	lu := tol / math.Max(o.Length(), tol)
	interiorT := t > lt && t < 1-lt
	interiorU := u > lu && u < 1-lu
	return interiorT || interiorU
}

// AngleTo returns the turn between the directions of l and o in radians,
// in [0, pi].
func (l Line) AngleTo(o Line) float64 {
	a := l.Vector()
	b := o.Vector()
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	c := a.Dot(b) / (na * nb)
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// SharedEndpoint reports whether l and o share an endpoint within tol.
func (l Line) SharedEndpoint(o Line, tol float64) bool {
	for _, p := range []r2.Point{l.Start, l.End} {
		for _, q := range []r2.Point{o.Start, o.End} {
			if p.Sub(q).Norm() <= tol {
				return true
			}
		}
	}
	return false
}

// IntersectsRect reports whether any part of l lies inside r.
func (l Line) IntersectsRect(r r2.Rect) bool {
	if r.IsEmpty() || !l.Bounds().Intersects(r) {
		return false
	}
	if r.ContainsPoint(l.Start) || r.ContainsPoint(l.End) {
		return true
	}
	v := r.Vertices()
	for i := 0; i < 4; i++ {
		edge := Line{Start: v[i], End: v[(i+1)%4]}
		if l.Intersects(edge, Tolerance) {
			return true
		}
	}
	return false
}

// DistanceToSegment is the shortest distance from p to segment l.
func DistanceToSegment(p r2.Point, l Line) float64 {
	return p.Sub(l.PointAt(projectParam(p, l))).Norm()
}

func projectParam(p r2.Point, l Line) float64 {
	v := l.Vector()
	vv := v.Dot(v)
	if vv == 0 {
		return 0
	}
	return clamp01(p.Sub(l.Start).Dot(v) / vv)
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

// Union grows a by b, treating empty rectangles as the identity.
func Union(a, b r2.Rect) r2.Rect {
	switch {
	case a.IsEmpty():
		return b
	case b.IsEmpty():
		return a
	default:
		return a.Union(b)
	}
}
