package geometry

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/golang/geo/r2"
)

type ShapeKind uint8

const (
	KindPoint ShapeKind = iota + 1
	KindLine
	KindPolyline
	KindPolygon
)

func (k ShapeKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolyline:
		return "polyline"
	case KindPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Shape is a point, a line, an open polyline or a closed polygon. Polygons do
// not repeat their first vertex.
type Shape struct {
	Kind   ShapeKind  `json:"kind"`
	Points []r2.Point `json:"points"`
}

func PointShape(p r2.Point) Shape {
	return Shape{Kind: KindPoint, Points: []r2.Point{p}}
}

func LineShape(l Line) Shape {
	return Shape{Kind: KindLine, Points: []r2.Point{l.Start, l.End}}
}

// PolyShape builds a polyline or, when closed, a polygon. Two points always
// produce a line.
func PolyShape(points []r2.Point, closed bool) Shape {
	pts := append([]r2.Point(nil), points...)
	switch {
	case len(pts) == 1:
		return PointShape(pts[0])
	case len(pts) == 2:
		return Shape{Kind: KindLine, Points: pts}
	case closed:
		return Shape{Kind: KindPolygon, Points: pts}
	default:
		return Shape{Kind: KindPolyline, Points: pts}
	}
}

func (s Shape) IsPoint() bool   { return s.Kind == KindPoint }
func (s Shape) IsLine() bool    { return s.Kind == KindLine }
func (s Shape) IsPolygon() bool { return s.Kind == KindPolygon }

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	return Shape{Kind: s.Kind, Points: append([]r2.Point(nil), s.Points...)}
}

// Translate returns s moved by d.
func (s Shape) Translate(d r2.Point) Shape {
	out := s.Clone()
	for i := range out.Points {
		out.Points[i] = out.Points[i].Add(d)
	}
	return out
}

func (s Shape) Bounds() r2.Rect {
	if len(s.Points) == 0 {
		return r2.EmptyRect()
	}
	return r2.RectFromPoints(s.Points...)
}

// Lines returns the segments of s, including the closing edge of a polygon.
func (s Shape) Lines() []Line {
	if len(s.Points) < 2 {
		return nil
	}
	out := make([]Line, 0, len(s.Points))
	for i := 0; i+1 < len(s.Points); i++ {
		out = append(out, Line{Start: s.Points[i], End: s.Points[i+1]})
	}
	if s.Kind == KindPolygon && len(s.Points) > 2 {
		out = append(out, Line{Start: s.Points[len(s.Points)-1], End: s.Points[0]})
	}
	return out
}

// Line returns the single segment of a line shape.
func (s Shape) Line() (Line, bool) {
	if s.Kind != KindLine || len(s.Points) != 2 {
		return Line{}, false
	}
	return Line{Start: s.Points[0], End: s.Points[1]}, true
}

// Length is the total length of the segments (perimeter for polygons).
func (s Shape) Length() float64 {
	var total float64
	for _, l := range s.Lines() {
		total += l.Length()
	}
	return total
}

// Area is the unsigned polygon area, zero for other kinds.
func (s Shape) Area() float64 {
	if s.Kind != KindPolygon || len(s.Points) < 3 {
		return 0
	}
	return math.Abs(toPolygon(s.Points).Area())
}

// toPolygon closes pts into a single-ring geom.Polygon.
func toPolygon(pts []r2.Point) geom.Polygon {
	ring := make(geom.Path, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, geom.Point{X: p.X, Y: p.Y})
	}
	if len(pts) > 0 {
		ring = append(ring, ring[0])
	}
	return geom.Polygon{ring}
}

// Centroid returns the area centroid of a polygon, the length-weighted
// midpoint of a line or polyline, and the point itself for points.
func (s Shape) Centroid() r2.Point {
	switch {
	case len(s.Points) == 0:
		return r2.Point{}
	case s.Kind == KindPoint:
		return s.Points[0]
	case s.Kind == KindPolygon:
		if s.Area() == 0 {
			return s.Bounds().Center()
		}
		c := toPolygon(s.Points).Centroid()
		return r2.Point{X: c.X, Y: c.Y}
	default:
		var sum r2.Point
		var total float64
		for _, l := range s.Lines() {
			n := l.Length()
			sum = sum.Add(l.Midpoint().Mul(n))
			total += n
		}
		if total == 0 {
			return s.Points[0]
		}
		return sum.Mul(1 / total)
	}
}

// ContainsPoint reports whether p is inside a polygon, on a line within tol,
// or equal to a point shape within tol.
func (s Shape) ContainsPoint(p r2.Point, tol float64) bool {
	switch s.Kind {
	case KindPoint:
		return len(s.Points) == 1 && s.Points[0].Sub(p).Norm() <= tol
	case KindPolygon:
		return pointInPolygon(p, s.Points)
	default:
		for _, l := range s.Lines() {
			if DistanceToSegment(p, l) <= tol {
				return true
			}
		}
		return false
	}
}

// Boundary points count as inside.
func pointInPolygon(p r2.Point, poly []r2.Point) bool {
	if len(poly) < 3 {
		return false
	}
	return geom.Point{X: p.X, Y: p.Y}.Within(toPolygon(poly)) != geom.Outside
}

// Intersects reports whether two shapes touch or overlap.
func (s Shape) Intersects(o Shape, tol float64) bool {
	if !s.Bounds().Expanded(r2.Point{X: tol, Y: tol}).Intersects(o.Bounds()) {
		return false
	}
	if s.Kind == KindPoint {
		return len(s.Points) == 1 && o.ContainsPoint(s.Points[0], tol)
	}
	if o.Kind == KindPoint {
		return len(o.Points) == 1 && s.ContainsPoint(o.Points[0], tol)
	}
	for _, a := range s.Lines() {
		for _, b := range o.Lines() {
			if a.Intersects(b, tol) {
				return true
			}
		}
	}
	if len(s.Points) > 0 && o.ContainsPointAny(s.Points[:1]) {
		return true
	}
	return len(o.Points) > 0 && s.ContainsPointAny(o.Points[:1])
}

// ContainsPointAny reports whether s is a polygon holding any of pts.
func (s Shape) ContainsPointAny(pts []r2.Point) bool {
	if s.Kind != KindPolygon {
		return false
	}
	for _, p := range pts {
		if pointInPolygon(p, s.Points) {
			return true
		}
	}
	return false
}

// IntersectsRect reports whether s touches the rectangle r.
func (s Shape) IntersectsRect(r r2.Rect) bool {
	if r.IsEmpty() || !s.Bounds().Intersects(r) {
		return false
	}
	for _, p := range s.Points {
		if r.ContainsPoint(p) {
			return true
		}
	}
	for _, l := range s.Lines() {
		if l.IntersectsRect(r) {
			return true
		}
	}
	return s.Kind == KindPolygon && pointInPolygon(r.Center(), s.Points)
}
