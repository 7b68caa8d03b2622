package geometry

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine_Intersection(t *testing.T) {
	cases := []struct {
		name string
		a, b Line
		want bool
	}{
		{"crossing", NewLine(0, 0, 2, 2), NewLine(0, 2, 2, 0), true},
		{"touching endpoint", NewLine(0, 0, 1, 0), NewLine(1, 0, 1, 1), true},
		{"parallel apart", NewLine(0, 0, 1, 0), NewLine(0, 1, 1, 1), false},
		{"collinear overlap", NewLine(0, 0, 2, 0), NewLine(1, 0, 3, 0), true},
		{"collinear disjoint", NewLine(0, 0, 1, 0), NewLine(2, 0, 3, 0), false},
		{"short of meeting", NewLine(0, 0, 1, 0), NewLine(2, -1, 2, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Intersects(tc.b, Tolerance))
		})
	}

	tt, u, ok := NewLine(0, 0, 2, 2).Intersection(NewLine(0, 2, 2, 0), Tolerance)
	require.True(t, ok)
	assert.InDelta(t, 0.5, tt, 1e-9)
	assert.InDelta(t, 0.5, u, 1e-9)
}

func TestLine_Crosses(t *testing.T) {
	assert.True(t, NewLine(0, 0, 2, 0).Crosses(NewLine(1, -1, 1, 1), Tolerance))
	assert.False(t, NewLine(0, 0, 1, 0).Crosses(NewLine(1, 0, 2, 0), Tolerance))
	// T junction: interior of one line, endpoint of the other.
	assert.True(t, NewLine(0, 0, 2, 0).Crosses(NewLine(1, 0, 1, 1), Tolerance))
}

func TestLine_AngleTo(t *testing.T) {
	assert.InDelta(t, math.Pi/2, NewLine(0, 0, 1, 0).AngleTo(NewLine(0, 0, 0, 1)), 1e-9)
	assert.InDelta(t, 0, NewLine(0, 0, 1, 0).AngleTo(NewLine(3, 0, 5, 0)), 1e-9)
}

func TestLine_IntersectsRect(t *testing.T) {
	r := r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 1})
	assert.True(t, NewLine(-1, 0.5, 2, 0.5).IntersectsRect(r))
	assert.True(t, NewLine(0.2, 0.2, 0.3, 0.3).IntersectsRect(r))
	assert.False(t, NewLine(2, 2, 3, 3).IntersectsRect(r))
}

func TestShape_polygonMeasures(t *testing.T) {
	sq := PolyShape([]r2.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}, true)
	require.Equal(t, KindPolygon, sq.Kind)
	assert.InDelta(t, 4, sq.Area(), 1e-9)
	assert.InDelta(t, 8, sq.Length(), 1e-9)
	c := sq.Centroid()
	assert.InDelta(t, 1, c.X, 1e-9)
	assert.InDelta(t, 1, c.Y, 1e-9)
	assert.Len(t, sq.Lines(), 4)
	assert.True(t, sq.ContainsPoint(r2.Point{X: 1, Y: 1}, Tolerance))
	assert.False(t, sq.ContainsPoint(r2.Point{X: 3, Y: 1}, Tolerance))
}

func TestShape_Intersects(t *testing.T) {
	sq := PolyShape([]r2.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}, true)
	inner := LineShape(NewLine(1, 1, 2, 2))
	outer := LineShape(NewLine(5, 5, 6, 6))
	pt := PointShape(r2.Point{X: 3, Y: 3})

	assert.True(t, sq.Intersects(inner, Tolerance))
	assert.True(t, inner.Intersects(sq, Tolerance))
	assert.False(t, sq.Intersects(outer, Tolerance))
	assert.True(t, pt.Intersects(sq, Tolerance))
	assert.True(t, sq.IntersectsRect(r2.RectFromPoints(r2.Point{X: 1, Y: 1}, r2.Point{X: 2, Y: 2})))
}

func TestPolyShape_degenerate(t *testing.T) {
	assert.Equal(t, KindPoint, PolyShape([]r2.Point{{X: 1, Y: 1}}, true).Kind)
	assert.Equal(t, KindLine, PolyShape([]r2.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}, true).Kind)
	assert.Equal(t, KindPolyline, PolyShape([]r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}, false).Kind)
}

func TestUnion_emptyIsIdentity(t *testing.T) {
	r := r2.RectFromPoints(r2.Point{X: 1, Y: 1}, r2.Point{X: 2, Y: 3})
	assert.Equal(t, r, Union(r2.EmptyRect(), r))
	assert.Equal(t, r, Union(r, r2.EmptyRect()))
	u := Union(r, r2.RectFromPoints(r2.Point{X: -1, Y: 0}))
	assert.Equal(t, -1.0, u.X.Lo)
	assert.Equal(t, 3.0, u.Y.Hi)
}

func TestShape_polygonWindingAndBoundary(t *testing.T) {
	// Clockwise L shape: 3x1 base plus 1x2 upright.
	ell := PolyShape([]r2.Point{
		{X: 0, Y: 0}, {X: 0, Y: 3}, {X: 1, Y: 3}, {X: 1, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 0},
	}, true)
	assert.InDelta(t, 5, ell.Area(), 1e-9)
	c := ell.Centroid()
	assert.InDelta(t, 1.1, c.X, 1e-9)
	assert.InDelta(t, 1.1, c.Y, 1e-9)

	assert.True(t, ell.ContainsPoint(r2.Point{X: 0.5, Y: 2.5}, Tolerance))
	assert.False(t, ell.ContainsPoint(r2.Point{X: 2, Y: 2}, Tolerance), "notch is outside")
	assert.True(t, ell.ContainsPoint(r2.Point{X: 2, Y: 0}, Tolerance), "edge counts as inside")

	assert.Zero(t, LineShape(NewLine(0, 0, 1, 1)).Area())
}

func TestLine_Intersection_parameters(t *testing.T) {
	tt, u, ok := NewLine(0, 0, 4, 0).Intersection(NewLine(1, -1, 1, 3), Tolerance)
	require.True(t, ok)
	assert.InDelta(t, 0.25, tt, 1e-9)
	assert.InDelta(t, 0.25, u, 1e-9)

	// Overlap reports the start of the shared stretch along l.
	tt, u, ok = NewLine(0, 0, 4, 0).Intersection(NewLine(3, 0, 1, 0), Tolerance)
	require.True(t, ok)
	assert.InDelta(t, 0.25, tt, 1e-9)
	assert.InDelta(t, 1, u, 1e-9)

	// An endpoint within tolerance of the other line still touches.
	_, _, ok = NewLine(0, 0, 1, 0).Intersection(NewLine(0.5, 1e-4, 0.5, 1), 1e-3)
	assert.True(t, ok)
	_, _, ok = NewLine(0, 0, 1, 0).Intersection(NewLine(0.5, 1e-2, 0.5, 1), 1e-3)
	assert.False(t, ok)
}
