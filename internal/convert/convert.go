// Package convert turns drawings and maps into other map types. Each routine
// builds a fresh map and hands it back; nothing is attached to a document
// here, so a cancelled routine leaves no trace.
package convert

import (
	"errors"
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
)

// ErrNothingToConvert is returned when the source holds no usable shapes.
var ErrNothingToConvert = errors.New("no usable shapes to convert")

const (
	ColumnDataMapRef = "Data Map Ref"
)

// Engine implements the conversions. The zero value is ready to use.
type Engine struct {
	// Tolerance is the snapping distance; zero means spatial.SnapTolerance.
	Tolerance float64
}

func (e Engine) tol() float64 {
	if e.Tolerance > 0 {
		return e.Tolerance
	}
	return spatial.SnapTolerance
}

// sourceLine is a line together with the shape it came from.
type sourceLine struct {
	line  geometry.Line
	layer int
	ref   int
}

func layerLines(layers []*spatial.ShapeMap) []sourceLine {
	var out []sourceLine
	for li, m := range layers {
		for _, ref := range m.Refs() {
			s, _ := m.Shape(ref)
			for _, l := range s.Lines() {
				if l.Length() > 0 {
					out = append(out, sourceLine{line: l, layer: li, ref: ref})
				}
			}
		}
	}
	return out
}

// openLines keeps the lines of line and polyline shapes only.
func openLines(m *spatial.ShapeMap) []sourceLine {
	var out []sourceLine
	for _, ref := range m.Refs() {
		s, _ := m.Shape(ref)
		if s.Kind != geometry.KindLine && s.Kind != geometry.KindPolyline {
			continue
		}
		for _, l := range s.Lines() {
			if l.Length() > 0 {
				out = append(out, sourceLine{line: l, ref: ref})
			}
		}
	}
	return out
}

type lineKey [4]int64

func keyOf(l geometry.Line, tol float64) lineKey {
	q := func(f float64) int64 { return int64(math.Round(f / tol)) }
	a := [2]int64{q(l.Start.X), q(l.Start.Y)}
	b := [2]int64{q(l.End.X), q(l.End.Y)}
	if b[0] < a[0] || (b[0] == a[0] && b[1] < a[1]) {
		a, b = b, a
	}
	return lineKey{a[0], a[1], b[0], b[1]}
}

func dedupe(lines []sourceLine, tol float64) []sourceLine {
	seen := make(map[lineKey]bool, len(lines))
	out := lines[:0:0]
	for _, l := range lines {
		k := keyOf(l.line, tol)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
	}
	return out
}

// copyRowValues copies the unlocked columns of src row srcRef into dst row
// dstRef, creating columns as needed.
func copyRowValues(src *attributes.Table, srcRef int, dst *attributes.Table, dstRef int) {
	for c := 0; c < src.NumColumns(); c++ {
		col := src.Column(c)
		if col.Locked {
			continue
		}
		d := dst.GetOrInsertColumn(col.Name)
		dst.SetValue(dstRef, d, src.Value(srcRef, c))
	}
}

// splitPoints returns the sorted, unique parameters in (0,1) where lines[i]
// meets any other line.
func splitPoints(c comm.Communicator, lines []sourceLine, i int, tol float64) ([]float64, error) {
	var ts []float64
	li := lines[i].line
	bounds := li.Bounds().Expanded(pointOf(tol))
	for j, o := range lines {
		if j == i || !bounds.Intersects(o.line.Bounds()) {
			continue
		}
		if t, _, ok := li.Intersection(o.line, tol); ok {
			ts = append(ts, t)
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return uniqueInterior(ts, tol/math.Max(li.Length(), tol)), nil
}

func pointOf(f float64) r2.Point { return r2.Point{X: f, Y: f} }

func uniqueInterior(ts []float64, eps float64) []float64 {
	sort.Float64s(ts)
	var out []float64
	for _, t := range ts {
		if t <= eps || t >= 1-eps {
			continue
		}
		if len(out) > 0 && t-out[len(out)-1] <= eps {
			continue
		}
		out = append(out, t)
	}
	return out
}

func pieces(l geometry.Line, ts []float64) []geometry.Line {
	cuts := append([]float64{0}, ts...)
	cuts = append(cuts, 1)
	out := make([]geometry.Line, 0, len(cuts)-1)
	for i := 0; i+1 < len(cuts); i++ {
		out = append(out, geometry.Line{Start: l.PointAt(cuts[i]), End: l.PointAt(cuts[i+1])})
	}
	return out
}
