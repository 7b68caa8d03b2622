// Package pushvalues moves attribute values from one map onto the objects of
// another, aggregating where several source objects land on one target.
package pushvalues

import (
	"math"
	"strings"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
)

// Func is the aggregation applied when several source values meet.
type Func uint8

const (
	Max Func = iota
	Min
	Avg
	Tot
)

func (f Func) String() string {
	switch f {
	case Max:
		return "max"
	case Min:
		return "min"
	case Avg:
		return "avg"
	case Tot:
		return "tot"
	default:
		return "unknown"
	}
}

func ParseFunc(s string) (Func, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "max", "maximum":
		return Max, true
	case "min", "minimum":
		return Min, true
	case "avg", "average", "mean":
		return Avg, true
	case "tot", "total", "sum":
		return Tot, true
	default:
		return 0, false
	}
}

var pad = r2.Point{X: geometry.Tolerance, Y: geometry.Tolerance}

// NoCount disables the object count column.
const NoCount = -2

type accumulator struct {
	fn    Func
	n     int
	count int
	v     float64
}

func (a *accumulator) add(v float64, counts bool) {
	a.count++
	if !counts {
		return
	}
	switch {
	case a.n == 0:
		a.v = v
	case a.fn == Max:
		a.v = math.Max(a.v, v)
	case a.fn == Min:
		a.v = math.Min(a.v, v)
	default:
		a.v += v
	}
	a.n++
}

func (a accumulator) result() float64 {
	if a.n == 0 {
		return attributes.NoValue
	}
	if a.fn == Avg {
		return a.v / float64(a.n)
	}
	return a.v
}

func write(t *attributes.Table, key, colOut, countCol int, acc accumulator) {
	t.SetValue(key, colOut, acc.result())
	if countCol != NoCount {
		t.SetValue(key, countCol, float64(acc.count))
	}
}

func sourceValue(t *attributes.Table, key, colIn int) (float64, bool) {
	v := t.Value(key, colIn)
	if colIn != attributes.DisplayRefColumn && v == attributes.NoValue {
		return 0, false
	}
	return v, true
}

// ShapeToShape pushes colIn of src onto colOut of dst. Each destination shape
// aggregates every source shape it touches. countCol, unless NoCount,
// receives the number of source shapes touched.
func ShapeToShape(src *spatial.ShapeMap, colIn int, dst *spatial.ShapeMap, colOut, countCol int, fn Func) {
	st := src.AttributeTable()
	for _, dref := range dst.Refs() {
		ds, _ := dst.Shape(dref)
		acc := accumulator{fn: fn}
		for _, sref := range src.ShapesInRegion(ds.Bounds().Expanded(pad)) {
			ss, _ := src.Shape(sref)
			if !ss.Intersects(ds, geometry.Tolerance) {
				continue
			}
			v, ok := sourceValue(st, sref, colIn)
			acc.add(v, ok)
		}
		write(dst.AttributeTable(), dref, colOut, countCol, acc)
	}
}

// ShapeToPoint pushes shape values onto the lattice points whose cells the
// shapes touch.
func ShapeToPoint(src *spatial.ShapeMap, colIn int, dst *spatial.LatticeMap, colOut, countCol int, fn Func) {
	st := src.AttributeTable()
	for _, key := range dst.Keys() {
		cell := dst.CellRect(spatial.PixelFromKey(key))
		acc := accumulator{fn: fn}
		for _, sref := range src.ShapesInRegion(cell) {
			v, ok := sourceValue(st, sref, colIn)
			acc.add(v, ok)
		}
		write(dst.AttributeTable(), key, colOut, countCol, acc)
	}
}

// PointToShape pushes lattice values onto the shapes touching each point's cell.
func PointToShape(src *spatial.LatticeMap, colIn int, dst *spatial.ShapeMap, colOut, countCol int, fn Func) {
	st := src.AttributeTable()
	for _, dref := range dst.Refs() {
		ds, _ := dst.Shape(dref)
		acc := accumulator{fn: fn}
		for _, key := range src.PointsIn(ds.Bounds().Expanded(r2.Point{X: src.Spacing(), Y: src.Spacing()})) {
			if !ds.IntersectsRect(src.CellRect(spatial.PixelFromKey(key))) {
				continue
			}
			v, ok := sourceValue(st, key, colIn)
			acc.add(v, ok)
		}
		write(dst.AttributeTable(), dref, colOut, countCol, acc)
	}
}
