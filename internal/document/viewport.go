package document

import (
	"iter"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

// ShapeRef locates a shape within the drawing files.
type ShapeRef struct {
	File  int
	Layer int
	Ref   int
}

// viewportOr returns viewport, or fallback when viewport is empty.
func viewportOr(viewport, fallback r2.Rect) r2.Rect {
	if viewport.IsEmpty() {
		return fallback
	}
	return viewport
}

// DrawingShapes yields the shapes of visible drawing layers that touch
// viewport. Each call to the returned sequence starts over.
func (d *Document) DrawingShapes(viewport r2.Rect) iter.Seq2[ShapeRef, geometry.Shape] {
	r := viewportOr(viewport, d.region)
	return func(yield func(ShapeRef, geometry.Shape) bool) {
		for fi, f := range d.drawings {
			for li, l := range f.layers {
				if !l.shown {
					continue
				}
				for _, ref := range l.m.ShapesInRegion(r) {
					s, _ := l.m.Shape(ref)
					if !yield(ShapeRef{File: fi, Layer: li, Ref: ref}, s) {
						return
					}
				}
			}
		}
	}
}

// MapShapes yields the shapes of the front shape graph or data map that touch
// viewport, keyed by ref.
func (d *Document) MapShapes(viewport r2.Rect) iter.Seq2[int, geometry.Shape] {
	v, ok := d.frontShapes()
	return func(yield func(int, geometry.Shape) bool) {
		if !ok {
			return
		}
		for _, ref := range v.m.ShapesInRegion(viewportOr(viewport, v.Region())) {
			s, _ := v.m.Shape(ref)
			if !yield(ref, s) {
				return
			}
		}
	}
}

// LatticePoints yields the filled points of the displayed lattice inside
// viewport with their cell centres. Nothing is yielded unless the lattice is
// in front.
func (d *Document) LatticePoints(viewport r2.Rect) iter.Seq2[spatial.PixelRef, r2.Point] {
	v, ok := d.lattices.current()
	if d.view.Front() != viewstate.KindVGA {
		ok = false
	}
	return func(yield func(spatial.PixelRef, r2.Point) bool) {
		if !ok {
			return
		}
		for _, k := range v.m.PointsIn(viewportOr(viewport, v.Region())) {
			p := spatial.PixelFromKey(k)
			if !yield(p, v.m.Depixelate(p)) {
				return
			}
		}
	}
}
