// Package isovist computes visibility polygons against a set of partition
// lines. The partition is built once and reused until the drawing changes.
package isovist

import (
	"math"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
)

// Rays is the number of rays cast for a full circle.
const Rays = 720

// Column names written by WriteAttributes.
const (
	ColumnArea           = "Isovist Area"
	ColumnPerimeter      = "Isovist Perimeter"
	ColumnCompactness    = "Isovist Compactness"
	ColumnMinRadial      = "Isovist Min Radial"
	ColumnMaxRadial      = "Isovist Max Radial"
	ColumnDriftMagnitude = "Isovist Drift Magnitude"
)

// Partition holds the obstacle lines isovists are cast against.
type Partition struct {
	lines []geometry.Line
	built bool
}

func (p *Partition) Built() bool { return p != nil && p.built }

// Reset discards the partition so the next Build starts over.
func (p *Partition) Reset() {
	p.lines = nil
	p.built = false
}

// Build prepares the partition from lines unless it is already built, in which
// case it is reused. Zero-length lines are skipped. It reports false when
// there is nothing to build from.
func (p *Partition) Build(c comm.Communicator, lines []geometry.Line) (bool, error) {
	if p.built {
		return true, nil
	}
	kept := make([]geometry.Line, 0, len(lines))
	c.PostRecords(len(lines))
	for i, l := range lines {
		if err := c.PostRecord(i); err != nil {
			p.Reset()
			return false, err
		}
		if l.Length() > 0 {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return false, nil
	}
	p.lines = kept
	p.built = true
	return true, nil
}

type Isovist struct {
	Origin    r2.Point
	Polygon   []r2.Point
	Area      float64
	Perimeter float64
	MinRadial float64
	MaxRadial float64
	Centroid  r2.Point
}

// Make casts rays from origin between startAngle and endAngle (radians,
// anticlockwise from east). Equal angles mean a full circle. Rays that hit
// nothing stop at the edge of region.
func (p *Partition) Make(origin r2.Point, region r2.Rect, startAngle, endAngle float64) Isovist {
	full := startAngle == endAngle
	if !full && endAngle <= startAngle {
		endAngle += 2 * math.Pi
	}
	span := 2 * math.Pi
	if !full {
		span = endAngle - startAngle
	}
	n := int(math.Ceil(float64(Rays) * span / (2 * math.Pi)))
	if n < 2 {
		n = 2
	}
	reach := 2 * (region.Size().Norm() + origin.Sub(region.Center()).Norm() + 1)

	iso := Isovist{Origin: origin, MinRadial: math.Inf(1)}
	if !full {
		iso.Polygon = append(iso.Polygon, origin)
	}
	steps := n
	if !full {
		steps = n + 1
	}
	for i := 0; i < steps; i++ {
		a := startAngle + span*float64(i)/float64(n)
		dir := r2.Point{X: math.Cos(a), Y: math.Sin(a)}
		ray := geometry.Line{Start: origin, End: origin.Add(dir.Mul(reach))}
		hit := p.cast(ray, region)
		d := hit.Sub(origin).Norm()
		iso.MinRadial = math.Min(iso.MinRadial, d)
		iso.MaxRadial = math.Max(iso.MaxRadial, d)
		iso.Polygon = append(iso.Polygon, hit)
	}
	shape := geometry.PolyShape(iso.Polygon, true)
	iso.Area = shape.Area()
	iso.Perimeter = shape.Length()
	iso.Centroid = shape.Centroid()
	return iso
}

func (p *Partition) cast(ray geometry.Line, region r2.Rect) r2.Point {
	best := 1.0
	for _, l := range p.lines {
		if t, _, ok := ray.Intersection(l, geometry.Tolerance); ok && t < best {
			best = t
		}
	}
	if !region.IsEmpty() {
		v := region.Vertices()
		for i := 0; i < 4; i++ {
			edge := geometry.Line{Start: v[i], End: v[(i+1)%4]}
			if t, _, ok := ray.Intersection(edge, geometry.Tolerance); ok && t > 0 && t < best {
				best = t
			}
		}
	}
	return ray.PointAt(best)
}

// Shape returns the isovist as a closed polygon.
func (iso Isovist) Shape() geometry.Shape {
	return geometry.PolyShape(iso.Polygon, true)
}

// WriteAttributes stores the isovist measures in row key of t.
func (iso Isovist) WriteAttributes(t *attributes.Table, key int) {
	set := func(name string, v float64) {
		t.SetValue(key, t.GetOrInsertColumn(name), v)
	}
	set(ColumnArea, iso.Area)
	set(ColumnPerimeter, iso.Perimeter)
	if iso.Perimeter > 0 {
		set(ColumnCompactness, 4*math.Pi*iso.Area/(iso.Perimeter*iso.Perimeter))
	}
	set(ColumnMinRadial, iso.MinRadial)
	set(ColumnMaxRadial, iso.MaxRadial)
	set(ColumnDriftMagnitude, iso.Centroid.Sub(iso.Origin).Norm())
}

// FieldOfView returns start and end angles for a view of width fov centred
// on the direction of dir. A full circle yields equal angles.
func FieldOfView(dir r2.Point, fov float64) (float64, float64) {
	if fov >= 2*math.Pi || dir.Norm() == 0 {
		return 0, 0
	}
	a := math.Atan2(dir.Y, dir.X)
	start := math.Mod(a-fov/2+2*math.Pi, 2*math.Pi)
	end := math.Mod(a+fov/2+2*math.Pi, 2*math.Pi)
	return start, end
}
