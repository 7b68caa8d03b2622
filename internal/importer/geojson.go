package importer

import (
	"fmt"

	"github.com/golang/geo/r2"
	geojson "github.com/paulmach/go.geojson"

	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
)

// LayerProperty names the feature property that assigns a feature to a layer.
const LayerProperty = "layer"

func parseGeoJSON(base string, data []byte) ([]*spatial.ShapeMap, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	ls := newLayers()
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		name := base
		if v, err := f.PropertyString(LayerProperty); err == nil && v != "" {
			name = v
		}
		if err := addGeometry(ls.get(name), f.Geometry); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
	}
	return ls.order, nil
}

func addGeometry(m *spatial.ShapeMap, g *geojson.Geometry) error {
	switch g.Type {
	case geojson.GeometryPoint:
		p, err := point(g.Point)
		if err != nil {
			return err
		}
		m.MakePointShape(p)
	case geojson.GeometryMultiPoint:
		for _, c := range g.MultiPoint {
			p, err := point(c)
			if err != nil {
				return err
			}
			m.MakePointShape(p)
		}
	case geojson.GeometryLineString:
		return addPath(m, g.LineString, false)
	case geojson.GeometryMultiLineString:
		for _, ls := range g.MultiLineString {
			if err := addPath(m, ls, false); err != nil {
				return err
			}
		}
	case geojson.GeometryPolygon:
		return addRing(m, g.Polygon)
	case geojson.GeometryMultiPolygon:
		for _, poly := range g.MultiPolygon {
			if err := addRing(m, poly); err != nil {
				return err
			}
		}
	case geojson.GeometryCollection:
		for _, sub := range g.Geometries {
			if err := addGeometry(m, sub); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported geometry %q", g.Type)
	}
	return nil
}

// addRing keeps the outer ring only; holes are not drawn.
func addRing(m *spatial.ShapeMap, rings [][][]float64) error {
	if len(rings) == 0 {
		return nil
	}
	return addPath(m, rings[0], true)
}

func addPath(m *spatial.ShapeMap, coords [][]float64, closed bool) error {
	pts := make([]r2.Point, 0, len(coords))
	for _, c := range coords {
		p, err := point(c)
		if err != nil {
			return err
		}
		pts = append(pts, p)
	}
	if closed && len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 2 {
		return fmt.Errorf("path needs at least two points, got %d", len(pts))
	}
	m.MakeShape(geometry.PolyShape(pts, closed))
	return nil
}

func point(c []float64) (r2.Point, error) {
	if len(c) < 2 {
		return r2.Point{}, fmt.Errorf("coordinate needs two values, got %d", len(c))
	}
	return r2.Point{X: c[0], Y: c[1]}, nil
}
