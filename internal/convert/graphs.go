package convert

import (
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
)

// DrawingToAxial turns every drawing line into an axial line.
func (e Engine) DrawingToAxial(c comm.Communicator, name string, layers []*spatial.ShapeMap) (*spatial.ShapeMap, error) {
	lines := dedupe(layerLines(layers), e.tol())
	if len(lines) == 0 {
		return nil, ErrNothingToConvert
	}
	return e.axialFrom(c, name, lines, nil, false)
}

// DataToAxial turns the lines and polylines of a data map into axial lines,
// optionally carrying the source attributes across.
func (e Engine) DataToAxial(c comm.Communicator, name string, src *spatial.ShapeMap, pushValues bool) (*spatial.ShapeMap, error) {
	lines := openLines(src)
	if len(lines) == 0 {
		return nil, ErrNothingToConvert
	}
	return e.axialFrom(c, name, lines, src, pushValues)
}

func (e Engine) axialFrom(c comm.Communicator, name string, lines []sourceLine, src *spatial.ShapeMap, pushValues bool) (*spatial.ShapeMap, error) {
	c.PostSteps(2)
	c.PostStep(1)
	m := spatial.NewShapeMap(name, spatial.TypeAxial)
	var refCol int
	if src != nil {
		refCol = m.AttributeTable().GetOrInsertLockedColumn(ColumnDataMapRef)
	}
	c.PostRecords(len(lines))
	for i, l := range lines {
		if err := c.PostRecord(i); err != nil {
			return nil, err
		}
		ref := m.AppendShape(geometry.LineShape(l.line))
		if src != nil {
			m.AttributeTable().SetValue(ref, refCol, float64(l.ref))
			if pushValues {
				copyRowValues(src.AttributeTable(), l.ref, m.AttributeTable(), ref)
			}
		}
	}
	c.PostStep(2)
	if err := m.BuildConnections(c); err != nil {
		return nil, err
	}
	m.WriteLengths(spatial.ColumnLineLength)
	return m, nil
}

// DrawingToSegment splits drawing lines wherever they meet.
func (e Engine) DrawingToSegment(c comm.Communicator, name string, layers []*spatial.ShapeMap) (*spatial.ShapeMap, error) {
	lines := dedupe(layerLines(layers), e.tol())
	if len(lines) == 0 {
		return nil, ErrNothingToConvert
	}
	return e.segmentsFrom(c, name, lines, nil, false, 0, "")
}

// DataToSegment splits the lines and polylines of a data map into segments.
func (e Engine) DataToSegment(c comm.Communicator, name string, src *spatial.ShapeMap, pushValues bool) (*spatial.ShapeMap, error) {
	lines := openLines(src)
	if len(lines) == 0 {
		return nil, ErrNothingToConvert
	}
	return e.segmentsFrom(c, name, lines, src, pushValues, 0, ColumnDataMapRef)
}

// AxialToSegment breaks each axial line at its intersections. End pieces
// shorter than stubRemoval times the line length are dropped.
func (e Engine) AxialToSegment(c comm.Communicator, name string, src *spatial.ShapeMap, pushValues bool, stubRemoval float64) (*spatial.ShapeMap, error) {
	if !src.IsGraph() || src.IsSegmentMap() {
		return nil, ErrNothingToConvert
	}
	lines := openLines(src)
	if len(lines) == 0 {
		return nil, ErrNothingToConvert
	}
	return e.segmentsFrom(c, name, lines, src, pushValues, stubRemoval, spatial.ColumnAxialRef)
}

func (e Engine) segmentsFrom(c comm.Communicator, name string, lines []sourceLine, src *spatial.ShapeMap, pushValues bool, stubRemoval float64, refColumn string) (*spatial.ShapeMap, error) {
	tol := e.tol()
	c.PostSteps(2)
	c.PostStep(1)
	m := spatial.NewShapeMap(name, spatial.TypeSegment)
	refCol := -1
	if refColumn != "" {
		refCol = m.AttributeTable().GetOrInsertLockedColumn(refColumn)
	}
	c.PostRecords(len(lines))
	for i, l := range lines {
		if err := c.PostRecord(i); err != nil {
			return nil, err
		}
		ts, err := splitPoints(c, lines, i, tol)
		if err != nil {
			return nil, err
		}
		segs := pieces(l.line, ts)
		if stubRemoval > 0 && len(segs) > 1 {
			limit := stubRemoval * l.line.Length()
			if segs[0].Length() < limit {
				segs = segs[1:]
			}
			if len(segs) > 1 && segs[len(segs)-1].Length() < limit {
				segs = segs[:len(segs)-1]
			}
		}
		for _, s := range segs {
			if s.Length() <= tol {
				continue
			}
			ref := m.AppendShape(geometry.LineShape(s))
			if refCol >= 0 {
				m.AttributeTable().SetValue(ref, refCol, float64(l.ref))
			}
			if src != nil && pushValues {
				copyRowValues(src.AttributeTable(), l.ref, m.AttributeTable(), ref)
			}
		}
	}
	c.PostStep(2)
	if err := m.BuildConnections(c); err != nil {
		return nil, err
	}
	m.WriteLengths(spatial.ColumnSegmentLength)
	return m, nil
}

// DrawingToConvex makes a convex map from the polygons of the drawing layers.
func (e Engine) DrawingToConvex(c comm.Communicator, name string, layers []*spatial.ShapeMap) (*spatial.ShapeMap, error) {
	m := spatial.NewShapeMap(name, spatial.TypeConvex)
	for _, layer := range layers {
		for _, ref := range layer.Refs() {
			if err := c.Err(); err != nil {
				return nil, err
			}
			if s, _ := layer.Shape(ref); s.IsPolygon() {
				m.AppendShape(s.Clone())
			}
		}
	}
	return e.finishConvex(c, m)
}

// DataToConvex makes a convex map from the polygons of a data map, keeping
// their refs and optionally their attributes.
func (e Engine) DataToConvex(c comm.Communicator, name string, src *spatial.ShapeMap, copyData bool) (*spatial.ShapeMap, error) {
	m := spatial.NewShapeMap(name, spatial.TypeConvex)
	for _, ref := range src.Refs() {
		if err := c.Err(); err != nil {
			return nil, err
		}
		s, _ := src.Shape(ref)
		if !s.IsPolygon() {
			continue
		}
		m.AppendShapeAt(ref, s.Clone())
		if copyData {
			copyRowValues(src.AttributeTable(), ref, m.AttributeTable(), ref)
		}
	}
	return e.finishConvex(c, m)
}

func (e Engine) finishConvex(c comm.Communicator, m *spatial.ShapeMap) (*spatial.ShapeMap, error) {
	if m.NumShapes() == 0 {
		return nil, ErrNothingToConvert
	}
	if err := m.BuildConnections(c); err != nil {
		return nil, err
	}
	area := m.AttributeTable().GetOrInsertLockedColumn(spatial.ColumnArea)
	for _, ref := range m.Refs() {
		s, _ := m.Shape(ref)
		m.AttributeTable().SetValue(ref, area, s.Area())
	}
	m.WriteLengths(spatial.ColumnPerimeter)
	return m, nil
}
