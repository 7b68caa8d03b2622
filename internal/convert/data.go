package convert

import (
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/spatial"
)

// DrawingToData copies every drawing shape into a data map, recording the
// layer each shape came from.
func (e Engine) DrawingToData(c comm.Communicator, name string, layers []*spatial.ShapeMap) (*spatial.ShapeMap, error) {
	m := spatial.NewShapeMap(name, spatial.TypeData)
	layerCol := m.AttributeTable().GetOrInsertColumn(spatial.ColumnDrawingLayer)
	for li, layer := range layers {
		refs := layer.Refs()
		c.PostRecords(len(refs))
		for i, ref := range refs {
			if err := c.PostRecord(i); err != nil {
				return nil, err
			}
			s, _ := layer.Shape(ref)
			nref := m.AppendShape(s.Clone())
			m.AttributeTable().SetValue(nref, layerCol, float64(li))
		}
	}
	if m.NumShapes() == 0 {
		return nil, ErrNothingToConvert
	}
	return m, nil
}

// ToData copies a map's shapes into a data map under the same refs,
// optionally with its attributes.
func (e Engine) ToData(c comm.Communicator, name string, src *spatial.ShapeMap, copyData bool) (*spatial.ShapeMap, error) {
	if src.NumShapes() == 0 {
		return nil, ErrNothingToConvert
	}
	m := spatial.NewShapeMap(name, spatial.TypeData)
	refs := src.Refs()
	c.PostRecords(len(refs))
	for i, ref := range refs {
		if err := c.PostRecord(i); err != nil {
			return nil, err
		}
		s, _ := src.Shape(ref)
		m.AppendShapeAt(ref, s.Clone())
	}
	if copyData {
		m.CopyFrom(src, spatial.CopyAttributes)
	}
	return m, nil
}

// ToDrawing copies a map's geometry into a drawing layer.
func (e Engine) ToDrawing(c comm.Communicator, name string, src *spatial.ShapeMap) (*spatial.ShapeMap, error) {
	if src.NumShapes() == 0 {
		return nil, ErrNothingToConvert
	}
	m := spatial.NewShapeMap(name, spatial.TypeDrawing)
	refs := src.Refs()
	c.PostRecords(len(refs))
	for i, ref := range refs {
		if err := c.PostRecord(i); err != nil {
			return nil, err
		}
		s, _ := src.Shape(ref)
		m.AppendShapeAt(ref, s.Clone())
	}
	return m, nil
}
