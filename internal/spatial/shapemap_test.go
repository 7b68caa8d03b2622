package spatial

import (
	"testing"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
)

func connectivity(t *testing.T, m *ShapeMap, ref int) float64 {
	t.Helper()
	col, ok := m.AttributeTable().ColumnIndex(ColumnConnectivity)
	if !ok {
		t.Fatalf("expected %q column", ColumnConnectivity)
	}
	return m.AttributeTable().Value(ref, col)
}

func TestShapeMap_axialConnectsOnMake(t *testing.T) {
	m := NewShapeMap("axial", TypeAxial)
	a := m.MakeLineShape(geometry.NewLine(0, 0, 10, 0))
	b := m.MakeLineShape(geometry.NewLine(5, -5, 5, 5))
	c := m.MakeLineShape(geometry.NewLine(20, 20, 30, 30))

	if got := connectivity(t, m, a); got != 1 {
		t.Fatalf("expected connectivity 1 for a, got %v", got)
	}
	if got := connectivity(t, m, c); got != 0 {
		t.Fatalf("expected connectivity 0 for c, got %v", got)
	}
	if !m.AttributeTable().IsLocked(0) {
		t.Fatalf("expected connectivity column to be locked")
	}

	if _, ok := m.RemoveShape(b); !ok {
		t.Fatalf("expected remove to succeed")
	}
	if got := connectivity(t, m, a); got != 0 {
		t.Fatalf("expected connectivity 0 after removal, got %v", got)
	}
	if m.NumShapes() != 2 || m.AttributeTable().NumRows() != 2 {
		t.Fatalf("expected 2 shapes and rows, got %d/%d", m.NumShapes(), m.AttributeTable().NumRows())
	}
}

func TestShapeMap_segmentWeights(t *testing.T) {
	m := NewShapeMap("segments", TypeSegment)
	m.AppendShape(geometry.LineShape(geometry.NewLine(0, 0, 1, 0)))
	m.AppendShape(geometry.LineShape(geometry.NewLine(1, 0, 2, 0)))
	m.AppendShape(geometry.LineShape(geometry.NewLine(1, 0, 1, 1)))
	if err := m.BuildConnections(comm.Background()); err != nil {
		t.Fatalf("build connections: %v", err)
	}
	conns := m.Connections(0)
	if len(conns) != 2 {
		t.Fatalf("expected 2 connections from segment 0, got %d", len(conns))
	}
	for _, c := range conns {
		switch c.To {
		case 1:
			if c.Weight > 1e-9 {
				t.Fatalf("expected straight continuation to cost 0, got %v", c.Weight)
			}
		case 2:
			if c.Weight < 0.99 || c.Weight > 1.01 {
				t.Fatalf("expected right angle to cost 1, got %v", c.Weight)
			}
		}
	}
}

func TestShapeMap_polygonEditing(t *testing.T) {
	m := NewShapeMap("data", TypeData)
	m.PolyBegin(geometry.NewLine(0, 0, 1, 0))
	m.PolyAppend(r2.Point{X: 1, Y: 1})
	ref, ok := m.PolyClose()
	if !ok {
		t.Fatalf("expected polygon to close")
	}
	s, _ := m.Shape(ref)
	if s.Kind != geometry.KindPolygon {
		t.Fatalf("expected polygon, got %s", s.Kind)
	}
	if m.PolyCancel() {
		t.Fatalf("expected nothing pending after close")
	}
	m.PolyBegin(geometry.NewLine(0, 0, 1, 0))
	if _, ok := m.PolyClose(); ok {
		t.Fatalf("expected two-point polygon to be refused")
	}
}

func TestShapeMap_regionQueries(t *testing.T) {
	m := NewShapeMap("data", TypeData)
	a := m.MakePointShape(r2.Point{X: 1, Y: 1})
	m.MakePointShape(r2.Point{X: 5, Y: 5})
	got := m.ShapesInRegion(r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 2, Y: 2}))
	if len(got) != 1 || got[0] != a {
		t.Fatalf("expected [%d], got %v", a, got)
	}
	if m.Region().Hi() != (r2.Point{X: 5, Y: 5}) {
		t.Fatalf("unexpected region %v", m.Region())
	}
	col := m.AttributeTable().InsertOrResetColumn("v")
	m.AttributeTable().SetValue(a, col, 3)
	if v := m.LocationValue(r2.Point{X: 1, Y: 1}, col); v != 3 {
		t.Fatalf("expected 3, got %v", v)
	}
	if v := m.LocationValue(r2.Point{X: 9, Y: 9}, col); v != attributes.NoValue {
		t.Fatalf("expected no value, got %v", v)
	}
}

func TestShapeMap_CopyFromSkipsLockedCollisions(t *testing.T) {
	src := NewShapeMap("src", TypeAxial)
	src.MakeLineShape(geometry.NewLine(0, 0, 1, 0))
	v := src.AttributeTable().InsertOrResetColumn("value")
	src.AttributeTable().SetValue(0, v, 9)

	dst := NewShapeMap("dst", TypeData)
	dst.CopyFrom(src, CopyGeometry|CopyAttributes)
	if dst.NumShapes() != 1 {
		t.Fatalf("expected 1 shape, got %d", dst.NumShapes())
	}
	col, ok := dst.AttributeTable().ColumnIndex("value")
	if !ok || dst.AttributeTable().Value(0, col) != 9 {
		t.Fatalf("expected copied value column")
	}
}

func TestShapeMap_ExportRoundTripKeepsRefs(t *testing.T) {
	m := NewShapeMap("axial", TypeAxial)
	m.MakeLineShape(geometry.NewLine(0, 0, 10, 0))
	b := m.MakeLineShape(geometry.NewLine(5, -5, 5, 5))
	m.RemoveShape(0)

	back := ShapeMapFromData(m.Export())
	if back.NumShapes() != 1 || back.Refs()[0] != b {
		t.Fatalf("expected ref %d to survive, got %v", b, back.Refs())
	}
	if next := back.MakeLineShape(geometry.NewLine(0, 1, 1, 1)); next != b+1 {
		t.Fatalf("expected next ref %d, got %d", b+1, next)
	}
}

func TestParseMapType(t *testing.T) {
	for _, want := range []MapType{TypeDrawing, TypeData, TypeAxial, TypeSegment, TypeConvex, TypeAllLine, TypeLattice} {
		got, ok := ParseMapType(" " + want.String() + " ")
		if !ok || got != want {
			t.Fatalf("expected %s, got %s/%v", want, got, ok)
		}
	}
	if _, ok := ParseMapType("empty"); ok {
		t.Fatalf("expected empty to be refused")
	}
}
