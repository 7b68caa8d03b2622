// Package spatial holds the delegate maps a document coordinates: shape maps
// (drawings, data maps and shape graphs) and lattice maps.
package spatial

import (
	"math"
	"sort"
	"strings"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
)

// AttributeMap is the capability every map exposes to the document.
type AttributeMap interface {
	Name() string
	AttributeTable() *attributes.Table
	Region() r2.Rect
}

// Well-known column names.
const (
	ColumnConnectivity  = "Connectivity"
	ColumnLineLength    = "Line Length"
	ColumnSegmentLength = "Segment Length"
	ColumnAxialRef      = "Axial Line Ref"
	ColumnObjectCount   = "Object Count"
	ColumnDrawingLayer  = "Drawing Layer"
	ColumnArea          = "Area"
	ColumnPerimeter     = "Perimeter"
)

type MapType uint8

const (
	TypeEmpty MapType = iota
	TypeDrawing
	TypeData
	TypeAxial
	TypeSegment
	TypeConvex
	TypeAllLine
	// TypeLattice is reported for lattice maps; no ShapeMap carries it.
	TypeLattice
)

func (t MapType) String() string {
	switch t {
	case TypeDrawing:
		return "drawing"
	case TypeData:
		return "data"
	case TypeAxial:
		return "axial"
	case TypeSegment:
		return "segment"
	case TypeConvex:
		return "convex"
	case TypeAllLine:
		return "all_line"
	case TypeLattice:
		return "lattice"
	default:
		return "empty"
	}
}

// ParseMapType accepts the names produced by MapType.String.
func ParseMapType(s string) (MapType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t := TypeDrawing; t <= TypeLattice; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return TypeEmpty, false
}

// IsGraph reports whether maps of this type carry connections.
func (t MapType) IsGraph() bool {
	switch t {
	case TypeAxial, TypeSegment, TypeConvex, TypeAllLine:
		return true
	default:
		return false
	}
}

// Connection is an edge of a shape graph. Weight is the angular turn (in
// quarter turns) for segment maps and zero elsewhere.
type Connection struct {
	To     int     `json:"to"`
	Weight float64 `json:"weight,omitempty"`
}

type ShapeMap struct {
	name    string
	mapType MapType
	shapes  map[int]geometry.Shape
	keys    []int
	nextKey int
	region  r2.Rect
	table   *attributes.Table
	conns   map[int][]Connection

	poly []r2.Point
}

func NewShapeMap(name string, t MapType) *ShapeMap {
	return &ShapeMap{
		name:    name,
		mapType: t,
		shapes:  make(map[int]geometry.Shape),
		region:  r2.EmptyRect(),
		table:   attributes.NewTable(),
		conns:   make(map[int][]Connection),
	}
}

func (m *ShapeMap) Name() string                      { return m.name }
func (m *ShapeMap) SetName(name string)               { m.name = name }
func (m *ShapeMap) Type() MapType                     { return m.mapType }
func (m *ShapeMap) AttributeTable() *attributes.Table { return m.table }
func (m *ShapeMap) Region() r2.Rect                   { return m.region }
func (m *ShapeMap) NumShapes() int                    { return len(m.keys) }
func (m *ShapeMap) IsGraph() bool                     { return m.mapType.IsGraph() }
func (m *ShapeMap) IsSegmentMap() bool                { return m.mapType == TypeSegment }
func (m *ShapeMap) IsAllLineMap() bool                { return m.mapType == TypeAllLine }

// SetRegion widens the map region, used when a map is created before its shapes.
func (m *ShapeMap) SetRegion(r r2.Rect) { m.region = geometry.Union(m.region, r) }

// Refs returns the shape references in ascending order.
func (m *ShapeMap) Refs() []int { return append([]int(nil), m.keys...) }

func (m *ShapeMap) Shape(ref int) (geometry.Shape, bool) {
	s, ok := m.shapes[ref]
	return s, ok
}

// MakeShape adds s under a fresh reference and returns it. Graph maps connect
// the new shape to its neighbours.
func (m *ShapeMap) MakeShape(s geometry.Shape) int {
	ref := m.nextKey
	m.insert(ref, s)
	if m.IsGraph() {
		m.connect(ref)
	}
	return ref
}

// AppendShape adds s without touching connections. Bulk loaders call
// BuildConnections once they are done.
func (m *ShapeMap) AppendShape(s geometry.Shape) int {
	ref := m.nextKey
	m.insert(ref, s)
	return ref
}

// AppendShapeAt is AppendShape with a caller-chosen ref. It returns false when
// ref is already taken.
func (m *ShapeMap) AppendShapeAt(ref int, s geometry.Shape) bool {
	if _, ok := m.shapes[ref]; ok {
		return false
	}
	m.insert(ref, s)
	return true
}

func (m *ShapeMap) MakeLineShape(l geometry.Line) int {
	return m.MakeShape(geometry.LineShape(l))
}

func (m *ShapeMap) MakePointShape(p r2.Point) int {
	return m.MakeShape(geometry.PointShape(p))
}

func (m *ShapeMap) MakePolyShape(points []r2.Point, closed bool) int {
	return m.MakeShape(geometry.PolyShape(points, closed))
}

// InsertShape places s under ref, used when restoring or undoing. It returns
// false when ref is already taken.
func (m *ShapeMap) InsertShape(ref int, s geometry.Shape) bool {
	if _, ok := m.shapes[ref]; ok {
		return false
	}
	m.insert(ref, s)
	if m.IsGraph() {
		m.connect(ref)
	}
	return true
}

func (m *ShapeMap) insert(ref int, s geometry.Shape) {
	m.shapes[ref] = s
	pos := sort.SearchInts(m.keys, ref)
	m.keys = append(m.keys, 0)
	copy(m.keys[pos+1:], m.keys[pos:])
	m.keys[pos] = ref
	if ref >= m.nextKey {
		m.nextKey = ref + 1
	}
	m.region = geometry.Union(m.region, s.Bounds())
	m.table.AddRow(ref)
}

// RemoveShape deletes ref and its connections.
func (m *ShapeMap) RemoveShape(ref int) (geometry.Shape, bool) {
	s, ok := m.shapes[ref]
	if !ok {
		return geometry.Shape{}, false
	}
	delete(m.shapes, ref)
	pos := sort.SearchInts(m.keys, ref)
	m.keys = append(m.keys[:pos], m.keys[pos+1:]...)
	m.table.RemoveRow(ref)
	if m.IsGraph() {
		m.disconnect(ref)
	}
	return s, true
}

// MoveShape replaces the geometry of ref and refreshes its connections.
func (m *ShapeMap) MoveShape(ref int, s geometry.Shape) bool {
	if _, ok := m.shapes[ref]; !ok {
		return false
	}
	m.shapes[ref] = s
	m.region = geometry.Union(m.region, s.Bounds())
	if m.IsGraph() {
		m.disconnect(ref)
		m.connect(ref)
	}
	return true
}

// PolyBegin starts an interactive polygon with its first edge.
func (m *ShapeMap) PolyBegin(l geometry.Line) {
	m.poly = []r2.Point{l.Start, l.End}
}

// PolyAppend extends the polygon under construction.
func (m *ShapeMap) PolyAppend(p r2.Point) bool {
	if len(m.poly) == 0 {
		return false
	}
	m.poly = append(m.poly, p)
	return true
}

// PolyClose commits the polygon under construction and returns its ref.
func (m *ShapeMap) PolyClose() (int, bool) {
	if len(m.poly) < 3 {
		m.poly = nil
		return -1, false
	}
	ref := m.MakePolyShape(m.poly, true)
	m.poly = nil
	return ref, true
}

func (m *ShapeMap) PolyCancel() bool {
	had := len(m.poly) > 0
	m.poly = nil
	return had
}

func (m *ShapeMap) PolyPending() []r2.Point { return append([]r2.Point(nil), m.poly...) }

// ShapesInRegion returns the refs of shapes touching r in ascending order.
func (m *ShapeMap) ShapesInRegion(r r2.Rect) []int {
	var out []int
	for _, ref := range m.keys {
		if m.shapes[ref].IntersectsRect(r) {
			out = append(out, ref)
		}
	}
	return out
}

// ShapeAt returns the topmost (highest ref) shape containing p within tol.
func (m *ShapeMap) ShapeAt(p r2.Point, tol float64) (int, bool) {
	for i := len(m.keys) - 1; i >= 0; i-- {
		if m.shapes[m.keys[i]].ContainsPoint(p, tol) {
			return m.keys[i], true
		}
	}
	return -1, false
}

// LocationValue reads col for the shape at p, NoValue when nothing is there.
func (m *ShapeMap) LocationValue(p r2.Point, col int) float64 {
	ref, ok := m.ShapeAt(p, geometry.Tolerance)
	if !ok {
		return attributes.NoValue
	}
	return m.table.Value(ref, col)
}

// CopyFlags select what CopyFrom transfers.
type CopyFlags uint8

const (
	CopyGeometry CopyFlags = 1 << iota
	CopyAttributes
)

// CopyFrom copies shapes (keeping refs) and optionally attribute columns.
func (m *ShapeMap) CopyFrom(src *ShapeMap, flags CopyFlags) {
	if flags&CopyGeometry != 0 {
		for _, ref := range src.keys {
			if _, ok := m.shapes[ref]; ok {
				continue
			}
			m.insert(ref, src.shapes[ref].Clone())
		}
	}
	if flags&CopyAttributes != 0 {
		st := src.table
		for c := 0; c < st.NumColumns(); c++ {
			col := st.Column(c)
			if col.Locked && m.table.HasColumn(col.Name) {
				continue
			}
			dst := m.table.GetOrInsertColumn(col.Name)
			for _, ref := range src.keys {
				m.table.SetValue(ref, dst, st.Value(ref, c))
			}
		}
	}
}

// Connections returns the edges of ref.
func (m *ShapeMap) Connections(ref int) []Connection {
	return append([]Connection(nil), m.conns[ref]...)
}

// SetConnections replaces the whole connection set, used by converters that
// compute topology themselves.
func (m *ShapeMap) SetConnections(conns map[int][]Connection) {
	m.conns = make(map[int][]Connection, len(conns))
	for ref, cs := range conns {
		if _, ok := m.shapes[ref]; ok {
			m.conns[ref] = append([]Connection(nil), cs...)
		}
	}
	m.writeConnectivity()
}

// BuildConnections recomputes every edge using the map type's rule.
func (m *ShapeMap) BuildConnections(c comm.Communicator) error {
	m.conns = make(map[int][]Connection, len(m.keys))
	c.PostRecords(len(m.keys))
	for i, a := range m.keys {
		if err := c.PostRecord(i); err != nil {
			return err
		}
		for _, b := range m.keys[i+1:] {
			if w, ok := m.linked(m.shapes[a], m.shapes[b]); ok {
				m.conns[a] = append(m.conns[a], Connection{To: b, Weight: w})
				m.conns[b] = append(m.conns[b], Connection{To: a, Weight: w})
			}
		}
	}
	m.writeConnectivity()
	return nil
}

func (m *ShapeMap) connect(ref int) {
	s := m.shapes[ref]
	m.conns[ref] = nil
	for _, other := range m.keys {
		if other == ref {
			continue
		}
		if w, ok := m.linked(s, m.shapes[other]); ok {
			m.conns[ref] = append(m.conns[ref], Connection{To: other, Weight: w})
			m.conns[other] = append(m.conns[other], Connection{To: ref, Weight: w})
		}
	}
	m.writeConnectivity()
}

func (m *ShapeMap) disconnect(ref int) {
	for _, c := range m.conns[ref] {
		edges := m.conns[c.To]
		kept := edges[:0]
		for _, e := range edges {
			if e.To != ref {
				kept = append(kept, e)
			}
		}
		m.conns[c.To] = kept
	}
	delete(m.conns, ref)
	m.writeConnectivity()
}

func (m *ShapeMap) linked(a, b geometry.Shape) (float64, bool) {
	switch m.mapType {
	case TypeSegment:
		la, okA := a.Line()
		lb, okB := b.Line()
		if !okA || !okB || !la.SharedEndpoint(lb, SnapTolerance) {
			return 0, false
		}
		return segmentTurn(la, lb), true
	case TypeConvex:
		return 0, a.Intersects(b, SnapTolerance)
	default:
		for _, la := range a.Lines() {
			for _, lb := range b.Lines() {
				if la.Intersects(lb, SnapTolerance) {
					return 0, true
				}
			}
		}
		return 0, false
	}
}

// SnapTolerance is the distance under which endpoints are treated as joined.
const SnapTolerance = 1e-6

// segmentTurn is the angular cost of moving from a onto b through their shared
// end, in quarter turns (0 straight on, 2 full reversal).
func segmentTurn(a, b geometry.Line) float64 {
	// Orient both lines so that a ends and b starts at the junction.
	switch {
	case a.End.Sub(b.Start).Norm() <= SnapTolerance:
	case a.End.Sub(b.End).Norm() <= SnapTolerance:
		b = geometry.Line{Start: b.End, End: b.Start}
	case a.Start.Sub(b.Start).Norm() <= SnapTolerance:
		a = geometry.Line{Start: a.End, End: a.Start}
	default:
		a = geometry.Line{Start: a.End, End: a.Start}
		b = geometry.Line{Start: b.End, End: b.Start}
	}
	return a.AngleTo(b) / (math.Pi / 2)
}

func (m *ShapeMap) writeConnectivity() {
	if !m.IsGraph() {
		return
	}
	col := m.table.GetOrInsertLockedColumn(ColumnConnectivity)
	for _, ref := range m.keys {
		m.table.SetValue(ref, col, float64(len(m.conns[ref])))
	}
}

// WriteLengths fills the locked length column for every shape.
func (m *ShapeMap) WriteLengths(name string) int {
	col := m.table.GetOrInsertLockedColumn(name)
	for _, ref := range m.keys {
		m.table.SetValue(ref, col, m.shapes[ref].Length())
	}
	return col
}

// Clone deep-copies the map.
func (m *ShapeMap) Clone() *ShapeMap {
	out := NewShapeMap(m.name, m.mapType)
	for _, ref := range m.keys {
		out.shapes[ref] = m.shapes[ref].Clone()
	}
	out.keys = append([]int(nil), m.keys...)
	out.nextKey = m.nextKey
	out.region = m.region
	out.table = m.table.Clone()
	for ref, cs := range m.conns {
		out.conns[ref] = append([]Connection(nil), cs...)
	}
	return out
}
