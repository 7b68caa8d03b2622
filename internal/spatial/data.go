package spatial

import (
	"sort"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/geometry"
)

// ShapeMapData is the serialisable form of a ShapeMap.
type ShapeMapData struct {
	Name        string                 `json:"name"`
	Type        MapType                `json:"type"`
	Shapes      map[int]geometry.Shape `json:"shapes"`
	NextKey     int                    `json:"next_key"`
	Region      []r2.Point             `json:"region,omitempty"`
	Table       attributes.TableData   `json:"table"`
	Connections map[int][]Connection   `json:"connections,omitempty"`
}

func (m *ShapeMap) Export() ShapeMapData {
	d := ShapeMapData{
		Name:        m.name,
		Type:        m.mapType,
		Shapes:      make(map[int]geometry.Shape, len(m.shapes)),
		NextKey:     m.nextKey,
		Region:      regionPoints(m.region),
		Table:       m.table.Export(),
		Connections: make(map[int][]Connection, len(m.conns)),
	}
	for ref, s := range m.shapes {
		d.Shapes[ref] = s.Clone()
	}
	for ref, cs := range m.conns {
		d.Connections[ref] = append([]Connection(nil), cs...)
	}
	return d
}

func ShapeMapFromData(d ShapeMapData) *ShapeMap {
	m := NewShapeMap(d.Name, d.Type)
	for ref, s := range d.Shapes {
		m.shapes[ref] = s.Clone()
		m.keys = append(m.keys, ref)
	}
	sort.Ints(m.keys)
	m.nextKey = d.NextKey
	if len(m.keys) > 0 && m.keys[len(m.keys)-1] >= m.nextKey {
		m.nextKey = m.keys[len(m.keys)-1] + 1
	}
	m.region = regionFromPoints(d.Region)
	m.table = attributes.TableFromData(d.Table)
	for ref, cs := range d.Connections {
		m.conns[ref] = append([]Connection(nil), cs...)
	}
	return m
}

// LatticeData is the serialisable form of a LatticeMap.
type LatticeData struct {
	Name       string               `json:"name"`
	Region     []r2.Point           `json:"region,omitempty"`
	Spacing    float64              `json:"spacing"`
	Origin     r2.Point             `json:"origin"`
	Cols       int                  `json:"cols"`
	Rows       int                  `json:"rows"`
	Filled     []int                `json:"filled"`
	Blockers   []geometry.Line      `json:"blockers,omitempty"`
	Processed  bool                 `json:"processed"`
	Neighbours map[int][]int        `json:"neighbours,omitempty"`
	Table      attributes.TableData `json:"table"`
}

func (l *LatticeMap) Export() LatticeData {
	d := LatticeData{
		Name:       l.name,
		Region:     regionPoints(l.region),
		Spacing:    l.spacing,
		Origin:     l.origin,
		Cols:       l.cols,
		Rows:       l.rows,
		Filled:     l.Keys(),
		Blockers:   l.Blockers(),
		Processed:  l.processed,
		Neighbours: make(map[int][]int, len(l.neighbours)),
		Table:      l.table.Export(),
	}
	for k, ns := range l.neighbours {
		d.Neighbours[k] = append([]int(nil), ns...)
	}
	return d
}

func LatticeFromData(d LatticeData) *LatticeMap {
	l := NewLatticeMap(d.Name, regionFromPoints(d.Region))
	l.spacing = d.Spacing
	l.origin = d.Origin
	l.cols, l.rows = d.Cols, d.Rows
	l.cells = make([]PointState, d.Cols*d.Rows)
	l.blockers = append([]geometry.Line(nil), d.Blockers...)
	l.applyBlockers()
	for _, k := range d.Filled {
		if i, ok := l.index(PixelFromKey(k)); ok {
			l.cells[i] |= PointFilled
		}
	}
	l.table = attributes.TableFromData(d.Table)
	l.processed = d.Processed
	for k, ns := range d.Neighbours {
		l.neighbours[k] = append([]int(nil), ns...)
	}
	return l
}

func regionPoints(r r2.Rect) []r2.Point {
	if r.IsEmpty() {
		return nil
	}
	return []r2.Point{r.Lo(), r.Hi()}
}

func regionFromPoints(pts []r2.Point) r2.Rect {
	if len(pts) == 0 {
		return r2.EmptyRect()
	}
	return r2.RectFromPoints(pts...)
}
