package document

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

var ErrBadSnapshot = errors.New("invalid document snapshot")

// Snapshot is the persisted form of a document. Selections, undo buffers and
// the isovist partition are not kept.
type Snapshot struct {
	Version  int                 `json:"version"`
	Name     string              `json:"name"`
	State    viewstate.State     `json:"state"`
	View     viewstate.ViewClass `json:"view"`
	Region   []r2.Point          `json:"region,omitempty"`
	Drawings []DrawingSnapshot   `json:"drawings,omitempty"`
	Lattices []LatticeSnapshot   `json:"lattices,omitempty"`
	Graphs   []ShapeSnapshot     `json:"graphs,omitempty"`
	Data     []ShapeSnapshot     `json:"data,omitempty"`

	DisplayedLattice int `json:"displayed_lattice"`
	DisplayedGraph   int `json:"displayed_graph"`
	DisplayedData    int `json:"displayed_data"`
	AllLine          int `json:"all_line"`
}

type DrawingSnapshot struct {
	Name   string          `json:"name"`
	Layers []ShapeSnapshot `json:"layers"`
}

type ShapeSnapshot struct {
	Map      spatial.ShapeMapData `json:"map"`
	Shown    bool                 `json:"shown"`
	Editable bool                 `json:"editable,omitempty"`
}

type LatticeSnapshot struct {
	Map spatial.LatticeData `json:"map"`
}

func shapeSnapshot(v *ShapeView) ShapeSnapshot {
	return ShapeSnapshot{Map: v.m.Export(), Shown: v.shown, Editable: v.editable}
}

func (s ShapeSnapshot) view() *ShapeView {
	v := newShapeView(spatial.ShapeMapFromData(s.Map))
	v.shown = s.Shown
	v.editable = s.Editable
	v.OverrideDisplayedAttribute(v.AttributeTable().DisplayColumn())
	return v
}

// Snapshot captures the document for persistence.
func (d *Document) Snapshot() Snapshot {
	s := Snapshot{
		Version:          SnapshotVersion,
		Name:             d.name,
		State:            d.state,
		View:             d.view,
		DisplayedLattice: d.lattices.displayed,
		DisplayedGraph:   d.graphs.displayed,
		DisplayedData:    d.data.displayed,
		AllLine:          d.allLineIndex(),
	}
	if !d.region.IsEmpty() {
		s.Region = []r2.Point{d.region.Lo(), d.region.Hi()}
	}
	for _, f := range d.drawings {
		ds := DrawingSnapshot{Name: f.name}
		for _, l := range f.layers {
			ds.Layers = append(ds.Layers, shapeSnapshot(l))
		}
		s.Drawings = append(s.Drawings, ds)
	}
	for _, v := range d.lattices.items {
		s.Lattices = append(s.Lattices, LatticeSnapshot{Map: v.m.Export()})
	}
	for _, v := range d.graphs.items {
		s.Graphs = append(s.Graphs, shapeSnapshot(v))
	}
	for _, v := range d.data.items {
		s.Data = append(s.Data, shapeSnapshot(v))
	}
	return s
}

func checkDisplayed(what string, i, n int) error {
	if n == 0 && i != noRef {
		return fmt.Errorf("%w: %s displayed %d of an empty collection", ErrBadSnapshot, what, i)
	}
	if n > 0 && (i < 0 || i >= n) {
		return fmt.Errorf("%w: %s displayed %d out of range [0,%d)", ErrBadSnapshot, what, i, n)
	}
	return nil
}

// FromSnapshot rebuilds a document. Presence bits are derived from the
// collections; a stored state that disagrees is rejected, as is a view that
// shows a kind with no maps.
func FromSnapshot(s Snapshot, opts Options) (*Document, error) {
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadSnapshot, s.Version)
	}
	for _, c := range []struct {
		what string
		i, n int
	}{
		{"lattice", s.DisplayedLattice, len(s.Lattices)},
		{"graph", s.DisplayedGraph, len(s.Graphs)},
		{"data", s.DisplayedData, len(s.Data)},
	} {
		if err := checkDisplayed(c.what, c.i, c.n); err != nil {
			return nil, err
		}
	}
	if s.AllLine != noRef && (s.AllLine < 0 || s.AllLine >= len(s.Graphs)) {
		return nil, fmt.Errorf("%w: all-line map %d out of range", ErrBadSnapshot, s.AllLine)
	}

	d := New(s.Name, opts)
	if len(s.Region) > 0 {
		d.region = r2.RectFromPoints(s.Region...)
	}
	for _, ds := range s.Drawings {
		f := &DrawingFile{name: ds.Name, region: r2.EmptyRect()}
		for _, ls := range ds.Layers {
			v := ls.view()
			f.layers = append(f.layers, v)
			f.region = geometry.Union(f.region, v.Region())
		}
		d.drawings = append(d.drawings, f)
	}
	for _, ls := range s.Lattices {
		v := newLatticeView(spatial.LatticeFromData(ls.Map))
		v.OverrideDisplayedAttribute(v.AttributeTable().DisplayColumn())
		d.lattices.items = append(d.lattices.items, v)
	}
	for _, gs := range s.Graphs {
		d.graphs.items = append(d.graphs.items, gs.view())
	}
	for _, ds := range s.Data {
		d.data.items = append(d.data.items, ds.view())
	}
	d.lattices.displayed = s.DisplayedLattice
	d.graphs.displayed = s.DisplayedGraph
	d.data.displayed = s.DisplayedData
	if s.AllLine != noRef {
		d.allLine = d.graphs.items[s.AllLine]
	}

	want := s.State & viewstate.StateAngularGraph
	for _, p := range []struct {
		bit viewstate.State
		n   int
	}{
		{viewstate.StateDrawingData, len(d.drawings)},
		{viewstate.StateLatticeMaps, len(d.lattices.items)},
		{viewstate.StateShapeGraphs, len(d.graphs.items)},
		{viewstate.StateDataMaps, len(d.data.items)},
	} {
		if p.n > 0 {
			want = want.With(p.bit)
		}
	}
	if want != s.State {
		return nil, fmt.Errorf("%w: state %s does not match collections (%s)", ErrBadSnapshot, s.State, want)
	}
	d.state = want
	if !s.View.Valid() {
		return nil, fmt.Errorf("%w: view %s", ErrBadSnapshot, s.View)
	}
	for _, k := range []viewstate.Kind{viewstate.KindVGA, viewstate.KindAxial, viewstate.KindData} {
		if s.View.Shows(k) && !d.state.Has(viewstate.PresenceBit(k)) {
			return nil, fmt.Errorf("%w: view %s shows %s without maps", ErrBadSnapshot, s.View, k)
		}
	}
	d.view = s.View
	return d, nil
}
