package document

import (
	"maps"
	"slices"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
)

// mapView is the UI state the document keeps next to every map it owns: the
// displayed attribute cache and the selection set. Neither is safe to share
// across goroutines.
type mapView struct {
	am        spatial.AttributeMap
	displayed int
	invalid   bool
	sel       map[int]struct{}
}

func newMapView(am spatial.AttributeMap) mapView {
	return mapView{am: am, displayed: attributes.DisplayUninitialised, sel: make(map[int]struct{})}
}

func (v *mapView) Name() string                      { return v.am.Name() }
func (v *mapView) AttributeTable() *attributes.Table { return v.am.AttributeTable() }
func (v *mapView) Region() r2.Rect                   { return v.am.Region() }

// DisplayedAttribute returns the column shown for this map. The table's
// display column is authoritative; the cache follows it whenever it holds a
// real value.
func (v *mapView) DisplayedAttribute() int {
	handle := v.am.AttributeTable().DisplayColumn()
	if v.displayed == handle {
		return v.displayed
	}
	if handle != attributes.DisplayUninitialised {
		v.displayed = handle
	}
	return v.displayed
}

// SetDisplayedAttribute pushes col to the table unless the cache already
// holds it and has not been invalidated.
func (v *mapView) SetDisplayedAttribute(col int) {
	if !v.invalid && v.displayed == col {
		return
	}
	v.displayed = col
	v.am.AttributeTable().SetDisplayColumn(col)
	v.invalid = false
}

// OverrideDisplayedAttribute sets the cache only. Callers use it with -2 to
// force the next SetDisplayedAttribute through.
func (v *mapView) OverrideDisplayedAttribute(col int) { v.displayed = col }

func (v *mapView) InvalidateDisplayedAttribute() { v.invalid = true }

// resolveDisplayedAttribute re-reads the table after a structural change and
// falls back to the ref column when the shown column is gone.
func (v *mapView) resolveDisplayedAttribute() {
	col := v.am.AttributeTable().DisplayColumn()
	if col == attributes.DisplayUninitialised || col >= v.am.AttributeTable().NumColumns() {
		col = attributes.DisplayRefColumn
	}
	v.OverrideDisplayedAttribute(attributes.DisplayUninitialised)
	v.SetDisplayedAttribute(col)
}

func (v *mapView) refreshDisplayedAttribute() {
	v.InvalidateDisplayedAttribute()
	v.SetDisplayedAttribute(v.displayed)
}

// Selection returns the selected refs in ascending order.
func (v *mapView) Selection() []int { return slices.Sorted(maps.Keys(v.sel)) }

func (v *mapView) SelectionCount() int { return len(v.sel) }

func (v *mapView) HasSelection() bool { return len(v.sel) > 0 }

func (v *mapView) clearSelection() { clear(v.sel) }

// selectRefs replaces (or with add extends) the selection with the refs that
// exist in the table, returning the new selection size.
func (v *mapView) selectRefs(refs []int, add bool) int {
	if !add {
		v.clearSelection()
	}
	t := v.am.AttributeTable()
	for _, ref := range refs {
		if t.HasRow(ref) {
			v.sel[ref] = struct{}{}
		}
	}
	return len(v.sel)
}

func (v *mapView) selectionAverage() float64 {
	col := v.DisplayedAttribute()
	if col == attributes.DisplayUninitialised || len(v.sel) == 0 {
		return attributes.NoValue
	}
	return v.am.AttributeTable().SelectionAverage(col, v.Selection())
}

type eventKind uint8

const (
	eventCreated eventKind = iota
	eventDeleted
	eventMoved
)

// shapeEvent is one entry of a shape map's undo buffer. shape holds the
// geometry to restore for deletions and moves.
type shapeEvent struct {
	kind  eventKind
	ref   int
	shape geometry.Shape
}

// ShapeView wraps a drawing layer, shape graph or data map.
type ShapeView struct {
	mapView
	m        *spatial.ShapeMap
	editable bool
	shown    bool
	undo     []shapeEvent
}

func newShapeView(m *spatial.ShapeMap) *ShapeView {
	return &ShapeView{mapView: newMapView(m), m: m, shown: true}
}

func (v *ShapeView) Map() *spatial.ShapeMap { return v.m }
func (v *ShapeView) Shown() bool            { return v.shown }
func (v *ShapeView) Editable() bool         { return v.editable }
func (v *ShapeView) CanUndo() bool          { return len(v.undo) > 0 }

// canEdit reports whether the map type allows editing at all.
func (v *ShapeView) canEdit() bool {
	switch v.m.Type() {
	case spatial.TypeSegment, spatial.TypeAllLine:
		return false
	default:
		return true
	}
}

func (v *ShapeView) makeShape(s geometry.Shape) int {
	ref := v.m.MakeShape(s)
	v.undo = append(v.undo, shapeEvent{kind: eventCreated, ref: ref})
	v.refreshDisplayedAttribute()
	return ref
}

func (v *ShapeView) polyClose() (int, bool) {
	ref, ok := v.m.PolyClose()
	if !ok {
		return -1, false
	}
	v.undo = append(v.undo, shapeEvent{kind: eventCreated, ref: ref})
	v.refreshDisplayedAttribute()
	return ref, true
}

func (v *ShapeView) moveShape(ref int, s geometry.Shape) bool {
	old, ok := v.m.Shape(ref)
	if !ok || !v.m.MoveShape(ref, s) {
		return false
	}
	v.undo = append(v.undo, shapeEvent{kind: eventMoved, ref: ref, shape: old})
	if v.m.IsGraph() {
		v.refreshDisplayedAttribute()
	}
	return true
}

func (v *ShapeView) removeSelected() bool {
	if len(v.sel) == 0 {
		return false
	}
	for _, ref := range v.Selection() {
		s, ok := v.m.RemoveShape(ref)
		if !ok {
			panic("document: selected shape vanished from its map")
		}
		v.undo = append(v.undo, shapeEvent{kind: eventDeleted, ref: ref, shape: s})
	}
	v.clearSelection()
	v.refreshDisplayedAttribute()
	return true
}

// undoLast reverts the most recent edit. Restored shapes come back under
// their old ref with fresh connections but without their old attributes.
func (v *ShapeView) undoLast() bool {
	if len(v.undo) == 0 {
		return false
	}
	ev := v.undo[len(v.undo)-1]
	v.undo = v.undo[:len(v.undo)-1]
	switch ev.kind {
	case eventCreated:
		if _, ok := v.m.RemoveShape(ev.ref); !ok {
			panic("document: undo of a created shape that no longer exists")
		}
		delete(v.sel, ev.ref)
	case eventDeleted:
		if !v.m.InsertShape(ev.ref, ev.shape) {
			panic("document: undo of a deleted shape whose ref is taken")
		}
	case eventMoved:
		if !v.m.MoveShape(ev.ref, ev.shape) {
			panic("document: undo of a moved shape that no longer exists")
		}
	}
	v.refreshDisplayedAttribute()
	return true
}

// LatticeView wraps a lattice map. Its undo buffer holds the batches of
// points added by fills, newest last.
type LatticeView struct {
	mapView
	m    *spatial.LatticeMap
	undo [][]int
}

func newLatticeView(l *spatial.LatticeMap) *LatticeView {
	return &LatticeView{mapView: newMapView(l), m: l}
}

func (v *LatticeView) Map() *spatial.LatticeMap { return v.m }

func (v *LatticeView) CanUndo() bool { return len(v.undo) > 0 && !v.m.IsProcessed() }

// recordFill stores the points that appeared since before as one undo batch.
func (v *LatticeView) recordFill(before map[int]bool) {
	var added []int
	for _, k := range v.m.Keys() {
		if !before[k] {
			added = append(added, k)
		}
	}
	if len(added) > 0 {
		v.undo = append(v.undo, added)
	}
}

func (v *LatticeView) keySet() map[int]bool {
	keys := v.m.Keys()
	set := make(map[int]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func (v *LatticeView) undoPoints() bool {
	if !v.CanUndo() {
		return false
	}
	batch := v.undo[len(v.undo)-1]
	v.undo = v.undo[:len(v.undo)-1]
	v.m.ClearPoints(batch)
	for _, k := range batch {
		delete(v.sel, k)
	}
	v.refreshDisplayedAttribute()
	return true
}
