package document

import (
	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

// DisplayedAttribute returns the column shown on the front map, -1 when no
// map is in front.
func (d *Document) DisplayedAttribute() int {
	v, ok := d.frontView()
	if !ok {
		return attributes.DisplayRefColumn
	}
	return v.DisplayedAttribute()
}

// SetDisplayedAttribute is the front-end override: it always reaches the
// table, whatever the cache holds.
func (d *Document) SetDisplayedAttribute(col int) bool {
	v, ok := d.frontView()
	if !ok || col < attributes.DisplayRefColumn || col >= v.AttributeTable().NumColumns() {
		return false
	}
	v.OverrideDisplayedAttribute(attributes.DisplayUninitialised)
	v.SetDisplayedAttribute(col)
	return true
}

// AttributeTable returns the table of map layer of kind k, or of the
// displayed map of that kind when layer is negative.
func (d *Document) AttributeTable(k viewstate.Kind, layer int) (*attributes.Table, bool) {
	if layer < 0 {
		switch k {
		case viewstate.KindVGA:
			layer = d.lattices.displayed
		case viewstate.KindAxial:
			layer = d.graphs.displayed
		case viewstate.KindData:
			layer = d.data.displayed
		}
	}
	v, ok := d.viewAt(k, layer)
	if !ok {
		return nil, false
	}
	return v.AttributeTable(), true
}

// AddAttribute adds an empty column to the front map.
func (d *Document) AddAttribute(name string) (int, bool) {
	v, ok := d.frontView()
	if !ok || name == "" || v.AttributeTable().HasColumn(name) {
		return -1, false
	}
	return v.AttributeTable().InsertOrResetColumn(name), true
}

// RemoveAttribute drops an unlocked column of the front map and re-resolves
// the displayed attribute.
func (d *Document) RemoveAttribute(col int) bool {
	v, ok := d.frontView()
	if !ok || col < 0 || col >= v.AttributeTable().NumColumns() || v.AttributeTable().IsLocked(col) {
		return false
	}
	v.AttributeTable().RemoveColumn(col)
	v.resolveDisplayedAttribute()
	return true
}

func (d *Document) IsAttributeLocked(col int) bool {
	v, ok := d.frontView()
	return ok && v.AttributeTable().IsLocked(col)
}

// LocationValue reads the displayed attribute under p on the front map.
func (d *Document) LocationValue(p r2.Point) (float64, bool) {
	col := d.DisplayedAttribute()
	switch d.view.Front() {
	case viewstate.KindVGA:
		if v, ok := d.lattices.current(); ok && v.m.IsProcessed() {
			return v.m.LocationValue(p, col), true
		}
	case viewstate.KindAxial, viewstate.KindData:
		if v, ok := d.frontShapes(); ok {
			return v.m.LocationValue(p, col), true
		}
	}
	return attributes.NoValue, false
}

// SetSelection selects refs on the front map, replacing the selection unless
// add is set. It returns the selection size.
func (d *Document) SetSelection(refs []int, add bool) int {
	v, ok := d.frontView()
	if !ok {
		return 0
	}
	return v.selectRefs(refs, add)
}

// SelectRegion selects the shapes touching r, or the lattice points inside it.
func (d *Document) SelectRegion(r r2.Rect, add bool) int {
	switch d.view.Front() {
	case viewstate.KindVGA:
		if v, ok := d.lattices.current(); ok {
			return v.selectRefs(v.m.PointsIn(r), add)
		}
	case viewstate.KindAxial, viewstate.KindData:
		if v, ok := d.frontShapes(); ok {
			return v.selectRefs(v.m.ShapesInRegion(r), add)
		}
	}
	return 0
}

func (d *Document) ClearSelection() bool {
	v, ok := d.frontView()
	if !ok {
		return false
	}
	v.clearSelection()
	return true
}

func (d *Document) Selection() []int {
	if v, ok := d.frontView(); ok {
		return v.Selection()
	}
	return nil
}

func (d *Document) SelectionCount() int {
	if v, ok := d.frontView(); ok {
		return v.SelectionCount()
	}
	return 0
}

// SelectionAverage averages the displayed attribute over the selection.
func (d *Document) SelectionAverage() float64 {
	if v, ok := d.frontView(); ok {
		return v.selectionAverage()
	}
	return attributes.NoValue
}

// SelectionBounds is the bounding box of the selected shapes or cells.
func (d *Document) SelectionBounds() r2.Rect {
	b := r2.EmptyRect()
	switch d.view.Front() {
	case viewstate.KindVGA:
		if v, ok := d.lattices.current(); ok {
			for _, k := range v.Selection() {
				b = geometry.Union(b, v.m.CellRect(spatial.PixelFromKey(k)))
			}
		}
	case viewstate.KindAxial, viewstate.KindData:
		if v, ok := d.frontShapes(); ok {
			for _, ref := range v.Selection() {
				s, _ := v.m.Shape(ref)
				b = geometry.Union(b, s.Bounds())
			}
		}
	}
	return b
}

// SelectionToLayer copies the selected shapes of the front map, with their
// unlocked attributes, into a new data map.
func (d *Document) SelectionToLayer(name string) bool {
	v, ok := d.frontShapes()
	if !ok || !v.HasSelection() {
		return false
	}
	m := spatial.NewShapeMap(name, spatial.TypeData)
	src := v.m.AttributeTable()
	dst := m.AttributeTable()
	cols := make(map[int]int)
	for i := 0; i < src.NumColumns(); i++ {
		if !src.IsLocked(i) {
			cols[i] = dst.InsertOrResetColumn(src.ColumnName(i))
		}
	}
	for _, ref := range v.Selection() {
		s, ok := v.m.Shape(ref)
		if !ok {
			panic("document: selected shape vanished from its map")
		}
		m.AppendShapeAt(ref, s.Clone())
		for from, to := range cols {
			dst.SetValue(ref, to, src.Value(ref, from))
		}
	}
	v.clearSelection()
	d.attachDataShown(m)
	d.state = d.state.With(viewstate.StateDataMaps)
	d.bringToTop(viewstate.KindData)
	return true
}

// IsEditable reports NotEditable, EditableOff or EditableOn for the front map.
func (d *Document) IsEditable() int {
	switch d.view.Front() {
	case viewstate.KindVGA:
		if v, ok := d.lattices.current(); ok && !v.m.IsProcessed() {
			return EditableOn
		}
	case viewstate.KindAxial, viewstate.KindData:
		if v, ok := d.frontShapes(); ok && v.canEdit() {
			if v.editable {
				return EditableOn
			}
			return EditableOff
		}
	}
	return NotEditable
}

// SetEditable switches editing of the front shape map on or off.
func (d *Document) SetEditable(on bool) bool {
	v, ok := d.frontShapes()
	if !ok || !v.canEdit() {
		return false
	}
	v.editable = on
	return true
}

func (d *Document) isEditableMap() bool {
	v, ok := d.frontShapes()
	return ok && v.canEdit() && v.editable
}

// editableMap returns the front map for editing. Callers check
// isEditableMap first; reaching here otherwise is a bookkeeping bug.
func (d *Document) editableMap() *ShapeView {
	v, ok := d.frontShapes()
	if !ok || !v.canEdit() || !v.editable {
		panic("document: editing a map that is not editable")
	}
	return v
}

// MakeShape adds a line to the front map.
func (d *Document) MakeShape(l geometry.Line) bool {
	if !d.isEditableMap() {
		return false
	}
	return d.editableMap().makeShape(geometry.LineShape(l)) >= 0
}

func (d *Document) PolyBegin(l geometry.Line) bool {
	if !d.isEditableMap() {
		return false
	}
	d.editableMap().m.PolyBegin(l)
	return true
}

func (d *Document) PolyAppend(p r2.Point) bool {
	if !d.isEditableMap() {
		return false
	}
	return d.editableMap().m.PolyAppend(p)
}

// PolyClose commits the polygon under construction and returns its ref.
func (d *Document) PolyClose() (int, bool) {
	if !d.isEditableMap() {
		return -1, false
	}
	return d.editableMap().polyClose()
}

func (d *Document) PolyCancel() bool {
	if !d.isEditableMap() {
		return false
	}
	return d.editableMap().m.PolyCancel()
}

// MoveSelShape moves the single selected line to l and clears the selection.
func (d *Document) MoveSelShape(l geometry.Line) bool {
	if !d.isEditableMap() {
		return false
	}
	v := d.editableMap()
	if v.SelectionCount() != 1 {
		return false
	}
	if !v.moveShape(v.Selection()[0], geometry.LineShape(l)) {
		return false
	}
	v.clearSelection()
	return true
}

// RemoveSelected deletes the selected shapes of the front map.
func (d *Document) RemoveSelected() bool {
	if !d.isEditableMap() {
		return false
	}
	return d.editableMap().removeSelected()
}

func (d *Document) CanUndo() bool {
	switch d.view.Front() {
	case viewstate.KindVGA:
		v, ok := d.lattices.current()
		return ok && v.CanUndo()
	case viewstate.KindAxial, viewstate.KindData:
		v, ok := d.frontShapes()
		return ok && v.CanUndo()
	}
	return false
}

// Undo reverts the last edit on the front map.
func (d *Document) Undo() bool {
	switch d.view.Front() {
	case viewstate.KindVGA:
		if v, ok := d.lattices.current(); ok {
			return v.undoPoints()
		}
	case viewstate.KindAxial, viewstate.KindData:
		if v, ok := d.frontShapes(); ok {
			return v.undoLast()
		}
	}
	return false
}
