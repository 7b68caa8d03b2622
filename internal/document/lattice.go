package document

import (
	"fmt"
	"slices"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

// DefaultLatticeName is used when AddNewLatticeMap is given no name.
const DefaultLatticeName = "VGA Map"

func (d *Document) latticeNameTaken(name string) bool {
	return slices.ContainsFunc(d.lattices.items, func(v *LatticeView) bool { return v.Name() == name })
}

// AddNewLatticeMap appends an empty lattice over the document region and
// shows it in front. A name already in use gets a numeric suffix.
func (d *Document) AddNewLatticeMap(name string) int {
	if name == "" {
		name = DefaultLatticeName
	}
	unique := name
	for n := 1; d.latticeNameTaken(unique); n++ {
		unique = fmt.Sprintf("%s %d", name, n)
	}
	i := d.lattices.add(newLatticeView(spatial.NewLatticeMap(unique, d.region)))
	d.state = d.state.With(viewstate.StateLatticeMaps)
	d.bringToTop(viewstate.KindVGA)
	return i
}

// SetGrid lays a fresh grid on the displayed lattice, discarding its points.
func (d *Document) SetGrid(spacing float64, offset r2.Point) bool {
	v, ok := d.lattices.current()
	if !ok {
		return false
	}
	d.state = d.state.Without(viewstate.StateLatticeMaps)
	made := v.m.SetGrid(spacing, offset)
	d.state = d.state.With(viewstate.StateLatticeMaps)
	if !made {
		return false
	}
	v.clearSelection()
	v.undo = nil
	v.InvalidateDisplayedAttribute()
	v.SetDisplayedAttribute(attributes.DisplayUninitialised)
	d.bringToTop(viewstate.KindVGA)
	return true
}

// MakePoints floods the displayed lattice from p. Visible drawing lines block
// the fill. A cancelled fill keeps whatever points it made, undoable as one
// batch.
func (d *Document) MakePoints(c comm.Communicator, p r2.Point, fill spatial.FillType) bool {
	v, ok := d.lattices.current()
	if !ok || !v.m.HasGrid() {
		return false
	}
	v.m.BlockLines(d.shownLines())
	before := v.keySet()
	made, err := v.m.MakePoints(c, p, fill)
	v.recordFill(before)
	v.InvalidateDisplayedAttribute()
	v.SetDisplayedAttribute(attributes.DisplayUninitialised)
	if err != nil {
		d.state = d.state.With(viewstate.StateLatticeMaps)
		d.log.Warn().Err(err).Str("map", v.Name()).Msg("point fill stopped early")
		return false
	}
	return made
}

// FillPoint adds or removes the single point under p.
func (d *Document) FillPoint(p r2.Point, add bool) bool {
	v, ok := d.lattices.current()
	if !ok {
		return false
	}
	before := v.keySet()
	if !v.m.FillPoint(p, add) {
		return false
	}
	if add {
		v.recordFill(before)
	} else {
		ref, _ := v.m.Pixelate(p)
		delete(v.sel, ref.Key())
	}
	v.refreshDisplayedAttribute()
	return true
}

// ClearPoints removes the selected points, or every point when nothing is
// selected.
func (d *Document) ClearPoints() bool {
	v, ok := d.lattices.current()
	if !ok || v.m.IsProcessed() {
		return false
	}
	keys := v.Selection()
	if len(keys) == 0 {
		keys = v.m.Keys()
	}
	n := v.m.ClearPoints(keys)
	v.clearSelection()
	v.refreshDisplayedAttribute()
	return n > 0
}

// MakeGraph builds the visibility graph of the displayed lattice.
func (d *Document) MakeGraph(c comm.Communicator, maxDist float64) bool {
	v, ok := d.lattices.current()
	if !ok {
		return false
	}
	d.state = d.state.With(viewstate.StateAngularGraph)
	v.m.BlockLines(d.shownLines())
	made, err := v.m.MakeGraph(c, maxDist)
	d.logOutcome("visibility graph", "vga_graph", err)
	if err != nil || !made {
		return false
	}
	v.undo = nil
	conn, _ := v.AttributeTable().ColumnIndex(spatial.ColumnConnectivity)
	v.OverrideDisplayedAttribute(attributes.DisplayUninitialised)
	v.SetDisplayedAttribute(conn)
	d.bringToTop(viewstate.KindVGA)
	return true
}

// UnmakeGraph drops the visibility graph, keeping the points.
func (d *Document) UnmakeGraph(removeAttributes bool) bool {
	v, ok := d.lattices.current()
	if !ok || !v.m.Unmake(removeAttributes) {
		return false
	}
	v.resolveDisplayedAttribute()
	d.bringToTop(viewstate.KindVGA)
	return true
}
