package document

import (
	"slices"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/isovist"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

// Results of MakeIsovist and MakeIsovistPath.
const (
	IsovistNone = iota
	IsovistMade
	IsovistMadeNewLayer
)

// buildPartition builds the isovist partition from the visible drawing lines,
// or reuses the one already built.
func (d *Document) buildPartition(c comm.Communicator) bool {
	ok, err := d.partition.Build(c, d.shownLines())
	if err != nil {
		d.log.Warn().Err(err).Msg("isovist partition not built")
		return false
	}
	return ok
}

// isovistLayer returns the data map isovists go to, creating it when
// missing. created reports whether it had to.
func (d *Document) isovistLayer() (v *ShapeView, created bool) {
	i := slices.IndexFunc(d.data.items, func(v *ShapeView) bool { return v.Name() == IsovistsMapName })
	if i >= 0 {
		d.data.setDisplayed(i)
		return d.data.items[i], false
	}
	i = d.attachData(spatial.NewShapeMap(IsovistsMapName, spatial.TypeData))
	d.state = d.state.With(viewstate.StateDataMaps)
	return d.data.items[i], true
}

func addIsovist(v *ShapeView, iso isovist.Isovist) {
	ref := v.m.MakeShape(iso.Shape())
	iso.WriteAttributes(v.AttributeTable(), ref)
}

func showIsovists(v *ShapeView) {
	v.OverrideDisplayedAttribute(attributes.DisplayUninitialised)
	v.SetDisplayedAttribute(attributes.DisplayRefColumn)
}

// MakeIsovist casts an isovist from p between start and end (radians; equal
// angles give a full circle) into the "Isovists" data map and shows it in
// front. It returns IsovistNone when there is nothing to cast against.
func (d *Document) MakeIsovist(c comm.Communicator, p r2.Point, start, end float64) int {
	if !d.buildPartition(c) {
		return IsovistNone
	}
	d.view = d.view.Hide(viewstate.KindData)
	iso := d.partition.Make(p, d.region, start, end)
	v, created := d.isovistLayer()
	addIsovist(v, iso)
	showIsovists(v)
	d.bringToTop(viewstate.KindData)
	if created {
		return IsovistMadeNewLayer
	}
	return IsovistMade
}

// MakeIsovistPath casts an isovist from the start of every selected line
// segment of the front map, looking along the segment with field of view
// fov.
func (d *Document) MakeIsovistPath(c comm.Communicator, fov float64) int {
	src, ok := d.frontShapes()
	if !ok || !src.HasSelection() {
		return IsovistNone
	}
	if !d.buildPartition(c) {
		return IsovistNone
	}
	made := IsovistNone
	var dst *ShapeView
	for _, ref := range src.Selection() {
		s, _ := src.m.Shape(ref)
		if s.Kind != geometry.KindLine && s.Kind != geometry.KindPolyline {
			continue
		}
		if dst == nil {
			var created bool
			dst, created = d.isovistLayer()
			made = IsovistMade
			if created {
				made = IsovistMadeNewLayer
			}
		}
		for _, l := range s.Lines() {
			start, end := isovist.FieldOfView(l.Vector(), fov)
			addIsovist(dst, d.partition.Make(l.Start, d.region, start, end))
		}
	}
	if dst != nil {
		showIsovists(dst)
	}
	return made
}
