package document

import (
	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/convert"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

var _ Converter = convert.Engine{}

// conversion describes one map-producing conversion. run builds the new map
// without touching the document; attach adds it and picks its display;
// after runs once the old state is back, before the destination is shown.
type conversion struct {
	kind   string
	dest   viewstate.Kind
	run    func() (*spatial.ShapeMap, error)
	attach func(m *spatial.ShapeMap)
	after  func()
}

// apply runs c transactionally: nothing is added to the document unless the
// routine completes, and the state bits are restored either way.
func (d *Document) apply(c conversion) bool {
	old := d.state
	presence := viewstate.PresenceBit(c.dest)
	d.state = d.state.Without(presence)

	m, err := c.run()
	d.logOutcome("conversion", c.kind, err)
	d.obs.ConversionFinished(c.kind, outcomeOf(err))
	if err != nil {
		d.state = old
		return false
	}

	c.attach(m)
	d.state = old
	if c.after != nil {
		c.after()
	}
	d.state = d.state.With(presence)
	d.bringToTop(c.dest)
	return true
}

// showConnectivity makes the locked connectivity column the displayed one.
func showConnectivity(v *ShapeView) {
	col := v.m.AttributeTable().GetOrInsertLockedColumn(spatial.ColumnConnectivity)
	v.OverrideDisplayedAttribute(attributes.DisplayUninitialised)
	v.SetDisplayedAttribute(col)
}

func (d *Document) attachGraphShown(m *spatial.ShapeMap) *ShapeView {
	v := d.graphs.items[d.attachGraph(m)]
	showConnectivity(v)
	return v
}

func (d *Document) attachDataShown(m *spatial.ShapeMap) *ShapeView {
	v := d.data.items[d.attachData(m)]
	col := attributes.DisplayRefColumn
	if m.AttributeTable().NumColumns() > 0 {
		col = 0
	}
	v.OverrideDisplayedAttribute(attributes.DisplayUninitialised)
	v.SetDisplayedAttribute(col)
	return v
}

func layerMaps(layers []*ShapeView) []*spatial.ShapeMap {
	out := make([]*spatial.ShapeMap, len(layers))
	for i, l := range layers {
		out[i] = l.m
	}
	return out
}

// fromDrawing is the common form of the drawing conversions: the visible
// layers feed the routine and are hidden once the new map exists.
func (d *Document) fromDrawing(kind string, dest viewstate.Kind, run func([]*spatial.ShapeMap) (*spatial.ShapeMap, error)) bool {
	layers := d.shownLayers()
	if len(layers) == 0 {
		return false
	}
	attach := func(m *spatial.ShapeMap) { d.attachGraphShown(m) }
	if dest == viewstate.KindData {
		attach = func(m *spatial.ShapeMap) { d.attachDataShown(m) }
	}
	return d.apply(conversion{
		kind:   kind,
		dest:   dest,
		run:    func() (*spatial.ShapeMap, error) { return run(layerMaps(layers)) },
		attach: attach,
		after:  func() { d.hideShownLayers(layers) },
	})
}

// fromDisplayedData is the common form of the data-map conversions into shape
// graphs. The source is dropped afterwards unless keepOriginal is set.
func (d *Document) fromDisplayedData(kind string, keepOriginal bool, run func(src *spatial.ShapeMap) (*spatial.ShapeMap, error)) bool {
	src, ok := d.data.current()
	if !ok {
		return false
	}
	srcRef := d.data.displayed
	return d.apply(conversion{
		kind:   kind,
		dest:   viewstate.KindAxial,
		run:    func() (*spatial.ShapeMap, error) { return run(src.m) },
		attach: func(m *spatial.ShapeMap) { d.attachGraphShown(m) },
		after: func() {
			if !keepOriginal {
				d.removeData(srcRef)
			}
		},
	})
}

// ConvertDrawingToAxial turns the visible drawing lines into an axial map.
func (d *Document) ConvertDrawingToAxial(c comm.Communicator, name string) bool {
	return d.fromDrawing("drawing_to_axial", viewstate.KindAxial, func(layers []*spatial.ShapeMap) (*spatial.ShapeMap, error) {
		return d.conv.DrawingToAxial(c, name, layers)
	})
}

func (d *Document) ConvertDrawingToSegment(c comm.Communicator, name string) bool {
	return d.fromDrawing("drawing_to_segment", viewstate.KindAxial, func(layers []*spatial.ShapeMap) (*spatial.ShapeMap, error) {
		return d.conv.DrawingToSegment(c, name, layers)
	})
}

// ConvertDataToAxial converts the displayed data map.
func (d *Document) ConvertDataToAxial(c comm.Communicator, name string, keepOriginal, pushValues bool) bool {
	return d.fromDisplayedData("data_to_axial", keepOriginal, func(src *spatial.ShapeMap) (*spatial.ShapeMap, error) {
		return d.conv.DataToAxial(c, name, src, pushValues)
	})
}

func (d *Document) ConvertDataToSegment(c comm.Communicator, name string, keepOriginal, pushValues bool) bool {
	return d.fromDisplayedData("data_to_segment", keepOriginal, func(src *spatial.ShapeMap) (*spatial.ShapeMap, error) {
		return d.conv.DataToSegment(c, name, src, pushValues)
	})
}

// ConvertToConvex builds a convex map from the visible drawing layers
// (source TypeDrawing) or from the displayed data map (source TypeData).
func (d *Document) ConvertToConvex(c comm.Communicator, name string, keepOriginal bool, source spatial.MapType, copyData bool) bool {
	switch source {
	case spatial.TypeDrawing:
		return d.fromDrawing("drawing_to_convex", viewstate.KindAxial, func(layers []*spatial.ShapeMap) (*spatial.ShapeMap, error) {
			return d.conv.DrawingToConvex(c, name, layers)
		})
	case spatial.TypeData:
		return d.fromDisplayedData("data_to_convex", keepOriginal, func(src *spatial.ShapeMap) (*spatial.ShapeMap, error) {
			return d.conv.DataToConvex(c, name, src, copyData)
		})
	default:
		return false
	}
}

// ConvertAxialToSegment splits the displayed shape graph into segments,
// trimming stubs shorter than stubRemoval of their line.
func (d *Document) ConvertAxialToSegment(c comm.Communicator, name string, keepOriginal, pushValues bool, stubRemoval float64) bool {
	src, ok := d.graphs.current()
	if !ok {
		return false
	}
	srcRef := d.graphs.displayed
	return d.apply(conversion{
		kind: "axial_to_segment",
		dest: viewstate.KindAxial,
		run: func() (*spatial.ShapeMap, error) {
			return d.conv.AxialToSegment(c, name, src.m, pushValues, stubRemoval)
		},
		attach: func(m *spatial.ShapeMap) { d.attachGraphShown(m) },
		after: func() {
			if !keepOriginal {
				d.removeGraph(srcRef)
			}
		},
	})
}

// ConvertToData copies the visible drawing layers (source TypeDrawing) or the
// displayed shape graph into a new data map.
func (d *Document) ConvertToData(c comm.Communicator, name string, keepOriginal bool, source spatial.MapType, copyData bool) bool {
	if source == spatial.TypeDrawing {
		return d.fromDrawing("drawing_to_data", viewstate.KindData, func(layers []*spatial.ShapeMap) (*spatial.ShapeMap, error) {
			return d.conv.DrawingToData(c, name, layers)
		})
	}
	src, ok := d.graphs.current()
	if !ok {
		return false
	}
	srcRef := d.graphs.displayed
	return d.apply(conversion{
		kind: "graph_to_data",
		dest: viewstate.KindData,
		run: func() (*spatial.ShapeMap, error) {
			return d.conv.ToData(c, name, src.m, copyData)
		},
		attach: func(m *spatial.ShapeMap) { d.attachDataShown(m) },
		after: func() {
			if !keepOriginal {
				d.removeGraph(srcRef)
			}
		},
	})
}

// ConvertToDrawing copies the geometry of the displayed data map (or shape
// graph) into a new layer of the "Converted Maps" drawing file.
func (d *Document) ConvertToDrawing(c comm.Communicator, name string, fromDisplayedDataMap bool) bool {
	src, ok := d.graphs.current()
	if fromDisplayedDataMap {
		src, ok = d.data.current()
	}
	if !ok {
		return false
	}
	old := d.state
	d.state = d.state.Without(viewstate.StateDrawingData)
	m, err := d.conv.ToDrawing(c, name, src.m)
	d.logOutcome("conversion", "to_drawing", err)
	d.obs.ConversionFinished("to_drawing", outcomeOf(err))
	d.state = old
	if err != nil {
		return false
	}

	var file *DrawingFile
	for _, f := range d.drawings {
		if f.name == ConvertedMapsFile {
			file = f
			break
		}
	}
	if file == nil {
		file = &DrawingFile{name: ConvertedMapsFile, region: r2.EmptyRect()}
		d.drawings = append(d.drawings, file)
	}
	file.addLayer(m)
	d.region = geometry.Union(d.region, file.region)
	d.state = d.state.With(viewstate.StateDrawingData)
	d.partition.Reset()
	return true
}

// MakeAllLineMap replaces the all-line map with one generated from the
// visible drawing layers, seeded at seed.
func (d *Document) MakeAllLineMap(c comm.Communicator, seed r2.Point) bool {
	layers := d.ShownDrawingLayers()
	if len(layers) == 0 {
		return false
	}
	oldState, oldView := d.state, d.view
	d.state = d.state.Without(viewstate.StateShapeGraphs)
	d.view = d.view.Hide(viewstate.KindAxial)

	m, err := d.conv.AllLineMap(c, layers, d.region, seed)
	d.logOutcome("conversion", "all_line", err)
	d.obs.ConversionFinished("all_line", outcomeOf(err))
	if err != nil {
		d.state, d.view = oldState, oldView
		return false
	}

	if i := d.allLineIndex(); i != noRef {
		d.graphs.remove(i)
	}
	d.allLine = d.attachGraphShown(m)
	d.state = oldState.With(viewstate.StateShapeGraphs)
	d.bringToTop(viewstate.KindAxial)
	return true
}

var fewestLineNames = map[string]bool{
	convert.FewestLineSubsetsName: true,
	convert.FewestLineMinimalName: true,
	"Fewest Line Map (Subsets)":   true,
	"Fewest Line Map (Minimal)":   true,
}

// MakeFewestLineMap derives the subsets and minimal fewest-line maps from the
// all-line map. With replace, earlier fewest-line maps are removed first.
func (d *Document) MakeFewestLineMap(c comm.Communicator, replace bool) bool {
	if !d.HasAllLineMap() {
		return false
	}
	old := d.state
	d.state = d.state.Without(viewstate.StateShapeGraphs)

	subsets, minimal, err := d.conv.FewestLineMaps(c, d.allLine.m)
	d.logOutcome("conversion", "fewest_line", err)
	d.obs.ConversionFinished("fewest_line", outcomeOf(err))
	if err != nil {
		d.state = old
		return false
	}

	if replace {
		for i := len(d.graphs.items) - 1; i >= 0; i-- {
			if fewestLineNames[d.graphs.items[i].Name()] {
				d.graphs.remove(i)
			}
		}
	}
	d.attachGraphShown(subsets)
	d.attachGraphShown(minimal)
	d.graphs.setDisplayed(len(d.graphs.items) - 2)
	d.state = old.With(viewstate.StateShapeGraphs)
	d.bringToTop(viewstate.KindAxial)
	return true
}
