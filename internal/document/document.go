// Package document coordinates the maps of one spatial-network document: which
// collections exist, which map type is on display, and how conversions swap
// the display from one collection to another without leaving partial state
// behind when a routine is cancelled.
//
// A Document is single-owner. Callers that share one across goroutines must
// serialise every call (see internal/workspace).
package document

import (
	"errors"
	"slices"
	"time"

	"github.com/golang/geo/r2"
	"github.com/rs/zerolog"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/convert"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/isovist"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

// Converter builds new maps from existing ones. Routines must not modify their
// inputs and return comm.ErrCancelled when the communicator asks them to stop.
type Converter interface {
	DrawingToAxial(c comm.Communicator, name string, layers []*spatial.ShapeMap) (*spatial.ShapeMap, error)
	DataToAxial(c comm.Communicator, name string, src *spatial.ShapeMap, pushValues bool) (*spatial.ShapeMap, error)
	DrawingToSegment(c comm.Communicator, name string, layers []*spatial.ShapeMap) (*spatial.ShapeMap, error)
	DataToSegment(c comm.Communicator, name string, src *spatial.ShapeMap, pushValues bool) (*spatial.ShapeMap, error)
	AxialToSegment(c comm.Communicator, name string, src *spatial.ShapeMap, pushValues bool, stubRemoval float64) (*spatial.ShapeMap, error)
	DrawingToConvex(c comm.Communicator, name string, layers []*spatial.ShapeMap) (*spatial.ShapeMap, error)
	DataToConvex(c comm.Communicator, name string, src *spatial.ShapeMap, copyData bool) (*spatial.ShapeMap, error)
	DrawingToData(c comm.Communicator, name string, layers []*spatial.ShapeMap) (*spatial.ShapeMap, error)
	ToData(c comm.Communicator, name string, src *spatial.ShapeMap, copyData bool) (*spatial.ShapeMap, error)
	ToDrawing(c comm.Communicator, name string, src *spatial.ShapeMap) (*spatial.ShapeMap, error)
	AllLineMap(c comm.Communicator, layers []*spatial.ShapeMap, region r2.Rect, seed r2.Point) (*spatial.ShapeMap, error)
	FewestLineMaps(c comm.Communicator, allLine *spatial.ShapeMap) (*spatial.ShapeMap, *spatial.ShapeMap, error)
}

// Observer is told how conversions and analyses end. Outcomes are
// OutcomeOK, OutcomeCancelled and OutcomeFailed.
type Observer interface {
	ConversionFinished(kind, outcome string)
	AnalysisFinished(kind, outcome string, d time.Duration)
}

const (
	OutcomeOK        = "ok"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

type nopObserver struct{}

func (nopObserver) ConversionFinished(string, string)              {}
func (nopObserver) AnalysisFinished(string, string, time.Duration) {}

type Options struct {
	Converter Converter
	Logger    zerolog.Logger
	Observer  Observer
}

// Editability as reported by IsEditable.
const (
	NotEditable = 0
	EditableOff = 1
	EditableOn  = 2
)

// Names the document gives to maps it creates itself.
const (
	ConvertedMapsFile = "Converted Maps"
	IsovistsMapName   = "Isovists"
)

// DrawingFile is an imported drawing: a named group of layers.
type DrawingFile struct {
	name   string
	region r2.Rect
	layers []*ShapeView
}

func (f *DrawingFile) Name() string           { return f.name }
func (f *DrawingFile) Region() r2.Rect        { return f.region }
func (f *DrawingFile) Layers() []*ShapeView   { return slices.Clone(f.layers) }
func (f *DrawingFile) Layer(i int) *ShapeView { return f.layers[i] }

const noRef = -1

// collection is one of the document's ordered map lists together with the
// index of the map on display.
type collection[V interface{ clearSelection() }] struct {
	items     []V
	displayed int
}

func newCollection[V interface{ clearSelection() }]() collection[V] {
	return collection[V]{displayed: noRef}
}

func (c *collection[V]) add(v V) int {
	c.items = append(c.items, v)
	c.setDisplayed(len(c.items) - 1)
	return len(c.items) - 1
}

func (c *collection[V]) setDisplayed(i int) {
	if c.displayed != noRef && c.displayed != i {
		c.items[c.displayed].clearSelection()
	}
	c.displayed = i
}

func (c *collection[V]) current() (V, bool) {
	if c.displayed == noRef {
		var zero V
		return zero, false
	}
	return c.items[c.displayed], true
}

func (c *collection[V]) remove(i int) {
	if c.displayed != noRef {
		if len(c.items) == 1 {
			c.displayed = noRef
		} else if c.displayed != 0 && c.displayed >= i {
			c.displayed--
		}
	}
	c.items = slices.Delete(c.items, i, i+1)
}

type Document struct {
	name string
	log  zerolog.Logger
	conv Converter
	obs  Observer

	state  viewstate.State
	view   viewstate.ViewClass
	region r2.Rect

	drawings []*DrawingFile
	lattices collection[*LatticeView]
	graphs   collection[*ShapeView]
	data     collection[*ShapeView]

	// allLine is the map fewest-line derivation starts from; nil when none.
	allLine   *ShapeView
	partition isovist.Partition
}

func New(name string, opts Options) *Document {
	if opts.Converter == nil {
		opts.Converter = convert.Engine{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	return &Document{
		name:     name,
		log:      opts.Logger,
		conv:     opts.Converter,
		obs:      opts.Observer,
		region:   r2.EmptyRect(),
		lattices: newCollection[*LatticeView](),
		graphs:   newCollection[*ShapeView](),
		data:     newCollection[*ShapeView](),
	}
}

func (d *Document) Name() string                   { return d.name }
func (d *Document) SetName(name string)            { d.name = name }
func (d *Document) State() viewstate.State         { return d.state }
func (d *Document) ViewClass() viewstate.ViewClass { return d.view }
func (d *Document) Region() r2.Rect                { return d.region }

func (d *Document) DrawingFiles() []*DrawingFile              { return slices.Clone(d.drawings) }
func (d *Document) LatticeMaps() []*LatticeView               { return slices.Clone(d.lattices.items) }
func (d *Document) ShapeGraphs() []*ShapeView                 { return slices.Clone(d.graphs.items) }
func (d *Document) DataMaps() []*ShapeView                    { return slices.Clone(d.data.items) }
func (d *Document) DisplayedLatticeRef() int                  { return d.lattices.displayed }
func (d *Document) DisplayedShapeGraphRef() int               { return d.graphs.displayed }
func (d *Document) DisplayedDataMapRef() int                  { return d.data.displayed }
func (d *Document) HasAllLineMap() bool                       { return d.allLineIndex() != noRef }
func (d *Document) DisplayedLatticeMap() (*LatticeView, bool) { return d.lattices.current() }
func (d *Document) DisplayedShapeGraph() (*ShapeView, bool)   { return d.graphs.current() }
func (d *Document) DisplayedDataMap() (*ShapeView, bool)      { return d.data.current() }

// SetViewClass applies a show/hide or bring-to-top command. It fails without
// changing anything when the command's collection is empty.
func (d *Document) SetViewClass(cmd viewstate.Command) bool {
	v, ok := viewstate.Apply(d.view, d.state, cmd)
	if ok {
		d.view = v
	}
	return ok
}

func (d *Document) bringToTop(k viewstate.Kind) {
	d.SetViewClass(viewstate.Top(k))
}

// emptied hides kind k and clears its presence bit once its collection has
// no maps left. The view must change first: the command needs the bit.
func (d *Document) emptied(k viewstate.Kind) {
	if d.view.Shows(k) {
		d.SetViewClass(viewstate.Toggle(k))
	}
	d.state = d.state.Without(viewstate.PresenceBit(k))
}

func (d *Document) SetDisplayedLatticeRef(i int) bool {
	if i < 0 || i >= len(d.lattices.items) {
		return false
	}
	d.lattices.setDisplayed(i)
	return true
}

func (d *Document) SetDisplayedShapeGraphRef(i int) bool {
	if i < 0 || i >= len(d.graphs.items) {
		return false
	}
	d.graphs.setDisplayed(i)
	return true
}

func (d *Document) SetDisplayedDataMapRef(i int) bool {
	if i < 0 || i >= len(d.data.items) {
		return false
	}
	d.data.setDisplayed(i)
	return true
}

// AddDrawingFile adds an imported drawing. Empty layers are kept so layer
// indices match the source file.
func (d *Document) AddDrawingFile(name string, layers []*spatial.ShapeMap) int {
	f := &DrawingFile{name: name, region: r2.EmptyRect()}
	for _, l := range layers {
		f.addLayer(l)
	}
	d.drawings = append(d.drawings, f)
	d.region = geometry.Union(d.region, f.region)
	d.state = d.state.With(viewstate.StateDrawingData)
	d.partition.Reset()
	return len(d.drawings) - 1
}

func (f *DrawingFile) addLayer(m *spatial.ShapeMap) *ShapeView {
	v := newShapeView(m)
	v.OverrideDisplayedAttribute(attributes.DisplayUninitialised)
	v.SetDisplayedAttribute(attributes.DisplayRefColumn)
	f.layers = append(f.layers, v)
	f.region = geometry.Union(f.region, m.Region())
	return v
}

// RemoveDrawingFile drops a whole drawing file.
func (d *Document) RemoveDrawingFile(i int) bool {
	if i < 0 || i >= len(d.drawings) {
		return false
	}
	d.drawings = slices.Delete(d.drawings, i, i+1)
	if len(d.drawings) == 0 {
		d.state = d.state.Without(viewstate.StateDrawingData)
	}
	d.partition.Reset()
	return true
}

// SetLayerShown shows or hides one drawing layer. The isovist partition is
// rebuilt on next use.
func (d *Document) SetLayerShown(file, layer int, shown bool) bool {
	if file < 0 || file >= len(d.drawings) || layer < 0 || layer >= len(d.drawings[file].layers) {
		return false
	}
	d.drawings[file].layers[layer].shown = shown
	d.partition.Reset()
	return true
}

func (d *Document) shownLayers() []*ShapeView {
	var out []*ShapeView
	for _, f := range d.drawings {
		for _, l := range f.layers {
			if l.shown {
				out = append(out, l)
			}
		}
	}
	return out
}

// ShownDrawingLayers returns the maps of every visible drawing layer.
func (d *Document) ShownDrawingLayers() []*spatial.ShapeMap {
	var out []*spatial.ShapeMap
	for _, l := range d.shownLayers() {
		out = append(out, l.m)
	}
	return out
}

func (d *Document) HasVisibleDrawingLayers() bool { return len(d.shownLayers()) > 0 }

// HasVisibleDrawingShapes reports whether a visible layer holds any shape.
func (d *Document) HasVisibleDrawingShapes() bool {
	for _, l := range d.shownLayers() {
		if l.m.NumShapes() > 0 {
			return true
		}
	}
	return false
}

func (d *Document) shownLines() []geometry.Line {
	var out []geometry.Line
	for _, l := range d.shownLayers() {
		for _, ref := range l.m.Refs() {
			s, _ := l.m.Shape(ref)
			out = append(out, s.Lines()...)
		}
	}
	return out
}

func (d *Document) hideShownLayers(layers []*ShapeView) {
	for _, l := range layers {
		l.shown = false
	}
	if len(layers) > 0 {
		d.partition.Reset()
	}
}

// AddShapeGraph appends an empty shape graph with the default locked columns
// and brings it to the front.
func (d *Document) AddShapeGraph(name string, t spatial.MapType) int {
	m := spatial.NewShapeMap(name, t)
	conn := m.AttributeTable().InsertOrResetLockedColumn(spatial.ColumnConnectivity)
	if t == spatial.TypeAxial || t == spatial.TypeAllLine {
		m.AttributeTable().InsertOrResetLockedColumn(spatial.ColumnLineLength)
	}
	i := d.attachGraph(m)
	d.graphs.items[i].SetDisplayedAttribute(conn)
	d.state = d.state.With(viewstate.StateShapeGraphs)
	d.bringToTop(viewstate.KindAxial)
	return i
}

// AddDataMap appends an empty data map and brings it to the front.
func (d *Document) AddDataMap(name string) int {
	i := d.attachData(spatial.NewShapeMap(name, spatial.TypeData))
	d.data.items[i].SetDisplayedAttribute(attributes.DisplayRefColumn)
	d.state = d.state.With(viewstate.StateDataMaps)
	d.bringToTop(viewstate.KindData)
	return i
}

func (d *Document) attachGraph(m *spatial.ShapeMap) int {
	v := newShapeView(m)
	v.editable = m.Type() == spatial.TypeAxial || m.Type() == spatial.TypeConvex
	return d.graphs.add(v)
}

func (d *Document) attachData(m *spatial.ShapeMap) int {
	v := newShapeView(m)
	v.editable = true
	return d.data.add(v)
}

func (d *Document) allLineIndex() int {
	if d.allLine == nil {
		return noRef
	}
	return slices.Index(d.graphs.items, d.allLine)
}

func (d *Document) removeLattice(i int) {
	d.lattices.remove(i)
	if len(d.lattices.items) == 0 {
		d.emptied(viewstate.KindVGA)
	}
}

func (d *Document) removeGraph(i int) {
	if d.graphs.items[i] == d.allLine {
		d.allLine = nil
	}
	d.graphs.remove(i)
	if len(d.graphs.items) == 0 {
		d.emptied(viewstate.KindAxial)
	}
}

func (d *Document) removeData(i int) {
	d.data.remove(i)
	if len(d.data.items) == 0 {
		d.emptied(viewstate.KindData)
	}
}

// RemoveMap removes map i of kind k.
func (d *Document) RemoveMap(k viewstate.Kind, i int) bool {
	switch k {
	case viewstate.KindVGA:
		if i < 0 || i >= len(d.lattices.items) {
			return false
		}
		d.removeLattice(i)
	case viewstate.KindAxial:
		if i < 0 || i >= len(d.graphs.items) {
			return false
		}
		d.removeGraph(i)
	case viewstate.KindData:
		if i < 0 || i >= len(d.data.items) {
			return false
		}
		d.removeData(i)
	default:
		return false
	}
	return true
}

// RemoveDisplayedMap removes the map on display in front.
func (d *Document) RemoveDisplayedMap() bool {
	k := d.view.Front()
	i, ok := d.DisplayedMapRef()
	if !ok {
		return false
	}
	return d.RemoveMap(k, i)
}

// DisplayedMapRef returns the index of the front map in its collection.
func (d *Document) DisplayedMapRef() (int, bool) {
	var i int
	switch d.view.Front() {
	case viewstate.KindVGA:
		i = d.lattices.displayed
	case viewstate.KindAxial:
		i = d.graphs.displayed
	case viewstate.KindData:
		i = d.data.displayed
	default:
		return noRef, false
	}
	return i, i != noRef
}

// DisplayedMapType reports the type of the front map, TypeEmpty when none.
func (d *Document) DisplayedMapType() spatial.MapType {
	switch d.view.Front() {
	case viewstate.KindVGA:
		if _, ok := d.lattices.current(); ok {
			return spatial.TypeLattice
		}
	case viewstate.KindAxial:
		if v, ok := d.graphs.current(); ok {
			return v.m.Type()
		}
	case viewstate.KindData:
		if v, ok := d.data.current(); ok {
			return v.m.Type()
		}
	}
	return spatial.TypeEmpty
}

// frontView returns the shared view state of the front map.
func (d *Document) frontView() (*mapView, bool) {
	switch d.view.Front() {
	case viewstate.KindVGA:
		if v, ok := d.lattices.current(); ok {
			return &v.mapView, true
		}
	case viewstate.KindAxial:
		if v, ok := d.graphs.current(); ok {
			return &v.mapView, true
		}
	case viewstate.KindData:
		if v, ok := d.data.current(); ok {
			return &v.mapView, true
		}
	}
	return nil, false
}

// frontShapes returns the front map when it is a shape graph or data map.
func (d *Document) frontShapes() (*ShapeView, bool) {
	switch d.view.Front() {
	case viewstate.KindAxial:
		return d.graphs.current()
	case viewstate.KindData:
		return d.data.current()
	}
	return nil, false
}

// BoundingBox is the drawing region, falling back to the displayed shape
// graph and then the displayed data map.
func (d *Document) BoundingBox() r2.Rect {
	b := d.region
	if b.IsEmpty() && d.state.Has(viewstate.StateShapeGraphs) {
		if v, ok := d.graphs.current(); ok {
			b = v.Region()
		}
	}
	if b.IsEmpty() && d.state.Has(viewstate.StateDataMaps) {
		if v, ok := d.data.current(); ok {
			b = v.Region()
		}
	}
	return b
}

// outcomeOf classifies a routine error for logs and the observer.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, comm.ErrCancelled):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

func (d *Document) logOutcome(event, kind string, err error) {
	switch outcomeOf(err) {
	case OutcomeOK:
		d.log.Info().Str("kind", kind).Msg(event)
	case OutcomeCancelled:
		d.log.Warn().Str("kind", kind).Msg(event + " cancelled")
	default:
		if errors.Is(err, convert.ErrNothingToConvert) {
			d.log.Info().Str("kind", kind).Err(err).Msg(event + " skipped")
			return
		}
		d.log.Error().Str("kind", kind).Err(err).Msg(event + " failed")
	}
}
