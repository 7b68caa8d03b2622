package document

import (
	"errors"
	"fmt"
	"slices"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/pushvalues"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

var (
	ErrPushSelf  = errors.New("cannot push values from a map onto itself")
	ErrPushRoute = errors.New("cannot push values between these map types")
	ErrNoMap     = errors.New("no such map")
	ErrNoColumn  = errors.New("no such column")
)

// PushRequest moves column ColIn (the ref column when nil) of one map into
// column ColOut of another.
type PushRequest struct {
	SourceType  viewstate.Kind
	SourceLayer int
	DestType    viewstate.Kind
	DestLayer   int
	ColIn       *int
	ColOut      int
	Func        pushvalues.Func
	CountColumn bool
}

var pushRoutes = map[viewstate.Kind][]viewstate.Kind{
	viewstate.KindVGA:   {viewstate.KindData, viewstate.KindAxial},
	viewstate.KindData:  {viewstate.KindVGA, viewstate.KindAxial, viewstate.KindData},
	viewstate.KindAxial: {viewstate.KindVGA, viewstate.KindData, viewstate.KindAxial},
}

func checkRoute(src, dst viewstate.Kind, srcLayer, dstLayer int) error {
	if !slices.Contains(pushRoutes[src], dst) {
		return fmt.Errorf("%w: %s to %s", ErrPushRoute, src, dst)
	}
	if src == dst && srcLayer == dstLayer {
		return ErrPushSelf
	}
	return nil
}

// viewAt returns the view state and table of map layer of kind k.
func (d *Document) viewAt(k viewstate.Kind, layer int) (*mapView, bool) {
	switch k {
	case viewstate.KindVGA:
		if layer >= 0 && layer < len(d.lattices.items) {
			return &d.lattices.items[layer].mapView, true
		}
	case viewstate.KindAxial:
		if layer >= 0 && layer < len(d.graphs.items) {
			return &d.graphs.items[layer].mapView, true
		}
	case viewstate.KindData:
		if layer >= 0 && layer < len(d.data.items) {
			return &d.data.items[layer].mapView, true
		}
	}
	return nil, false
}

// PushValues copies values between maps, aggregating with req.Func where
// several source objects meet one destination object. Every check runs
// before any column is touched. The destination then displays ColOut.
func (d *Document) PushValues(req PushRequest) error {
	if err := checkRoute(req.SourceType, req.DestType, req.SourceLayer, req.DestLayer); err != nil {
		return err
	}
	src, ok := d.viewAt(req.SourceType, req.SourceLayer)
	if !ok {
		return fmt.Errorf("%w: %s layer %d", ErrNoMap, req.SourceType, req.SourceLayer)
	}
	dst, ok := d.viewAt(req.DestType, req.DestLayer)
	if !ok {
		return fmt.Errorf("%w: %s layer %d", ErrNoMap, req.DestType, req.DestLayer)
	}
	colIn := attributes.DisplayRefColumn
	if req.ColIn != nil {
		colIn = *req.ColIn
	}
	if colIn < attributes.DisplayRefColumn || colIn >= src.AttributeTable().NumColumns() {
		return fmt.Errorf("%w: source column %d", ErrNoColumn, colIn)
	}
	if req.ColOut < 0 || req.ColOut >= dst.AttributeTable().NumColumns() {
		return fmt.Errorf("%w: destination column %d", ErrNoColumn, req.ColOut)
	}

	countCol := pushvalues.NoCount
	if req.CountColumn {
		countCol = dst.AttributeTable().InsertOrResetColumn(spatial.ColumnObjectCount)
	}

	switch {
	case req.SourceType == viewstate.KindVGA:
		pushvalues.PointToShape(d.lattices.items[req.SourceLayer].m, colIn, d.shapeMapAt(req.DestType, req.DestLayer), req.ColOut, countCol, req.Func)
	case req.DestType == viewstate.KindVGA:
		pushvalues.ShapeToPoint(d.shapeMapAt(req.SourceType, req.SourceLayer), colIn, d.lattices.items[req.DestLayer].m, req.ColOut, countCol, req.Func)
	default:
		pushvalues.ShapeToShape(d.shapeMapAt(req.SourceType, req.SourceLayer), colIn, d.shapeMapAt(req.DestType, req.DestLayer), req.ColOut, countCol, req.Func)
	}

	dst.OverrideDisplayedAttribute(attributes.DisplayUninitialised)
	dst.SetDisplayedAttribute(req.ColOut)
	d.log.Info().
		Str("from", req.SourceType.String()).
		Str("to", req.DestType.String()).
		Str("func", req.Func.String()).
		Msg("values pushed")
	return nil
}

func (d *Document) shapeMapAt(k viewstate.Kind, layer int) *spatial.ShapeMap {
	if k == viewstate.KindAxial {
		return d.graphs.items[layer].m
	}
	return d.data.items[layer].m
}

// PushValuesToLayer pushes the displayed attribute of the front map into a
// new column of the same name on dest. The name gets a "Copied " prefix when
// it would clash with a locked column or the object count.
func (d *Document) PushValuesToLayer(dest viewstate.Kind, destLayer int, fn pushvalues.Func, countCol bool) error {
	srcKind := d.view.Front()
	srcLayer, ok := d.DisplayedMapRef()
	if !ok {
		return fmt.Errorf("%w: nothing on display", ErrNoMap)
	}
	if err := checkRoute(srcKind, dest, srcLayer, destLayer); err != nil {
		return err
	}
	src, _ := d.viewAt(srcKind, srcLayer)
	dst, ok := d.viewAt(dest, destLayer)
	if !ok {
		return fmt.Errorf("%w: %s layer %d", ErrNoMap, dest, destLayer)
	}

	colIn := src.DisplayedAttribute()
	if colIn < attributes.DisplayRefColumn || colIn >= src.AttributeTable().NumColumns() {
		colIn = attributes.DisplayRefColumn
	}
	name := src.AttributeTable().ColumnName(colIn)
	out := dst.AttributeTable()
	if i, ok := out.ColumnIndex(name); (ok && out.IsLocked(i)) || name == spatial.ColumnObjectCount {
		name = "Copied " + name
	}
	colOut := out.InsertOrResetColumn(name)

	return d.PushValues(PushRequest{
		SourceType:  srcKind,
		SourceLayer: srcLayer,
		DestType:    dest,
		DestLayer:   destLayer,
		ColIn:       &colIn,
		ColOut:      colOut,
		Func:        fn,
		CountColumn: countCol,
	})
}
