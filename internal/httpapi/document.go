package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/document"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/pushvalues"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
	"spatialdoc/core-go/internal/workspace"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p point) r2() r2.Point { return r2.Point{X: p.X, Y: p.Y} }

func toPoint(p r2.Point) point { return point{X: p.X, Y: p.Y} }

type rect struct {
	Min point `json:"min"`
	Max point `json:"max"`
}

func (r rect) r2() r2.Rect { return r2.RectFromPoints(r.Min.r2(), r.Max.r2()) }

func toRect(r r2.Rect) *rect {
	if r.IsEmpty() {
		return nil
	}
	return &rect{Min: toPoint(r.Lo()), Max: toPoint(r.Hi())}
}

type line struct {
	Start point `json:"start"`
	End   point `json:"end"`
}

func (l line) geometry() geometry.Line { return geometry.Line{Start: l.Start.r2(), End: l.End.r2()} }

type mapSummary struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Size      int    `json:"size"`
	Displayed bool   `json:"displayed"`
	Shown     *bool  `json:"shown,omitempty"`
	Processed *bool  `json:"processed,omitempty"`
}

type drawingSummary struct {
	Index  int          `json:"index"`
	Name   string       `json:"name"`
	Region *rect        `json:"region,omitempty"`
	Layers []mapSummary `json:"layers"`
}

type documentSummary struct {
	Name               string           `json:"name"`
	State              string           `json:"state"`
	View               string           `json:"view"`
	Front              string           `json:"front"`
	DisplayedType      string           `json:"displayed_type"`
	Region             *rect            `json:"region,omitempty"`
	BoundingBox        *rect            `json:"bounding_box,omitempty"`
	Drawings           []drawingSummary `json:"drawings"`
	Lattices           []mapSummary     `json:"lattices"`
	ShapeGraphs        []mapSummary     `json:"shape_graphs"`
	DataMaps           []mapSummary     `json:"data_maps"`
	DisplayedAttribute int              `json:"displayed_attribute"`
	Selection          int              `json:"selection"`
	Editable           int              `json:"editable"`
	CanUndo            bool             `json:"can_undo"`
	HasAllLineMap      bool             `json:"has_all_line_map"`
}

func shapeSummaries(views []*document.ShapeView, displayed int) []mapSummary {
	out := make([]mapSummary, 0, len(views))
	for i, v := range views {
		out = append(out, mapSummary{
			Index:     i,
			Name:      v.Name(),
			Type:      v.Map().Type().String(),
			Size:      v.Map().NumShapes(),
			Displayed: i == displayed,
		})
	}
	return out
}

func summarize(d *document.Document) documentSummary {
	s := documentSummary{
		Name:          d.Name(),
		State:         d.State().String(),
		View:          d.ViewClass().String(),
		Front:         d.ViewClass().Front().String(),
		DisplayedType: d.DisplayedMapType().String(),
		Region:        toRect(d.Region()),
		BoundingBox:   toRect(d.BoundingBox()),
		Drawings:      []drawingSummary{},
		Lattices:      []mapSummary{},
		ShapeGraphs:   shapeSummaries(d.ShapeGraphs(), d.DisplayedShapeGraphRef()),
		DataMaps:      shapeSummaries(d.DataMaps(), d.DisplayedDataMapRef()),
		Selection:     d.SelectionCount(),
		Editable:      d.IsEditable(),
		CanUndo:       d.CanUndo(),
		HasAllLineMap: d.HasAllLineMap(),
	}
	s.DisplayedAttribute = d.DisplayedAttribute()
	for i, f := range d.DrawingFiles() {
		ds := drawingSummary{Index: i, Name: f.Name(), Region: toRect(f.Region()), Layers: []mapSummary{}}
		for j, l := range f.Layers() {
			shown := l.Shown()
			ds.Layers = append(ds.Layers, mapSummary{
				Index: j,
				Name:  l.Name(),
				Type:  l.Map().Type().String(),
				Size:  l.Map().NumShapes(),
				Shown: &shown,
			})
		}
		s.Drawings = append(s.Drawings, ds)
	}
	for i, l := range d.LatticeMaps() {
		processed := l.Map().IsProcessed()
		s.Lattices = append(s.Lattices, mapSummary{
			Index:     i,
			Name:      l.Name(),
			Type:      spatial.TypeLattice.String(),
			Size:      l.Map().NumPoints(),
			Displayed: i == d.DisplayedLatticeRef(),
			Processed: &processed,
		})
	}
	return s
}

// respond runs fn under the document lock and replies with the summary, or a
// conflict carrying refusal when fn returns false.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, refusal string, fn func(d *document.Document) bool) {
	var (
		ok  bool
		sum documentSummary
	)
	if err := h.ws.Do(r.Context(), func(d *document.Document) error {
		ok = fn(d)
		sum = summarize(d)
		return nil
	}); err != nil {
		h.writeBusy(w, err)
		return
	}
	if !ok {
		h.writeRefused(w, refusal)
		return
	}
	h.writeJSON(w, status, sum)
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, "", func(*document.Document) bool { return true })
}

type resetRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleResetDocument(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Untitled"
	}
	if err := h.ws.Reset(r.Context(), name); err != nil {
		h.writeBusy(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, "", func(*document.Document) bool { return true })
}

type viewRequest struct {
	Command string `json:"command"`
}

func (h *Handler) handleSetView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	cmd, ok := viewstate.ParseCommand(req.Command)
	if !ok {
		h.writeValidation(w, fmt.Sprintf("unknown view command %q", req.Command), nil)
		return
	}
	h.respond(w, r, http.StatusOK, "no maps of that kind", func(d *document.Document) bool {
		return d.SetViewClass(cmd)
	})
}

type displayedMapRequest struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
}

func (h *Handler) handleSetDisplayedMap(w http.ResponseWriter, r *http.Request) {
	var req displayedMapRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	k, ok := viewstate.ParseKind(req.Kind)
	if !ok {
		h.writeValidation(w, fmt.Sprintf("unknown map kind %q", req.Kind), nil)
		return
	}
	h.respond(w, r, http.StatusOK, "no such map", func(d *document.Document) bool {
		var set bool
		switch k {
		case viewstate.KindVGA:
			set = d.SetDisplayedLatticeRef(req.Index)
		case viewstate.KindAxial:
			set = d.SetDisplayedShapeGraphRef(req.Index)
		case viewstate.KindData:
			set = d.SetDisplayedDataMapRef(req.Index)
		}
		return set && d.SetViewClass(viewstate.Top(k))
	})
}

func (h *Handler) handleRemoveMap(w http.ResponseWriter, r *http.Request) {
	k, ok := viewstate.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		h.writeValidation(w, "unknown map kind", nil)
		return
	}
	i, err := intParam(r, "index")
	if err != nil {
		h.writeValidation(w, "index must be an integer", err)
		return
	}
	h.respond(w, r, http.StatusOK, "no such map", func(d *document.Document) bool {
		return d.RemoveMap(k, i)
	})
}

type importRequest struct {
	URL string `json:"url"`
}

func (h *Handler) handleImportDrawing(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		h.writeValidation(w, "url is required", nil)
		return
	}
	if _, err := h.ws.Import(r.Context(), req.URL); err != nil {
		if errors.Is(err, workspace.ErrBusy) {
			h.writeBusy(w, err)
			return
		}
		h.log.Warn().Err(err).Str("url", req.URL).Msg("drawing import failed")
		h.writeError(w, http.StatusUnprocessableEntity, "import_failed", "failed to import drawing", map[string]any{"error": err.Error()})
		return
	}
	h.respond(w, r, http.StatusCreated, "", func(*document.Document) bool { return true })
}

func (h *Handler) handleRemoveDrawing(w http.ResponseWriter, r *http.Request) {
	i, err := intParam(r, "file")
	if err != nil {
		h.writeValidation(w, "file must be an integer", err)
		return
	}
	h.respond(w, r, http.StatusOK, "no such drawing", func(d *document.Document) bool {
		return d.RemoveDrawingFile(i)
	})
}

type layerRequest struct {
	Shown bool `json:"shown"`
}

func (h *Handler) handleSetLayerShown(w http.ResponseWriter, r *http.Request) {
	file, err := intParam(r, "file")
	if err != nil {
		h.writeValidation(w, "file must be an integer", err)
		return
	}
	layer, err := intParam(r, "layer")
	if err != nil {
		h.writeValidation(w, "layer must be an integer", err)
		return
	}
	var req layerRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	h.respond(w, r, http.StatusOK, "no such layer", func(d *document.Document) bool {
		return d.SetLayerShown(file, layer, req.Shown)
	})
}

type shapeItem struct {
	File  *int     `json:"file,omitempty"`
	Layer *int     `json:"layer,omitempty"`
	Ref   int      `json:"ref"`
	Kind  string   `json:"kind"`
	Shape []point  `json:"points"`
	Value *float64 `json:"value,omitempty"`
}

// parseViewport reads ?bbox=minx,miny,maxx,maxy. A missing bbox is the empty
// rect, which the document treats as the whole region.
func parseViewport(r *http.Request) (r2.Rect, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("bbox"))
	if raw == "" {
		return r2.EmptyRect(), nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return r2.Rect{}, errors.New("bbox needs four comma separated numbers")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r2.Rect{}, err
		}
		v[i] = f
	}
	return r2.RectFromPoints(r2.Point{X: v[0], Y: v[1]}, r2.Point{X: v[2], Y: v[3]}), nil
}

func points(pts []r2.Point) []point {
	out := make([]point, 0, len(pts))
	for _, p := range pts {
		out = append(out, toPoint(p))
	}
	return out
}

type shapesResponse struct {
	Drawings []shapeItem `json:"drawings"`
	Map      []shapeItem `json:"map"`
	Points   []point     `json:"points"`
}

// handleListShapes returns what is visible inside the viewport: shown drawing
// shapes, the front shape map with its displayed value, and lattice points
// when the lattice is in front.
func (h *Handler) handleListShapes(w http.ResponseWriter, r *http.Request) {
	viewport, err := parseViewport(r)
	if err != nil {
		h.writeValidation(w, "invalid bbox", err)
		return
	}
	resp := shapesResponse{Drawings: []shapeItem{}, Map: []shapeItem{}, Points: []point{}}
	if err := h.ws.Do(r.Context(), func(d *document.Document) error {
		for ref, s := range d.DrawingShapes(viewport) {
			file, layer := ref.File, ref.Layer
			resp.Drawings = append(resp.Drawings, shapeItem{
				File: &file, Layer: &layer, Ref: ref.Ref, Kind: s.Kind.String(), Shape: points(s.Points),
			})
		}
		col := d.DisplayedAttribute()
		table, hasTable := d.AttributeTable(d.ViewClass().Front(), -1)
		for ref, s := range d.MapShapes(viewport) {
			item := shapeItem{Ref: ref, Kind: s.Kind.String(), Shape: points(s.Points)}
			if hasTable && col >= 0 {
				v := table.Value(ref, col)
				item.Value = &v
			}
			resp.Map = append(resp.Map, item)
		}
		for _, p := range d.LatticePoints(viewport) {
			resp.Points = append(resp.Points, toPoint(p))
		}
		return nil
	}); err != nil {
		h.writeBusy(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type lattice struct {
	Name string `json:"name"`
}

func (h *Handler) handleAddLattice(w http.ResponseWriter, r *http.Request) {
	var req lattice
	if err := decodeOptional(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	h.respond(w, r, http.StatusCreated, "", func(d *document.Document) bool {
		d.AddNewLatticeMap(strings.TrimSpace(req.Name))
		return true
	})
}

type gridRequest struct {
	Spacing float64 `json:"spacing"`
	Offset  point   `json:"offset"`
}

func (h *Handler) handleSetGrid(w http.ResponseWriter, r *http.Request) {
	var req gridRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	if req.Spacing <= 0 {
		h.writeValidation(w, "spacing must be positive", nil)
		return
	}
	h.respond(w, r, http.StatusOK, "grid could not be set on the displayed lattice", func(d *document.Document) bool {
		return d.SetGrid(req.Spacing, req.Offset.r2())
	})
}

type fillRequest struct {
	Point point `json:"point"`
	Add   bool  `json:"add"`
}

func (h *Handler) handleFillPoint(w http.ResponseWriter, r *http.Request) {
	var req fillRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	h.respond(w, r, http.StatusOK, "point could not be changed", func(d *document.Document) bool {
		return d.FillPoint(req.Point.r2(), req.Add)
	})
}

func (h *Handler) handleClearPoints(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, "no editable lattice in front", func(d *document.Document) bool {
		return d.ClearPoints()
	})
}

func (h *Handler) handleUnmakeGraph(w http.ResponseWriter, r *http.Request) {
	removeAttributes := r.URL.Query().Get("remove_attributes") == "true"
	h.respond(w, r, http.StatusOK, "displayed lattice has no graph", func(d *document.Document) bool {
		return d.UnmakeGraph(removeAttributes)
	})
}

type attributeResponse struct {
	Column int    `json:"column"`
	Name   string `json:"name"`
}

func (h *Handler) handleGetDisplayedAttribute(w http.ResponseWriter, r *http.Request) {
	var (
		resp attributeResponse
		ok   bool
	)
	if err := h.ws.Do(r.Context(), func(d *document.Document) error {
		t, has := d.AttributeTable(d.ViewClass().Front(), -1)
		if !has {
			return nil
		}
		ok = true
		resp.Column = d.DisplayedAttribute()
		resp.Name = t.ColumnName(resp.Column)
		return nil
	}); err != nil {
		h.writeBusy(w, err)
		return
	}
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "no map in front", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type setAttributeRequest struct {
	Column int `json:"column"`
}

func (h *Handler) handleSetDisplayedAttribute(w http.ResponseWriter, r *http.Request) {
	var req setAttributeRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	h.respond(w, r, http.StatusOK, "no such column on the front map", func(d *document.Document) bool {
		return d.SetDisplayedAttribute(req.Column)
	})
}

type column struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Locked    bool   `json:"locked"`
	Displayed bool   `json:"displayed"`
}

func (h *Handler) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	k, ok := viewstate.ParseKind(r.URL.Query().Get("kind"))
	layer := -1
	if v := r.URL.Query().Get("layer"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeValidation(w, "layer must be an integer", err)
			return
		}
		layer = n
	}
	var (
		cols  []column
		found bool
	)
	if err := h.ws.Do(r.Context(), func(d *document.Document) error {
		if !ok {
			k = d.ViewClass().Front()
		}
		t, has := d.AttributeTable(k, layer)
		if !has {
			return nil
		}
		found = true
		displayed := t.DisplayColumn()
		cols = []column{{Index: -1, Name: t.ColumnName(-1), Locked: true, Displayed: displayed == -1}}
		for i := 0; i < t.NumColumns(); i++ {
			c := t.Column(i)
			cols = append(cols, column{Index: i, Name: c.Name, Locked: c.Locked, Displayed: displayed == i})
		}
		return nil
	}); err != nil {
		h.writeBusy(w, err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "not_found", "no such map", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, cols)
}

type addAttributeRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleAddAttribute(w http.ResponseWriter, r *http.Request) {
	var req addAttributeRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	var (
		col int
		ok  bool
	)
	if err := h.ws.Do(r.Context(), func(d *document.Document) error {
		col, ok = d.AddAttribute(strings.TrimSpace(req.Name))
		return nil
	}); err != nil {
		h.writeBusy(w, err)
		return
	}
	if !ok {
		h.writeRefused(w, "attribute name is empty, taken, or no map is in front")
		return
	}
	h.writeJSON(w, http.StatusCreated, attributeResponse{Column: col, Name: strings.TrimSpace(req.Name)})
}

func (h *Handler) handleRemoveAttribute(w http.ResponseWriter, r *http.Request) {
	col, err := intParam(r, "column")
	if err != nil {
		h.writeValidation(w, "column must be an integer", err)
		return
	}
	h.respond(w, r, http.StatusOK, "column is locked or missing", func(d *document.Document) bool {
		return d.RemoveAttribute(col)
	})
}

type selectionResponse struct {
	Refs    []int    `json:"refs"`
	Count   int      `json:"count"`
	Average *float64 `json:"average,omitempty"`
	Bounds  *rect    `json:"bounds,omitempty"`
}

func selectionOf(d *document.Document) selectionResponse {
	resp := selectionResponse{Refs: d.Selection(), Count: d.SelectionCount(), Bounds: toRect(d.SelectionBounds())}
	if resp.Refs == nil {
		resp.Refs = []int{}
	}
	if resp.Count > 0 && d.DisplayedAttribute() >= 0 {
		avg := d.SelectionAverage()
		resp.Average = &avg
	}
	return resp
}

func (h *Handler) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	var resp selectionResponse
	if err := h.ws.Do(r.Context(), func(d *document.Document) error {
		resp = selectionOf(d)
		return nil
	}); err != nil {
		h.writeBusy(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type selectionRequest struct {
	Refs   []int `json:"refs,omitempty"`
	Region *rect `json:"region,omitempty"`
	Add    bool  `json:"add"`
}

func (h *Handler) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	if (req.Region == nil) == (req.Refs == nil) {
		h.writeValidation(w, "exactly one of refs or region is required", nil)
		return
	}
	var resp selectionResponse
	if err := h.ws.Do(r.Context(), func(d *document.Document) error {
		if req.Region != nil {
			d.SelectRegion(req.Region.r2(), req.Add)
		} else {
			d.SetSelection(req.Refs, req.Add)
		}
		resp = selectionOf(d)
		return nil
	}); err != nil {
		h.writeBusy(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, "no map in front", func(d *document.Document) bool {
		return d.ClearSelection()
	})
}

type selectionLayerRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleSelectionToLayer(w http.ResponseWriter, r *http.Request) {
	var req selectionLayerRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	h.respond(w, r, http.StatusCreated, "nothing selected on a data map", func(d *document.Document) bool {
		return d.SelectionToLayer(strings.TrimSpace(req.Name))
	})
}

type shapeEditRequest struct {
	Line line `json:"line"`
}

func (h *Handler) handleMakeShape(w http.ResponseWriter, r *http.Request) {
	var req shapeEditRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	h.respond(w, r, http.StatusCreated, "front map is not editable", func(d *document.Document) bool {
		return d.MakeShape(req.Line.geometry())
	})
}

func (h *Handler) handleMoveShape(w http.ResponseWriter, r *http.Request) {
	var req shapeEditRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	h.respond(w, r, http.StatusOK, "select exactly one shape on an editable map", func(d *document.Document) bool {
		return d.MoveSelShape(req.Line.geometry())
	})
}

func (h *Handler) handleRemoveSelected(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, "nothing selected on an editable map", func(d *document.Document) bool {
		return d.RemoveSelected()
	})
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK, "nothing to undo", func(d *document.Document) bool {
		return d.Undo()
	})
}

type pushRequest struct {
	SourceType  string `json:"source_type"`
	SourceLayer int    `json:"source_layer"`
	DestType    string `json:"dest_type"`
	DestLayer   int    `json:"dest_layer"`
	ColIn       *int   `json:"col_in,omitempty"`
	ColOut      *int   `json:"col_out,omitempty"`
	Func        string `json:"func"`
	CountColumn bool   `json:"count_column"`
}

// handlePushValues pushes an explicit column when col_out is given, otherwise
// the front map's displayed attribute into a new column on the destination.
func (h *Handler) handlePushValues(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	dest, ok := viewstate.ParseKind(req.DestType)
	if !ok {
		h.writeValidation(w, fmt.Sprintf("unknown dest_type %q", req.DestType), nil)
		return
	}
	fn := pushvalues.Max
	if req.Func != "" {
		if fn, ok = pushvalues.ParseFunc(req.Func); !ok {
			h.writeValidation(w, fmt.Sprintf("unknown func %q", req.Func), nil)
			return
		}
	}
	var src viewstate.Kind
	if req.ColOut != nil {
		if src, ok = viewstate.ParseKind(req.SourceType); !ok {
			h.writeValidation(w, fmt.Sprintf("unknown source_type %q", req.SourceType), nil)
			return
		}
	}

	var sum documentSummary
	err := h.ws.Do(r.Context(), func(d *document.Document) error {
		var err error
		if req.ColOut != nil {
			err = d.PushValues(document.PushRequest{
				SourceType:  src,
				SourceLayer: req.SourceLayer,
				DestType:    dest,
				DestLayer:   req.DestLayer,
				ColIn:       req.ColIn,
				ColOut:      *req.ColOut,
				Func:        fn,
				CountColumn: req.CountColumn,
			})
		} else {
			err = d.PushValuesToLayer(dest, req.DestLayer, fn, req.CountColumn)
		}
		sum = summarize(d)
		return err
	})
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, sum)
	case errors.Is(err, document.ErrPushSelf), errors.Is(err, document.ErrPushRoute):
		h.writeError(w, http.StatusBadRequest, "invalid_route", err.Error(), nil)
	case errors.Is(err, document.ErrNoMap), errors.Is(err, document.ErrNoColumn):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, workspace.ErrBusy):
		h.writeBusy(w, err)
	default:
		h.log.Error().Err(err).Msg("push values failed")
		h.writeError(w, http.StatusInternalServerError, "push_failed", "failed to push values", nil)
	}
}

type isovistRequest struct {
	Point point   `json:"point"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type isovistResponse struct {
	Result   int             `json:"result"`
	Document documentSummary `json:"document"`
}

func (h *Handler) handleMakeIsovist(w http.ResponseWriter, r *http.Request) {
	var req isovistRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeValidation(w, "invalid json body", err)
		return
	}
	var resp isovistResponse
	if err := h.ws.Do(r.Context(), func(d *document.Document) error {
		resp.Result = d.MakeIsovist(comm.NewReporter(r.Context(), h.log), req.Point.r2(), req.Start, req.End)
		resp.Document = summarize(d)
		return nil
	}); err != nil {
		h.writeBusy(w, err)
		return
	}
	if resp.Result == document.IsovistNone {
		h.writeRefused(w, "no visible drawing lines to cast against")
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}
