package document

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatialdoc/core-go/internal/analysis"
	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/isovist"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

func latticeDoc(t *testing.T, obs Observer) (*Document, *LatticeView) {
	t.Helper()
	d := newDoc(t, Options{Observer: obs})
	d.AddDrawingFile("plan", []*spatial.ShapeMap{room()})
	d.AddNewLatticeMap("")
	require.True(t, d.SetGrid(1, r2.Point{}))
	v, ok := d.DisplayedLatticeMap()
	require.True(t, ok)
	return d, v
}

func displayedName(d *Document) string {
	tbl, _ := d.AttributeTable(d.ViewClass().Front(), -1)
	return tbl.ColumnName(d.DisplayedAttribute())
}

func TestDocument_latticeNames(t *testing.T) {
	d := newDoc(t, Options{})
	d.AddNewLatticeMap("")
	d.AddNewLatticeMap("")
	d.AddNewLatticeMap("Grid")
	var names []string
	for _, v := range d.LatticeMaps() {
		names = append(names, v.Name())
	}
	assert.Equal(t, []string{"VGA Map", "VGA Map 1", "Grid"}, names)
	assert.True(t, d.State().Has(viewstate.StateLatticeMaps))
	assert.Equal(t, viewstate.KindVGA, d.ViewClass().Front())
	assert.Equal(t, spatial.TypeLattice, d.DisplayedMapType())
}

func TestDocument_pointsGraphAndAnalysis(t *testing.T) {
	obs := &recordingObserver{}
	d, v := latticeDoc(t, obs)

	require.True(t, d.MakePoints(comm.Background(), r2.Point{X: 5.5, Y: 5.5}, spatial.FillFull))
	filled := v.Map().NumPoints()
	require.Positive(t, filled)
	assert.Equal(t, EditableOn, d.IsEditable())
	require.True(t, d.CanUndo())
	require.True(t, d.Undo())
	assert.Zero(t, v.Map().NumPoints())

	require.True(t, d.MakePoints(comm.Background(), r2.Point{X: 5.5, Y: 5.5}, spatial.FillFull))
	require.True(t, d.MakeGraph(comm.Background(), 0))
	assert.True(t, d.State().Has(viewstate.StateAngularGraph))
	assert.True(t, v.Map().IsProcessed())
	assert.False(t, d.CanUndo())
	assert.Equal(t, NotEditable, d.IsEditable())
	assert.Equal(t, spatial.ColumnConnectivity, displayedName(d))

	cols := v.AttributeTable().NumColumns()
	assert.False(t, d.AnalyseGraph(cancelledComm(), analysis.VisualGlobal{}))
	assert.Equal(t, cols, v.AttributeTable().NumColumns(), "cancelled analysis writes nothing")
	assert.Equal(t, spatial.ColumnConnectivity, displayedName(d))

	require.True(t, d.AnalyseGraph(comm.Background(), analysis.VisualGlobal{}))
	assert.Equal(t, "Visual Integration [HH]", displayedName(d))
	assert.Equal(t, []outcome{
		{"visual_global", OutcomeCancelled},
		{"visual_global", OutcomeOK},
	}, obs.analyses)

	_, err := d.AnalyseStepDepth(comm.Background(), false)
	require.ErrorIs(t, err, ErrNeedsSelection)
	d.SetSelection(v.Map().Keys()[:1], false)
	ok, err := d.AnalyseStepDepth(comm.Background(), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Visual Step Depth", displayedName(d))

	got, ok := d.LocationValue(r2.Point{X: 5.5, Y: 5.5})
	require.True(t, ok)
	assert.GreaterOrEqual(t, got, 0.0)

	require.True(t, d.UnmakeGraph(true))
	assert.False(t, v.Map().IsProcessed())
	assert.Equal(t, attributes.DisplayRefColumn, d.DisplayedAttribute())
	assert.Equal(t, filled, v.Map().NumPoints())
}

func TestDocument_clearPoints(t *testing.T) {
	d, v := latticeDoc(t, nil)
	require.True(t, d.MakePoints(comm.Background(), r2.Point{X: 5.5, Y: 5.5}, spatial.FillFull))
	n := v.Map().NumPoints()
	d.SetSelection(v.Map().Keys()[:2], false)
	require.True(t, d.ClearPoints())
	assert.Equal(t, n-2, v.Map().NumPoints())
	require.True(t, d.ClearPoints())
	assert.Zero(t, v.Map().NumPoints())
	assert.False(t, d.ClearPoints())
}

func TestDocument_setGridNeedsRegion(t *testing.T) {
	d := newDoc(t, Options{})
	assert.False(t, d.SetGrid(1, r2.Point{}), "no lattice yet")
	d.AddNewLatticeMap("")
	assert.False(t, d.SetGrid(1, r2.Point{}), "no drawing region")
	assert.True(t, d.State().Has(viewstate.StateLatticeMaps))
}

func TestDocument_shapeGraphAnalyses(t *testing.T) {
	obs := &recordingObserver{}
	d := newDoc(t, Options{Observer: obs})
	d.AddShapeGraph("Axial Map", spatial.TypeAxial)
	d.MakeShape(geometry.NewLine(0, 0, 10, 0))
	d.MakeShape(geometry.NewLine(10, 0, 10, 10))
	d.MakeShape(geometry.NewLine(10, 10, 0, 10))

	require.True(t, d.AnalyseAxial(comm.Background(), nil))
	assert.True(t, d.State().Has(viewstate.StateShapeGraphs))
	assert.Equal(t, "Integration [HH]", displayedName(d))

	assert.False(t, d.AnalyseSegmentsAngular(comm.Background(), nil), "axial maps have no angular analysis")
	assert.True(t, d.State().Has(viewstate.StateShapeGraphs))

	_, err := d.AnalyseStepDepth(comm.Background(), true)
	require.ErrorIs(t, err, ErrUnsupported)
	d.SetSelection([]int{0}, false)
	ok, err := d.AnalyseStepDepth(comm.Background(), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Step Depth", displayedName(d))

	require.True(t, d.AnalyseTopoMet(comm.Background(), 0))
	assert.Equal(t, "Metric Mean Depth", displayedName(d))
	assert.Equal(t, OutcomeFailed, obs.analyses[1].outcome)
}

func TestDocument_isovists(t *testing.T) {
	d := newDoc(t, Options{})
	assert.Equal(t, IsovistNone, d.MakeIsovist(comm.Background(), r2.Point{X: 5, Y: 5}, 0, 0))

	d.AddDrawingFile("plan", []*spatial.ShapeMap{room()})
	require.Equal(t, IsovistMadeNewLayer, d.MakeIsovist(comm.Background(), r2.Point{X: 5, Y: 5}, 0, 0))
	requireConsistent(t, d)
	assert.Equal(t, viewstate.KindData, d.ViewClass().Front())
	v, _ := d.DisplayedDataMap()
	assert.Equal(t, IsovistsMapName, v.Name())
	area, ok := v.AttributeTable().ColumnIndex(isovist.ColumnArea)
	require.True(t, ok)
	assert.InDelta(t, 100, v.AttributeTable().Value(0, area), 1)
	assert.Equal(t, attributes.DisplayRefColumn, d.DisplayedAttribute())

	require.Equal(t, IsovistMade, d.MakeIsovist(comm.Background(), r2.Point{X: 2, Y: 2}, 0, math.Pi/2))
	assert.Equal(t, 2, v.Map().NumShapes())

	d.AddDataMap("paths")
	require.True(t, d.MakeShape(geometry.NewLine(2, 5, 8, 5)))
	assert.Equal(t, IsovistNone, d.MakeIsovistPath(comm.Background(), math.Pi), "nothing selected")
	d.SetSelection([]int{0}, false)
	require.Equal(t, IsovistMade, d.MakeIsovistPath(comm.Background(), math.Pi))
	assert.Equal(t, 3, v.Map().NumShapes())
	require.Len(t, d.DataMaps(), 2)
	assert.Equal(t, 0, d.DisplayedDataMapRef())
}
