package document

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/pushvalues"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

// pushDoc has a data map of two zones with a "height" column and a data map
// of points, the second on display.
func pushDoc(t *testing.T) (d *Document, zones, points *ShapeView, height int) {
	t.Helper()
	d = newDoc(t, Options{})
	d.AddDataMap("zones")
	zones = d.DataMaps()[0]
	a := zones.Map().MakePolyShape([]r2.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}, true)
	b := zones.Map().MakePolyShape([]r2.Point{{X: 2, Y: 2}, {X: 6, Y: 2}, {X: 6, Y: 6}, {X: 2, Y: 6}}, true)
	height = zones.AttributeTable().InsertOrResetColumn("height")
	zones.AttributeTable().SetValue(a, height, 3)
	zones.AttributeTable().SetValue(b, height, 5)

	d.AddDataMap("points")
	points = d.DataMaps()[1]
	points.Map().MakePointShape(r2.Point{X: 3, Y: 3})
	points.Map().MakePointShape(r2.Point{X: 1, Y: 1})
	return d, zones, points, height
}

func TestPushValues_rejectsBeforeTouchingColumns(t *testing.T) {
	d, zones, points, _ := pushDoc(t)
	cases := []struct {
		name string
		req  PushRequest
		want error
	}{
		{
			name: "onto itself",
			req:  PushRequest{SourceType: viewstate.KindData, SourceLayer: 1, DestType: viewstate.KindData, DestLayer: 1, CountColumn: true},
			want: ErrPushSelf,
		},
		{
			name: "lattice to lattice",
			req:  PushRequest{SourceType: viewstate.KindVGA, DestType: viewstate.KindVGA, DestLayer: 1, CountColumn: true},
			want: ErrPushRoute,
		},
		{
			name: "missing layer",
			req:  PushRequest{SourceType: viewstate.KindData, SourceLayer: 0, DestType: viewstate.KindAxial, DestLayer: 0, CountColumn: true},
			want: ErrNoMap,
		},
		{
			name: "missing output column",
			req:  PushRequest{SourceType: viewstate.KindData, SourceLayer: 0, DestType: viewstate.KindData, DestLayer: 1, ColOut: 3, CountColumn: true},
			want: ErrNoColumn,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			zc, pc := zones.AttributeTable().NumColumns(), points.AttributeTable().NumColumns()
			require.ErrorIs(t, d.PushValues(tc.req), tc.want)
			assert.Equal(t, zc, zones.AttributeTable().NumColumns())
			assert.Equal(t, pc, points.AttributeTable().NumColumns())
		})
	}
}

func TestPushValues_dataToData(t *testing.T) {
	d, _, points, height := pushDoc(t)
	out := points.AttributeTable().InsertOrResetColumn("max height")

	require.NoError(t, d.PushValues(PushRequest{
		SourceType:  viewstate.KindData,
		SourceLayer: 0,
		DestType:    viewstate.KindData,
		DestLayer:   1,
		ColIn:       &height,
		ColOut:      out,
		Func:        pushvalues.Max,
		CountColumn: true,
	}))
	tbl := points.AttributeTable()
	assert.Equal(t, 5.0, tbl.Value(0, out))
	assert.Equal(t, 3.0, tbl.Value(1, out))
	count, ok := tbl.ColumnIndex(spatial.ColumnObjectCount)
	require.True(t, ok)
	assert.Equal(t, 2.0, tbl.Value(0, count))
	assert.Equal(t, out, points.DisplayedAttribute())
}

func TestPushValuesToLayer_usesDisplayedAttribute(t *testing.T) {
	d, zones, points, height := pushDoc(t)
	require.True(t, d.SetDisplayedDataMapRef(0))
	require.True(t, d.SetDisplayedAttribute(height))

	require.NoError(t, d.PushValuesToLayer(viewstate.KindData, 1, pushvalues.Tot, false))
	col, ok := points.AttributeTable().ColumnIndex("height")
	require.True(t, ok)
	assert.Equal(t, 8.0, points.AttributeTable().Value(0, col))
	assert.Equal(t, col, points.DisplayedAttribute())
	assert.False(t, points.AttributeTable().HasColumn(spatial.ColumnObjectCount))

	require.ErrorIs(t, d.PushValuesToLayer(viewstate.KindData, 0, pushvalues.Tot, false), ErrPushSelf)
	assert.Equal(t, 1, zones.AttributeTable().NumColumns())
}

func TestPushValuesToLayer_prefixesLockedNames(t *testing.T) {
	d := newDoc(t, Options{})
	d.AddShapeGraph("a", spatial.TypeAxial)
	d.MakeShape(geometry.NewLine(0, 0, 10, 0))
	d.AddShapeGraph("b", spatial.TypeAxial)
	require.True(t, d.SetDisplayedShapeGraphRef(0))

	require.NoError(t, d.PushValuesToLayer(viewstate.KindAxial, 1, pushvalues.Max, false))
	b := d.ShapeGraphs()[1].AttributeTable()
	assert.True(t, b.HasColumn("Copied "+spatial.ColumnConnectivity))
}
