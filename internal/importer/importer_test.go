package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
)

func kinds(t *testing.T, m *spatial.ShapeMap) []geometry.ShapeKind {
	t.Helper()
	var out []geometry.ShapeKind
	for _, ref := range m.Refs() {
		s, ok := m.Shape(ref)
		require.True(t, ok)
		out = append(out, s.Kind)
	}
	return out
}

func TestParse_text(t *testing.T) {
	src := `
# ground floor
0 0 10 0
layer Walls
0 0 0 10
poly 0 0 10 0 10 10
layer Doors
path 1 1 2 2 3 1
point 4 4
`
	layers, err := Parse("plan.txt", []byte(src))
	require.NoError(t, err)
	require.Len(t, layers, 3)

	assert.Equal(t, "plan", layers[0].Name())
	assert.Equal(t, []geometry.ShapeKind{geometry.KindLine}, kinds(t, layers[0]))

	assert.Equal(t, "Walls", layers[1].Name())
	assert.Equal(t, []geometry.ShapeKind{geometry.KindLine, geometry.KindPolygon}, kinds(t, layers[1]))

	assert.Equal(t, "Doors", layers[2].Name())
	assert.Equal(t, []geometry.ShapeKind{geometry.KindPolyline, geometry.KindPoint}, kinds(t, layers[2]))

	for _, l := range layers {
		assert.Equal(t, spatial.TypeDrawing, l.Type())
	}
	assert.Equal(t, r2.Point{X: 10, Y: 10}, layers[1].Region().Hi())
}

func TestParse_textErrors(t *testing.T) {
	cases := map[string]string{
		"short line":     "0 0 1",
		"bad number":     "0 0 x 1",
		"short poly":     "poly 0 0 1 1",
		"nameless layer": "layer",
		"point arity":    "point 1 2 3 4",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("plan.txt", []byte(src))
			assert.ErrorContains(t, err, "line 1")
		})
	}
}

func TestParse_emptyDrawing(t *testing.T) {
	_, err := Parse("plan.txt", []byte("# nothing\nlayer Empty\n"))
	assert.True(t, errors.Is(err, ErrEmpty), "expected ErrEmpty, got %v", err)
}

func TestParse_geojson(t *testing.T) {
	src := `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"layer": "Walls"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}},
    {"type": "Feature", "properties": {"layer": "Walls"},
     "geometry": {"type": "LineString", "coordinates": [[2,5],[8,5]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "MultiPoint", "coordinates": [[1,1],[2,2]]}},
    {"type": "Feature", "properties": {"layer": "Paths"},
     "geometry": {"type": "MultiLineString", "coordinates": [[[0,0],[1,1],[2,0]], [[5,5],[6,6]]]}}
  ]
}`
	layers, err := Parse("site.geojson", []byte(src))
	require.NoError(t, err)
	require.Len(t, layers, 3)

	walls := layers[0]
	assert.Equal(t, "Walls", walls.Name())
	assert.Equal(t, []geometry.ShapeKind{geometry.KindPolygon, geometry.KindLine}, kinds(t, walls))
	poly, _ := walls.Shape(walls.Refs()[0])
	assert.Len(t, poly.Points, 4, "closing vertex is dropped")
	assert.InDelta(t, 100, poly.Area(), 1e-9)

	assert.Equal(t, "site", layers[1].Name())
	assert.Equal(t, 2, layers[1].NumShapes())

	assert.Equal(t, "Paths", layers[2].Name())
	assert.Equal(t, []geometry.ShapeKind{geometry.KindPolyline, geometry.KindLine}, kinds(t, layers[2]))
}

func TestParse_geojsonErrors(t *testing.T) {
	_, err := Parse("site.json", []byte(`{"type": "FeatureCollection", "features": [`))
	assert.Error(t, err)

	_, err = Parse("site.json", []byte(`{"type": "FeatureCollection", "features": [
    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0,0]]}}]}`))
	assert.ErrorContains(t, err, "feature 0")
}

func TestImporter_LoadFromFileURL(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "plan.txt")
	require.NoError(t, os.WriteFile(p, []byte("layer Walls\n0 0 10 0\n10 0 10 10\n"), 0o600))

	layers, err := New().Load(context.Background(), "file://"+p)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "Walls", layers[0].Name())
	assert.Equal(t, 2, layers[0].NumShapes())

	_, err = New().Load(context.Background(), "file://"+filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "plan.geojson", FileName("s3://bucket/drawings/plan.geojson?versionId=3"))
	assert.Equal(t, "plan.txt", FileName("/tmp/plan.txt"))
}
