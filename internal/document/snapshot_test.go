package document

import (
	"encoding/json"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/spatial"
	"spatialdoc/core-go/internal/viewstate"
)

func populated(t *testing.T) *Document {
	t.Helper()
	d := newDoc(t, Options{})
	d.AddDrawingFile("plan", []*spatial.ShapeMap{room(), cross()})
	require.True(t, d.SetLayerShown(0, 0, false))
	require.True(t, d.ConvertDrawingToAxial(comm.Background(), "Axial Map"))
	require.True(t, d.SetLayerShown(0, 0, true))
	d.AddNewLatticeMap("")
	require.True(t, d.SetGrid(2, r2.Point{}))
	// The cross blocks the cells around (5,5); seed in the open quadrant.
	require.True(t, d.MakePoints(comm.Background(), r2.Point{X: 3, Y: 3}, spatial.FillFull))
	require.NotEqual(t, IsovistNone, d.MakeIsovist(comm.Background(), r2.Point{X: 5, Y: 5}, 0, 0))
	return d
}

func TestSnapshot_roundTrip(t *testing.T) {
	d := populated(t)
	s := d.Snapshot()

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))

	back, err := FromSnapshot(decoded, Options{})
	require.NoError(t, err)
	if diff := cmp.Diff(s, back.Snapshot()); diff != "" {
		t.Fatalf("snapshot changed across restore (-want +got):\n%s", diff)
	}
	assert.Equal(t, d.ViewClass(), back.ViewClass())
	assert.Equal(t, d.DisplayedAttribute(), back.DisplayedAttribute())
	requireConsistent(t, back)
}

func TestFromSnapshot_rejectsInconsistentState(t *testing.T) {
	cases := []struct {
		name   string
		mangle func(s *Snapshot)
	}{
		{"unknown version", func(s *Snapshot) { s.Version = 99 }},
		{"presence bit without maps", func(s *Snapshot) { s.State = s.State.With(viewstate.StateShapeGraphs) }},
		{"missing presence bit", func(s *Snapshot) { s.State = s.State.Without(viewstate.StateDrawingData) }},
		{"view of an empty collection", func(s *Snapshot) { s.View = viewstate.ViewAxial }},
		{"invalid view", func(s *Snapshot) { s.View = viewstate.ViewData | viewstate.ViewBackData }},
		{"displayed out of range", func(s *Snapshot) { s.DisplayedData = 5 }},
		{"displayed in empty collection", func(s *Snapshot) { s.DisplayedGraph = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDoc(t, Options{})
			d.AddDrawingFile("plan", []*spatial.ShapeMap{room()})
			d.AddDataMap("data")
			s := d.Snapshot()
			tc.mangle(&s)
			_, err := FromSnapshot(s, Options{})
			require.ErrorIs(t, err, ErrBadSnapshot)
		})
	}
}

func TestViewport_sequences(t *testing.T) {
	d := newDoc(t, Options{})
	d.AddDrawingFile("plan", []*spatial.ShapeMap{room(), cross()})

	n := 0
	for range d.DrawingShapes(r2.EmptyRect()) {
		n++
	}
	assert.Equal(t, 6, n)

	var refs []ShapeRef
	for ref := range d.DrawingShapes(r2.RectFromPoints(r2.Point{X: 4, Y: 4}, r2.Point{X: 6, Y: 6})) {
		refs = append(refs, ref)
	}
	assert.Equal(t, []ShapeRef{{File: 0, Layer: 1, Ref: 0}, {File: 0, Layer: 1, Ref: 1}}, refs)

	n = 0
	for range d.DrawingShapes(r2.EmptyRect()) {
		n++
		break
	}
	assert.Equal(t, 1, n)

	for range d.MapShapes(r2.EmptyRect()) {
		t.Fatalf("nothing is in front")
	}

	d.AddNewLatticeMap("")
	require.True(t, d.SetGrid(2, r2.Point{}))
	// The cross blocks the cells around (5,5); seed in the open quadrant.
	require.True(t, d.MakePoints(comm.Background(), r2.Point{X: 3, Y: 3}, spatial.FillFull))
	lv, _ := d.DisplayedLatticeMap()
	n = 0
	for p, centre := range d.LatticePoints(r2.EmptyRect()) {
		assert.True(t, lv.Map().Includes(p))
		assert.Equal(t, lv.Map().Depixelate(p), centre)
		n++
	}
	assert.Greater(t, n, 0)
	assert.Equal(t, lv.Map().NumPoints(), n)
}
