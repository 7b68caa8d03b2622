package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/rs/zerolog"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
)

// chain builds three axial lines where only neighbours meet: a - b - c.
func chain(t *testing.T) (*spatial.ShapeMap, [3]int) {
	t.Helper()
	m := spatial.NewShapeMap("axial", spatial.TypeAxial)
	a := m.MakeLineShape(geometry.NewLine(0, 0, 10, 0))
	b := m.MakeLineShape(geometry.NewLine(10, 0, 10, 10))
	c := m.MakeLineShape(geometry.NewLine(10, 10, 0, 10))
	return m, [3]int{a, b, c}
}

func value(t *testing.T, tbl *attributes.Table, key int, column string) float64 {
	t.Helper()
	col, ok := tbl.ColumnIndex(column)
	if !ok {
		t.Fatalf("expected column %q", column)
	}
	return tbl.Value(key, col)
}

func TestAxialIntegration_chain(t *testing.T) {
	m, refs := chain(t)
	res, err := AxialIntegration{}.Run(comm.Background(), m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Completed {
		t.Fatalf("expected completed result")
	}
	display := CopyResultToMap(res, m.AttributeTable())
	if got := m.AttributeTable().ColumnName(display); got != "Integration [HH]" {
		t.Fatalf("expected display on integration, got %q", got)
	}
	tbl := m.AttributeTable()
	if got := value(t, tbl, refs[0], "Mean Depth"); got != 1.5 {
		t.Fatalf("expected end mean depth 1.5, got %v", got)
	}
	if got := value(t, tbl, refs[1], "Mean Depth"); got != 1 {
		t.Fatalf("expected middle mean depth 1, got %v", got)
	}
	if got := value(t, tbl, refs[1], "Integration [HH]"); got != attributes.NoValue {
		t.Fatalf("expected undefined integration for a hub of three, got %v", got)
	}
	if got := value(t, tbl, refs[0], "Total Depth"); got != 3 {
		t.Fatalf("expected total depth 3, got %v", got)
	}
}

func TestAxialIntegration_radiusLimitsReach(t *testing.T) {
	m, refs := chain(t)
	res, err := AxialIntegration{Radii: []int{1}}.Run(comm.Background(), m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	CopyResultToMap(res, m.AttributeTable())
	if got := value(t, m.AttributeTable(), refs[0], "Node Count R1"); got != 2 {
		t.Fatalf("expected 2 nodes within one step, got %v", got)
	}
}

func TestStepDepth(t *testing.T) {
	m, refs := chain(t)
	res, err := StepDepth{Origins: []int{refs[2]}}.Run(comm.Background(), m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	CopyResultToMap(res, m.AttributeTable())
	if got := value(t, m.AttributeTable(), refs[0], "Step Depth"); got != 2 {
		t.Fatalf("expected step depth 2, got %v", got)
	}
	if _, err := (StepDepth{}).Run(comm.Background(), m); err == nil {
		t.Fatalf("expected error without origins")
	}
}

func TestAnalysis_cancelled(t *testing.T) {
	m, _ := chain(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AxialIntegration{}.Run(comm.NewReporter(ctx, zerolog.Nop()), m)
	if !errors.Is(err, comm.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestSegmentAngular(t *testing.T) {
	m := spatial.NewShapeMap("segments", spatial.TypeSegment)
	a := m.AppendShape(geometry.LineShape(geometry.NewLine(0, 0, 1, 0)))
	m.AppendShape(geometry.LineShape(geometry.NewLine(1, 0, 2, 0)))
	m.AppendShape(geometry.LineShape(geometry.NewLine(2, 0, 2, 1)))
	if err := m.BuildConnections(comm.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	res, err := SegmentAngular{}.Run(comm.Background(), m)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	CopyResultToMap(res, m.AttributeTable())
	// From a: 0 to the straight continuation, 1 to the right-angle turn.
	if got := value(t, m.AttributeTable(), a, "Angular Total Depth"); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected angular total depth 1, got %v", got)
	}

	if _, err := (SegmentAngular{}).Run(comm.Background(), spatial.NewShapeMap("axial", spatial.TypeAxial)); err == nil {
		t.Fatalf("expected error for non-segment map")
	}
}

func openLattice(t *testing.T) *spatial.LatticeMap {
	t.Helper()
	l := spatial.NewLatticeMap("vga", r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 3, Y: 3}))
	l.SetGrid(1, r2.Point{})
	l.BlockLines([]geometry.Line{
		geometry.NewLine(-0.9, -0.9, 3.9, -0.9),
		geometry.NewLine(3.9, -0.9, 3.9, 3.9),
		geometry.NewLine(3.9, 3.9, -0.9, 3.9),
		geometry.NewLine(-0.9, 3.9, -0.9, -0.9),
	})
	if ok, err := l.MakePoints(comm.Background(), r2.Point{X: 1.5, Y: 1.5}, spatial.FillFull); !ok || err != nil {
		t.Fatalf("make points ok=%v err=%v", ok, err)
	}
	return l
}

func TestVisualGlobal_requiresGraph(t *testing.T) {
	l := openLattice(t)
	if _, err := (VisualGlobal{}).Run(comm.Background(), l); err == nil {
		t.Fatalf("expected error before the graph is made")
	}
	if ok, err := l.MakeGraph(comm.Background(), 0); !ok || err != nil {
		t.Fatalf("make graph ok=%v err=%v", ok, err)
	}
	res, err := VisualGlobal{}.Run(comm.Background(), l)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	CopyResultToMap(res, l.AttributeTable())
	// An open room: every point sees every other point.
	for _, k := range l.Keys() {
		if got := value(t, l.AttributeTable(), k, "Visual Mean Depth"); got != 1 {
			t.Fatalf("expected mean depth 1 in an open room, got %v", got)
		}
	}
}

func TestVisualLocal_openRoomIsFullyClustered(t *testing.T) {
	l := openLattice(t)
	l.MakeGraph(comm.Background(), 0)
	res, err := VisualLocal{}.Run(comm.Background(), l)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	CopyResultToMap(res, l.AttributeTable())
	k := l.Keys()[0]
	if got := value(t, l.AttributeTable(), k, "Visual Clustering Coefficient"); got != 1 {
		t.Fatalf("expected clustering 1, got %v", got)
	}
}

func TestMetricStepDepth(t *testing.T) {
	l := openLattice(t)
	l.MakeGraph(comm.Background(), 0)
	origin := l.Keys()[0]
	res, err := MetricStepDepth{Origins: []int{origin}}.Run(comm.Background(), l)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	CopyResultToMap(res, l.AttributeTable())
	po := l.Depixelate(spatial.PixelFromKey(origin))
	for _, k := range l.Keys() {
		want := l.Depixelate(spatial.PixelFromKey(k)).Sub(po).Norm()
		if got := value(t, l.AttributeTable(), k, "Metric Step Shortest-Path Length"); math.Abs(got-want) > 1e-9 {
			t.Fatalf("expected straight-line distance %v, got %v", want, got)
		}
	}
}

func TestIsovistArea(t *testing.T) {
	l := openLattice(t)
	res, err := IsovistArea{}.Run(comm.Background(), l)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	CopyResultToMap(res, l.AttributeTable())
	k := l.Keys()[0]
	if got := value(t, l.AttributeTable(), k, "Isovist Area"); got < 20 || got > 23.1 {
		t.Fatalf("expected area close to the 4.8 x 4.8 room, got %v", got)
	}
}
