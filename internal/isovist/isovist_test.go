package isovist

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
)

func room() []geometry.Line {
	return []geometry.Line{
		geometry.NewLine(0, 0, 10, 0),
		geometry.NewLine(10, 0, 10, 10),
		geometry.NewLine(10, 10, 0, 10),
		geometry.NewLine(0, 10, 0, 0),
	}
}

func TestPartition_BuildIsReused(t *testing.T) {
	var p Partition
	ok, err := p.Build(comm.Background(), room())
	if err != nil || !ok {
		t.Fatalf("expected build, ok=%v err=%v", ok, err)
	}
	// A second build with nothing still reuses the first.
	ok, err = p.Build(comm.Background(), nil)
	if err != nil || !ok {
		t.Fatalf("expected reuse, ok=%v err=%v", ok, err)
	}
	p.Reset()
	if ok, _ := p.Build(comm.Background(), []geometry.Line{geometry.NewLine(1, 1, 1, 1)}); ok {
		t.Fatalf("expected zero-length lines to give nothing to build")
	}
}

func TestPartition_BuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var p Partition
	ok, err := p.Build(comm.NewReporter(ctx, zerolog.Nop()), room())
	if ok || !errors.Is(err, comm.ErrCancelled) || p.Built() {
		t.Fatalf("expected cancelled build, ok=%v err=%v built=%v", ok, err, p.Built())
	}
}

func TestMake_fullRoom(t *testing.T) {
	var p Partition
	p.Build(comm.Background(), room())
	region := r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 10})
	iso := p.Make(r2.Point{X: 5, Y: 5}, region, 0, 0)

	if math.Abs(iso.Area-100) > 1.5 {
		t.Fatalf("expected area close to 100, got %v", iso.Area)
	}
	if math.Abs(iso.MinRadial-5) > 1e-6 {
		t.Fatalf("expected min radial 5, got %v", iso.MinRadial)
	}
	tbl := attributes.NewTable()
	tbl.AddRow(0)
	iso.WriteAttributes(tbl, 0)
	col, ok := tbl.ColumnIndex(ColumnArea)
	if !ok || tbl.Value(0, col) != iso.Area {
		t.Fatalf("expected area column to be written")
	}
}

func TestMake_halfView(t *testing.T) {
	var p Partition
	p.Build(comm.Background(), room())
	region := r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 10})
	start, end := FieldOfView(r2.Point{X: 1, Y: 0}, math.Pi)
	iso := p.Make(r2.Point{X: 5, Y: 5}, region, start, end)
	if math.Abs(iso.Area-50) > 1.5 {
		t.Fatalf("expected area close to 50, got %v", iso.Area)
	}
}
