// Package analysis runs the graph measures a document can attach to its maps.
// Every analysis polls its communicator and stops with comm.ErrCancelled when
// asked to; results are written back through CopyResultToMap.
package analysis

import (
	"fmt"
	"math"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/spatial"
)

// Result is the output of an analysis: one value per column for each key.
type Result struct {
	Completed bool
	Columns   []string
	Values    map[int][]float64
	// Display names the column a view should show afterwards.
	Display string
}

func newResult(columns ...string) Result {
	return Result{Columns: columns, Values: make(map[int][]float64)}
}

func (r *Result) set(key, col int, v float64) {
	row, ok := r.Values[key]
	if !ok {
		row = make([]float64, len(r.Columns))
		for i := range row {
			row[i] = attributes.NoValue
		}
		r.Values[key] = row
	}
	row[col] = v
}

// CopyResultToMap writes res into t, inserting or resetting each column, and
// returns the index of the display column (or -1 when there is none).
func CopyResultToMap(res Result, t *attributes.Table) int {
	display := attributes.DisplayRefColumn
	for i, name := range res.Columns {
		col := t.InsertOrResetColumn(name)
		for key, row := range res.Values {
			if t.HasRow(key) {
				t.SetValue(key, col, row[i])
			}
		}
		if name == res.Display {
			display = col
		}
	}
	if display == attributes.DisplayRefColumn && len(res.Columns) > 0 {
		display, _ = t.ColumnIndex(res.Columns[len(res.Columns)-1])
	}
	return display
}

// ShapeGraphAnalysis runs over an axial, segment or convex map.
type ShapeGraphAnalysis interface {
	Name() string
	Run(c comm.Communicator, m *spatial.ShapeMap) (Result, error)
}

// LatticeAnalysis runs over a processed lattice map.
type LatticeAnalysis interface {
	Name() string
	Run(c comm.Communicator, l *spatial.LatticeMap) (Result, error)
}

// radiusSuffix follows the usual naming: nothing for the global radius.
func radiusSuffix(r float64) string {
	if r <= 0 {
		return ""
	}
	return fmt.Sprintf(" R%g", r)
}

// integrationHH is the Hillier-Hanson integration for a node that reaches k
// nodes (including itself) at mean depth md. It returns NoValue when the
// measure is undefined.
func integrationHH(md float64, k int) float64 {
	if k < 3 {
		return attributes.NoValue
	}
	n := float64(k)
	ra := 2 * (md - 1) / (n - 2)
	dn := 2 * (n*(math.Log2((n+2)/3)-1) + 1) / ((n - 1) * (n - 2))
	if ra <= 0 || dn <= 0 {
		return attributes.NoValue
	}
	return dn / ra
}
