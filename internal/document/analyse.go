package document

import (
	"errors"
	"time"

	"spatialdoc/core-go/internal/analysis"
	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/viewstate"
)

var (
	ErrNeedsSelection = errors.New("analysis needs a selection")
	ErrUnsupported    = errors.New("analysis not supported on this map")
)

// finishAnalysis writes a completed result into v's table and shows its
// display column. Cancelled or failed runs leave the table untouched.
func (d *Document) finishAnalysis(v *mapView, kind string, start time.Time, res analysis.Result, err error) bool {
	if err == nil && !res.Completed {
		err = comm.ErrCancelled
	}
	d.logOutcome("analysis", kind, err)
	d.obs.AnalysisFinished(kind, outcomeOf(err), time.Since(start))
	if err != nil {
		return false
	}
	col := analysis.CopyResultToMap(res, v.AttributeTable())
	v.OverrideDisplayedAttribute(attributes.DisplayUninitialised)
	v.SetDisplayedAttribute(col)
	return true
}

// AnalyseGraph runs a on the displayed lattice.
func (d *Document) AnalyseGraph(c comm.Communicator, a analysis.LatticeAnalysis) bool {
	v, ok := d.lattices.current()
	if !ok {
		return false
	}
	start := time.Now()
	res, err := a.Run(c, v.m)
	return d.finishAnalysis(&v.mapView, a.Name(), start, res, err)
}

// analyseShapeGraph runs a on the displayed shape graph. The presence bit is
// lowered for the duration so nothing redraws a half-written map.
func (d *Document) analyseShapeGraph(c comm.Communicator, a analysis.ShapeGraphAnalysis) bool {
	v, ok := d.graphs.current()
	if !ok {
		return false
	}
	d.state = d.state.Without(viewstate.StateShapeGraphs)
	defer func() { d.state = d.state.With(viewstate.StateShapeGraphs) }()
	start := time.Now()
	res, err := a.Run(c, v.m)
	return d.finishAnalysis(&v.mapView, a.Name(), start, res, err)
}

// AnalyseAxial computes integration for each radius on the displayed graph.
func (d *Document) AnalyseAxial(c comm.Communicator, radii []int) bool {
	return d.analyseShapeGraph(c, analysis.AxialIntegration{Radii: radii})
}

// AnalyseSegmentsAngular computes angular mean depth on a segment map.
func (d *Document) AnalyseSegmentsAngular(c comm.Communicator, radii []float64) bool {
	return d.analyseShapeGraph(c, analysis.SegmentAngular{Radii: radii})
}

// AnalyseTopoMet computes metric mean depth within radius.
func (d *Document) AnalyseTopoMet(c comm.Communicator, radius float64) bool {
	return d.analyseShapeGraph(c, analysis.SegmentMetric{Radius: radius})
}

// AnalyseStepDepth measures depth from the selection of the front map. On a
// lattice metric selects shortest-path length over visual steps; shape graphs
// only support step counts.
func (d *Document) AnalyseStepDepth(c comm.Communicator, metric bool) (bool, error) {
	switch d.view.Front() {
	case viewstate.KindVGA:
		v, ok := d.lattices.current()
		if !ok {
			return false, ErrNoMap
		}
		origins := v.Selection()
		if len(origins) == 0 {
			return false, ErrNeedsSelection
		}
		if metric {
			return d.AnalyseGraph(c, analysis.MetricStepDepth{Origins: origins}), nil
		}
		return d.AnalyseGraph(c, analysis.VisualStepDepth{Origins: origins}), nil
	case viewstate.KindAxial:
		v, ok := d.graphs.current()
		if !ok {
			return false, ErrNoMap
		}
		if metric {
			return false, ErrUnsupported
		}
		origins := v.Selection()
		if len(origins) == 0 {
			return false, ErrNeedsSelection
		}
		return d.analyseShapeGraph(c, analysis.StepDepth{Origins: origins}), nil
	}
	return false, ErrNoMap
}
