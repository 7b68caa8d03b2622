package analysis

import (
	"fmt"

	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/spatial"
)

// AxialIntegration computes topological mean depth and Hillier-Hanson
// integration for each radius. A radius of zero or less means global.
type AxialIntegration struct {
	Radii []int
}

func (AxialIntegration) Name() string { return "axial_integration" }

func (a AxialIntegration) Run(c comm.Communicator, m *spatial.ShapeMap) (Result, error) {
	radii := a.Radii
	if len(radii) == 0 {
		radii = []int{0}
	}
	var cols []string
	for _, r := range radii {
		s := radiusSuffix(float64(r))
		cols = append(cols, "Mean Depth"+s, "Integration [HH]"+s, "Node Count"+s, "Total Depth"+s)
	}
	res := newResult(cols...)
	res.Display = "Integration [HH]" + radiusSuffix(float64(radii[0]))

	g := shapeGraph(m)
	c.PostSteps(len(radii))
	for ri, r := range radii {
		c.PostStep(ri + 1)
		base := ri * 4
		err := g.forEachKey(c, func(key int) {
			depths := g.stepDepths([]int{key}, r)
			total := 0
			for _, d := range depths {
				total += d
			}
			k := len(depths)
			res.set(key, base+2, float64(k))
			res.set(key, base+3, float64(total))
			if k > 1 {
				md := float64(total) / float64(k-1)
				res.set(key, base, md)
				res.set(key, base+1, integrationHH(md, k))
			}
		})
		if err != nil {
			return Result{}, err
		}
	}
	res.Completed = true
	return res, nil
}

// StepDepth records the number of steps from the nearest origin.
type StepDepth struct {
	Origins []int
	// Column overrides the output column name.
	Column string
}

func (StepDepth) Name() string { return "step_depth" }

func (s StepDepth) column(fallback string) string {
	if s.Column != "" {
		return s.Column
	}
	return fallback
}

func (s StepDepth) Run(c comm.Communicator, m *spatial.ShapeMap) (Result, error) {
	return stepDepthResult(c, shapeGraph(m), s.Origins, s.column("Step Depth"))
}

func stepDepthResult(c comm.Communicator, g graph, origins []int, column string) (Result, error) {
	if len(origins) == 0 {
		return Result{}, fmt.Errorf("step depth needs at least one origin")
	}
	res := newResult(column)
	res.Display = column
	depths := g.stepDepths(origins, 0)
	if err := g.forEachKey(c, func(key int) {
		if d, ok := depths[key]; ok {
			res.set(key, 0, float64(d))
		}
	}); err != nil {
		return Result{}, err
	}
	res.Completed = true
	return res, nil
}

// SegmentAngular computes angular mean depth over segment maps. Radii are in
// angular units (quarter turns); zero or less means global.
type SegmentAngular struct {
	Radii []float64
}

func (SegmentAngular) Name() string { return "segment_angular" }

func (a SegmentAngular) Run(c comm.Communicator, m *spatial.ShapeMap) (Result, error) {
	if !m.IsSegmentMap() {
		return Result{}, fmt.Errorf("angular analysis needs a segment map, got %s", m.Type())
	}
	radii := a.Radii
	if len(radii) == 0 {
		radii = []float64{0}
	}
	var cols []string
	for _, r := range radii {
		s := radiusSuffix(r)
		cols = append(cols, "Angular Mean Depth"+s, "Angular Total Depth"+s, "Angular Node Count"+s)
	}
	res := newResult(cols...)
	res.Display = "Angular Mean Depth" + radiusSuffix(radii[0])

	g := shapeGraph(m)
	turn := func(a arc) float64 { return a.turn }
	c.PostSteps(len(radii))
	for ri, r := range radii {
		c.PostStep(ri + 1)
		base := ri * 3
		if err := g.forEachKey(c, func(key int) {
			depths := g.weightedDepths([]int{key}, turn, r)
			var total float64
			for _, d := range depths {
				total += d
			}
			k := len(depths)
			res.set(key, base+1, total)
			res.set(key, base+2, float64(k))
			if k > 1 {
				res.set(key, base, total/float64(k-1))
			}
		}); err != nil {
			return Result{}, err
		}
	}
	res.Completed = true
	return res, nil
}

// SegmentMetric computes metric mean depth (mean shortest path length) within
// Radius map units; zero or less means global.
type SegmentMetric struct {
	Radius float64
}

func (SegmentMetric) Name() string { return "segment_metric" }

func (a SegmentMetric) Run(c comm.Communicator, m *spatial.ShapeMap) (Result, error) {
	s := radiusSuffix(a.Radius)
	res := newResult("Metric Mean Depth"+s, "Metric Node Count"+s)
	res.Display = "Metric Mean Depth" + s
	g := shapeGraph(m)
	metric := func(a arc) float64 { return a.metric }
	if err := g.forEachKey(c, func(key int) {
		depths := g.weightedDepths([]int{key}, metric, a.Radius)
		var total float64
		for _, d := range depths {
			total += d
		}
		k := len(depths)
		res.set(key, 1, float64(k))
		if k > 1 {
			res.set(key, 0, total/float64(k-1))
		}
	}); err != nil {
		return Result{}, err
	}
	res.Completed = true
	return res, nil
}
