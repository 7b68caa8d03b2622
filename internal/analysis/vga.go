package analysis

import (
	"fmt"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/isovist"
	"spatialdoc/core-go/internal/spatial"
)

func requireProcessed(l *spatial.LatticeMap) error {
	if !l.IsProcessed() {
		return fmt.Errorf("lattice %q has no graph", l.Name())
	}
	return nil
}

// VisualGlobal computes visual mean depth and integration over the
// visibility graph within Radius steps (zero or less is global).
type VisualGlobal struct {
	Radius int
}

func (VisualGlobal) Name() string { return "visual_global" }

func (a VisualGlobal) Run(c comm.Communicator, l *spatial.LatticeMap) (Result, error) {
	if err := requireProcessed(l); err != nil {
		return Result{}, err
	}
	s := radiusSuffix(float64(a.Radius))
	res := newResult("Visual Mean Depth"+s, "Visual Integration [HH]"+s, "Visual Node Count"+s)
	res.Display = "Visual Integration [HH]" + s
	g := latticeGraph(l)
	if err := g.forEachKey(c, func(key int) {
		depths := g.stepDepths([]int{key}, a.Radius)
		total := 0
		for _, d := range depths {
			total += d
		}
		k := len(depths)
		res.set(key, 2, float64(k))
		if k > 1 {
			md := float64(total) / float64(k-1)
			res.set(key, 0, md)
			res.set(key, 1, integrationHH(md, k))
		}
	}); err != nil {
		return Result{}, err
	}
	res.Completed = true
	return res, nil
}

// VisualLocal computes clustering coefficient and control.
type VisualLocal struct{}

func (VisualLocal) Name() string { return "visual_local" }

func (VisualLocal) Run(c comm.Communicator, l *spatial.LatticeMap) (Result, error) {
	if err := requireProcessed(l); err != nil {
		return Result{}, err
	}
	res := newResult("Visual Clustering Coefficient", "Visual Control")
	res.Display = "Visual Clustering Coefficient"
	g := latticeGraph(l)
	linked := make(map[[2]int]bool)
	for _, k := range g.keys {
		for _, a := range g.adj[k] {
			linked[[2]int{k, a.to}] = true
		}
	}
	if err := g.forEachKey(c, func(key int) {
		ns := g.adj[key]
		var control float64
		for _, a := range ns {
			if d := len(g.adj[a.to]); d > 0 {
				control += 1 / float64(d)
			}
		}
		res.set(key, 1, control)
		if len(ns) < 2 {
			return
		}
		links := 0
		for i := range ns {
			for j := i + 1; j < len(ns); j++ {
				if linked[[2]int{ns[i].to, ns[j].to}] {
					links++
				}
			}
		}
		pairs := len(ns) * (len(ns) - 1) / 2
		res.set(key, 0, float64(links)/float64(pairs))
	}); err != nil {
		return Result{}, err
	}
	res.Completed = true
	return res, nil
}

// VisualStepDepth counts visibility steps from the nearest origin point.
type VisualStepDepth struct {
	Origins []int
}

func (VisualStepDepth) Name() string { return "visual_step_depth" }

func (a VisualStepDepth) Run(c comm.Communicator, l *spatial.LatticeMap) (Result, error) {
	if err := requireProcessed(l); err != nil {
		return Result{}, err
	}
	return stepDepthResult(c, latticeGraph(l), a.Origins, "Visual Step Depth")
}

// MetricStepDepth is the shortest path length through mutually visible points
// from the nearest origin.
type MetricStepDepth struct {
	Origins []int
}

func (MetricStepDepth) Name() string { return "metric_step_depth" }

func (a MetricStepDepth) Run(c comm.Communicator, l *spatial.LatticeMap) (Result, error) {
	if err := requireProcessed(l); err != nil {
		return Result{}, err
	}
	if len(a.Origins) == 0 {
		return Result{}, fmt.Errorf("metric step depth needs at least one origin")
	}
	const col = "Metric Step Shortest-Path Length"
	res := newResult(col)
	res.Display = col
	g := latticeGraph(l)
	depths := g.weightedDepths(a.Origins, func(a arc) float64 { return a.metric }, 0)
	if err := g.forEachKey(c, func(key int) {
		if d, ok := depths[key]; ok {
			res.set(key, 0, d)
		}
	}); err != nil {
		return Result{}, err
	}
	res.Completed = true
	return res, nil
}

// IsovistArea casts a full isovist from every filled point against the
// lattice's blocking lines. It does not need the visibility graph.
type IsovistArea struct{}

func (IsovistArea) Name() string { return "isovist" }

func (IsovistArea) Run(c comm.Communicator, l *spatial.LatticeMap) (Result, error) {
	var p isovist.Partition
	ok, err := p.Build(c, l.Blockers())
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, fmt.Errorf("lattice %q has no blocking lines", l.Name())
	}
	res := newResult(isovist.ColumnArea, isovist.ColumnPerimeter, isovist.ColumnMaxRadial)
	res.Display = isovist.ColumnArea
	g := newGraph(l.Keys())
	region := l.Region()
	if err := g.forEachKey(c, func(key int) {
		origin := l.Depixelate(spatial.PixelFromKey(key))
		iso := p.Make(origin, region.Expanded(r2.Point{X: l.Spacing(), Y: l.Spacing()}), 0, 0)
		res.set(key, 0, iso.Area)
		res.set(key, 1, iso.Perimeter)
		res.set(key, 2, iso.MaxRadial)
	}); err != nil {
		return Result{}, err
	}
	res.Completed = true
	return res, nil
}
