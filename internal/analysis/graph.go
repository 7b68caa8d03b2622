package analysis

import (
	"container/heap"

	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/spatial"
)

type arc struct {
	to     int
	turn   float64
	metric float64
}

// graph is the adjacency view shared by shape graphs and lattices.
type graph struct {
	keys  []int
	nodes map[int]bool
	adj   map[int][]arc
}

func newGraph(keys []int) graph {
	g := graph{keys: keys, nodes: make(map[int]bool, len(keys)), adj: make(map[int][]arc)}
	for _, k := range keys {
		g.nodes[k] = true
	}
	return g
}

func shapeGraph(m *spatial.ShapeMap) graph {
	g := newGraph(m.Refs())
	for _, ref := range g.keys {
		a, _ := m.Shape(ref)
		ca := a.Centroid()
		for _, c := range m.Connections(ref) {
			b, ok := m.Shape(c.To)
			if !ok {
				continue
			}
			g.adj[ref] = append(g.adj[ref], arc{to: c.To, turn: c.Weight, metric: ca.Sub(b.Centroid()).Norm()})
		}
	}
	return g
}

func latticeGraph(l *spatial.LatticeMap) graph {
	g := newGraph(l.Keys())
	for _, k := range g.keys {
		pa := l.Depixelate(spatial.PixelFromKey(k))
		for _, n := range l.Neighbours(k) {
			pb := l.Depixelate(spatial.PixelFromKey(n))
			g.adj[k] = append(g.adj[k], arc{to: n, metric: pa.Sub(pb).Norm()})
		}
	}
	return g
}

// stepDepths runs a breadth-first search from origins, stopping beyond
// radius steps when radius > 0.
func (g graph) stepDepths(origins []int, radius int) map[int]int {
	depth := make(map[int]int, len(g.keys))
	queue := make([]int, 0, len(origins))
	for _, o := range origins {
		if _, seen := depth[o]; !seen && g.nodes[o] {
			depth[o] = 0
			queue = append(queue, o)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if radius > 0 && depth[n] >= radius {
			continue
		}
		for _, a := range g.adj[n] {
			if _, seen := depth[a.to]; !seen {
				depth[a.to] = depth[n] + 1
				queue = append(queue, a.to)
			}
		}
	}
	return depth
}

// weightedDepths runs Dijkstra from origins using cost, stopping beyond
// radius when radius > 0.
func (g graph) weightedDepths(origins []int, cost func(arc) float64, radius float64) map[int]float64 {
	dist := make(map[int]float64, len(g.keys))
	pq := &distQueue{}
	for _, o := range origins {
		if _, ok := dist[o]; ok || !g.nodes[o] {
			continue
		}
		dist[o] = 0
		heap.Push(pq, distItem{key: o})
	}
	for pq.Len() > 0 {
		it := heap.Pop(pq).(distItem)
		if it.d > dist[it.key] {
			continue
		}
		for _, a := range g.adj[it.key] {
			nd := it.d + cost(a)
			if radius > 0 && nd > radius {
				continue
			}
			if old, ok := dist[a.to]; !ok || nd < old {
				dist[a.to] = nd
				heap.Push(pq, distItem{key: a.to, d: nd})
			}
		}
	}
	return dist
}

type distItem struct {
	key int
	d   float64
}

type distQueue []distItem

func (q distQueue) Len() int           { return len(q) }
func (q distQueue) Less(i, j int) bool { return q[i].d < q[j].d }
func (q distQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *distQueue) Push(x any)        { *q = append(*q, x.(distItem)) }
func (q *distQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// forEachKey walks g.keys reporting progress and stopping on cancellation.
func (g graph) forEachKey(c comm.Communicator, fn func(key int)) error {
	c.PostRecords(len(g.keys))
	for i, k := range g.keys {
		if err := c.PostRecord(i); err != nil {
			return err
		}
		fn(k)
	}
	return nil
}
