package convert

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
	"spatialdoc/core-go/internal/spatial"
)

const (
	AllLineMapName        = "All-Line Map"
	FewestLineSubsetsName = "Fewest-Line Map (Subsets)"
	FewestLineMinimalName = "Fewest-Line Map (Minimal)"
)

// AllLineMap draws every line through a pair of mutually visible drawing
// vertices, extended until it meets a wall, and keeps those reachable from
// seed through line intersections.
func (e Engine) AllLineMap(c comm.Communicator, layers []*spatial.ShapeMap, region r2.Rect, seed r2.Point) (*spatial.ShapeMap, error) {
	tol := e.tol()
	var walls []geometry.Line
	for _, l := range layerLines(layers) {
		walls = append(walls, l.line)
	}
	if len(walls) == 0 {
		return nil, ErrNothingToConvert
	}
	verts := vertices(walls, tol)
	reach := 2 * (region.Size().Norm() + 1)

	c.PostSteps(3)
	c.PostStep(1)
	c.PostRecords(len(verts))
	var candidates []sourceLine
	for i := range verts {
		if err := c.PostRecord(i); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(verts); j++ {
			a, b := verts[i], verts[j]
			if !clearSight(a, b, walls, tol) {
				continue
			}
			l := geometry.Line{
				Start: extend(a, a.Sub(b), walls, reach, tol),
				End:   extend(b, b.Sub(a), walls, reach, tol),
			}
			candidates = append(candidates, sourceLine{line: l})
		}
	}
	candidates = dedupe(candidates, math.Max(tol, 1e-6))

	c.PostStep(2)
	m := spatial.NewShapeMap(AllLineMapName, spatial.TypeAllLine)
	for _, l := range candidates {
		m.AppendShape(geometry.LineShape(l.line))
	}
	if err := m.BuildConnections(c); err != nil {
		return nil, err
	}

	c.PostStep(3)
	var starts []int
	for _, ref := range m.Refs() {
		s, _ := m.Shape(ref)
		l, _ := s.Line()
		if seesLine(seed, l, walls, tol) {
			starts = append(starts, ref)
		}
	}
	if len(starts) == 0 {
		return nil, ErrNothingToConvert
	}
	keep := reachable(m, starts)
	for _, ref := range m.Refs() {
		if !keep[ref] {
			m.RemoveShape(ref)
		}
	}
	m.WriteLengths(spatial.ColumnLineLength)
	return m, nil
}

// FewestLineMaps reduces an all-line map. The subsets map drops every line
// whose connections are all reached by another single line; the minimal map
// then drops lines while the rest stay connected and every all-line still
// meets a kept line.
func (e Engine) FewestLineMaps(c comm.Communicator, allLine *spatial.ShapeMap) (*spatial.ShapeMap, *spatial.ShapeMap, error) {
	if allLine == nil || allLine.NumShapes() == 0 {
		return nil, nil, ErrNothingToConvert
	}
	refs := byLength(allLine)
	adj := make(map[int]map[int]bool, len(refs))
	for _, r := range refs {
		adj[r] = make(map[int]bool)
		for _, cn := range allLine.Connections(r) {
			adj[r][cn.To] = true
		}
	}

	c.PostSteps(2)
	c.PostStep(1)
	c.PostRecords(len(refs))
	kept := make(map[int]bool, len(refs))
	for _, r := range refs {
		kept[r] = true
	}
	for i, a := range refs {
		if err := c.PostRecord(i); err != nil {
			return nil, nil, err
		}
		for _, b := range refs {
			if b == a || !kept[b] {
				continue
			}
			if subsetOf(adj[a], adj[b], b, kept) {
				kept[a] = false
				break
			}
		}
	}
	subsets := keptCopy(allLine, FewestLineSubsetsName, refs, kept)

	c.PostStep(2)
	c.PostRecords(len(refs))
	minimal := make(map[int]bool, len(kept))
	for r, k := range kept {
		minimal[r] = k
	}
	for i, r := range refs {
		if err := c.PostRecord(i); err != nil {
			return nil, nil, err
		}
		if !minimal[r] {
			continue
		}
		minimal[r] = false
		if !connected(adj, minimal) || !covers(adj, minimal) {
			minimal[r] = true
		}
	}
	minimalMap := keptCopy(allLine, FewestLineMinimalName, refs, minimal)

	for _, m := range []*spatial.ShapeMap{subsets, minimalMap} {
		if err := m.BuildConnections(c); err != nil {
			return nil, nil, err
		}
		m.WriteLengths(spatial.ColumnLineLength)
	}
	return subsets, minimalMap, nil
}

func vertices(lines []geometry.Line, tol float64) []r2.Point {
	seen := make(map[[2]int64]bool)
	var out []r2.Point
	for _, l := range lines {
		for _, p := range []r2.Point{l.Start, l.End} {
			k := [2]int64{int64(math.Round(p.X / tol)), int64(math.Round(p.Y / tol))}
			if !seen[k] {
				seen[k] = true
				out = append(out, p)
			}
		}
	}
	return out
}

func clearSight(a, b r2.Point, walls []geometry.Line, tol float64) bool {
	sight := geometry.Line{Start: a, End: b}
	if sight.Length() <= tol {
		return false
	}
	for _, w := range walls {
		if sight.Crosses(w, tol) {
			return false
		}
	}
	return true
}

// seesLine reports whether seed has a clear view of the nearest point of l.
// The sight line stops just short of l so a wall under l does not block it.
func seesLine(seed r2.Point, l geometry.Line, walls []geometry.Line, tol float64) bool {
	nearest := l.PointAt(projectOnto(seed, l))
	d := nearest.Sub(seed)
	if d.Norm() <= tol {
		return true
	}
	return clearSight(seed, seed.Add(d.Mul(1-1e-6)), walls, tol)
}

// extend pushes p along dir to the first wall hit. Without a hit p stays put.
func extend(p, dir r2.Point, walls []geometry.Line, reach, tol float64) r2.Point {
	n := dir.Norm()
	if n == 0 {
		return p
	}
	ray := geometry.Line{Start: p, End: p.Add(dir.Mul(reach / n))}
	eps := tol / reach
	best := math.Inf(1)
	for _, w := range walls {
		if t, _, ok := ray.Intersection(w, tol); ok && t > eps && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return p
	}
	return ray.PointAt(best)
}

func projectOnto(p r2.Point, l geometry.Line) float64 {
	v := l.Vector()
	vv := v.Dot(v)
	if vv == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, p.Sub(l.Start).Dot(v)/vv))
}

func reachable(m *spatial.ShapeMap, starts []int) map[int]bool {
	seen := make(map[int]bool)
	queue := append([]int(nil), starts...)
	for _, s := range starts {
		seen[s] = true
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, cn := range m.Connections(n) {
			if !seen[cn.To] {
				seen[cn.To] = true
				queue = append(queue, cn.To)
			}
		}
	}
	return seen
}

// byLength orders refs shortest first, ties by ref.
func byLength(m *spatial.ShapeMap) []int {
	refs := m.Refs()
	length := make(map[int]float64, len(refs))
	for _, r := range refs {
		s, _ := m.Shape(r)
		length[r] = s.Length()
	}
	sort.SliceStable(refs, func(i, j int) bool { return length[refs[i]] < length[refs[j]] })
	return refs
}

// subsetOf reports whether every kept neighbour of a other than b is also a
// neighbour of b.
func subsetOf(na, nb map[int]bool, b int, kept map[int]bool) bool {
	if !na[b] {
		return false
	}
	for n := range na {
		if n == b || !kept[n] {
			continue
		}
		if !nb[n] {
			return false
		}
	}
	return true
}

func connected(adj map[int]map[int]bool, kept map[int]bool) bool {
	start := -1
	total := 0
	for r, k := range kept {
		if k {
			total++
			if start < 0 || r < start {
				start = r
			}
		}
	}
	if total == 0 {
		return false
	}
	seen := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for m := range adj[n] {
			if kept[m] && !seen[m] {
				seen[m] = true
				queue = append(queue, m)
			}
		}
	}
	return len(seen) == total
}

// covers reports whether every line is kept or meets a kept line.
func covers(adj map[int]map[int]bool, kept map[int]bool) bool {
	for r := range adj {
		if kept[r] {
			continue
		}
		ok := false
		for n := range adj[r] {
			if kept[n] {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func keptCopy(src *spatial.ShapeMap, name string, refs []int, kept map[int]bool) *spatial.ShapeMap {
	m := spatial.NewShapeMap(name, spatial.TypeAxial)
	ordered := append([]int(nil), refs...)
	sort.Ints(ordered)
	for _, r := range ordered {
		if !kept[r] {
			continue
		}
		s, _ := src.Shape(r)
		m.AppendShapeAt(r, s.Clone())
	}
	return m
}
