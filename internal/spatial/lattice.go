package spatial

import (
	"math"

	"github.com/golang/geo/r2"

	"spatialdoc/core-go/internal/attributes"
	"spatialdoc/core-go/internal/comm"
	"spatialdoc/core-go/internal/geometry"
)

// PixelRef addresses a lattice cell.
type PixelRef struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key packs the cell into the integer used as the attribute row key.
func (p PixelRef) Key() int { return p.X<<16 | p.Y }

func PixelFromKey(k int) PixelRef { return PixelRef{X: k >> 16, Y: k & 0xffff} }

type PointState uint8

const (
	PointEmpty   PointState = 0
	PointFilled  PointState = 1
	PointBlocked PointState = 2
)

type FillType uint8

const (
	// FillFull floods through edge-adjacent cells.
	FillFull FillType = iota
	// FillAugmented also floods through diagonal cells.
	FillAugmented
)

const maxGridSide = 1 << 15

// LatticeMap is a regular grid of points laid over the drawing region. Filled
// points carry attribute rows; once the graph is made each filled point
// knows its visible neighbours.
type LatticeMap struct {
	name       string
	region     r2.Rect
	spacing    float64
	origin     r2.Point
	cols, rows int
	cells      []PointState
	blockers   []geometry.Line
	table      *attributes.Table
	processed  bool
	neighbours map[int][]int
}

func NewLatticeMap(name string, region r2.Rect) *LatticeMap {
	return &LatticeMap{
		name:       name,
		region:     region,
		table:      attributes.NewTable(),
		neighbours: make(map[int][]int),
	}
}

func (l *LatticeMap) Name() string                      { return l.name }
func (l *LatticeMap) SetName(name string)               { l.name = name }
func (l *LatticeMap) AttributeTable() *attributes.Table { return l.table }
func (l *LatticeMap) Region() r2.Rect                   { return l.region }
func (l *LatticeMap) Spacing() float64                  { return l.spacing }
func (l *LatticeMap) GridSize() (cols, rows int)        { return l.cols, l.rows }
func (l *LatticeMap) IsProcessed() bool                 { return l.processed }
func (l *LatticeMap) HasGrid() bool                     { return l.spacing > 0 }

// NumPoints is the number of filled points.
func (l *LatticeMap) NumPoints() int { return l.table.NumRows() }

// Keys returns the filled point keys in ascending order.
func (l *LatticeMap) Keys() []int { return l.table.Keys() }

// SetGrid lays a grid of the given spacing over the region. offset shifts the
// grid origin inside one cell. Any existing points are discarded.
func (l *LatticeMap) SetGrid(spacing float64, offset r2.Point) bool {
	if spacing <= 0 || l.region.IsEmpty() {
		return false
	}
	size := l.region.Size()
	cols := int(math.Ceil(size.X/spacing)) + 2
	rows := int(math.Ceil(size.Y/spacing)) + 2
	if cols > maxGridSide || rows > maxGridSide {
		return false
	}
	l.spacing = spacing
	ox := math.Mod(offset.X, spacing)
	oy := math.Mod(offset.Y, spacing)
	l.origin = l.region.Lo().Sub(r2.Point{X: spacing - ox, Y: spacing - oy})
	l.cols, l.rows = cols, rows
	l.cells = make([]PointState, cols*rows)
	l.table = attributes.NewTable()
	l.processed = false
	l.neighbours = make(map[int][]int)
	l.applyBlockers()
	return true
}

func (l *LatticeMap) index(p PixelRef) (int, bool) {
	if p.X < 0 || p.Y < 0 || p.X >= l.cols || p.Y >= l.rows {
		return 0, false
	}
	return p.Y*l.cols + p.X, true
}

// Pixelate maps a point to the cell containing it.
func (l *LatticeMap) Pixelate(p r2.Point) (PixelRef, bool) {
	if !l.HasGrid() {
		return PixelRef{}, false
	}
	ref := PixelRef{
		X: int(math.Floor((p.X - l.origin.X) / l.spacing)),
		Y: int(math.Floor((p.Y - l.origin.Y) / l.spacing)),
	}
	_, ok := l.index(ref)
	return ref, ok
}

// Depixelate returns the centre of cell p.
func (l *LatticeMap) Depixelate(p PixelRef) r2.Point {
	return r2.Point{
		X: l.origin.X + (float64(p.X)+0.5)*l.spacing,
		Y: l.origin.Y + (float64(p.Y)+0.5)*l.spacing,
	}
}

// CellRect is the square covered by cell p.
func (l *LatticeMap) CellRect(p PixelRef) r2.Rect {
	lo := r2.Point{X: l.origin.X + float64(p.X)*l.spacing, Y: l.origin.Y + float64(p.Y)*l.spacing}
	return r2.RectFromPoints(lo, lo.Add(r2.Point{X: l.spacing, Y: l.spacing}))
}

func (l *LatticeMap) State(p PixelRef) PointState {
	i, ok := l.index(p)
	if !ok {
		return PointEmpty
	}
	return l.cells[i]
}

// Includes reports whether p is a filled point.
func (l *LatticeMap) Includes(p PixelRef) bool { return l.State(p)&PointFilled != 0 }

func (l *LatticeMap) Blocked(p PixelRef) bool { return l.State(p)&PointBlocked != 0 }

// BlockLines marks every cell crossed by one of lines as blocked and keeps the
// lines as visibility obstacles.
func (l *LatticeMap) BlockLines(lines []geometry.Line) {
	l.blockers = append(l.blockers, lines...)
	l.applyBlockers()
}

func (l *LatticeMap) applyBlockers() {
	if !l.HasGrid() {
		return
	}
	for _, ln := range l.blockers {
		lo, okLo := l.Pixelate(ln.Bounds().Lo())
		hi, okHi := l.Pixelate(ln.Bounds().Hi())
		if !okLo {
			lo = PixelRef{}
		}
		if !okHi {
			hi = PixelRef{X: l.cols - 1, Y: l.rows - 1}
		}
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				p := PixelRef{X: x, Y: y}
				if i, ok := l.index(p); ok && ln.IntersectsRect(l.CellRect(p)) {
					if l.cells[i]&PointFilled != 0 {
						l.table.RemoveRow(p.Key())
					}
					l.cells[i] = PointBlocked
				}
			}
		}
	}
}

// FillPoint adds (or with add false removes) the point under p. Blocked cells
// and processed maps refuse.
func (l *LatticeMap) FillPoint(p r2.Point, add bool) bool {
	if l.processed {
		return false
	}
	ref, ok := l.Pixelate(p)
	if !ok {
		return false
	}
	return l.setFilled(ref, add)
}

func (l *LatticeMap) setFilled(ref PixelRef, add bool) bool {
	i, ok := l.index(ref)
	if !ok || l.cells[i]&PointBlocked != 0 {
		return false
	}
	filled := l.cells[i]&PointFilled != 0
	switch {
	case add && !filled:
		l.cells[i] |= PointFilled
		l.table.AddRow(ref.Key())
		return true
	case !add && filled:
		l.cells[i] &^= PointFilled
		l.table.RemoveRow(ref.Key())
		return true
	default:
		return false
	}
}

// MakePoints floods filled points out from seed, stopping at blocked cells
// and the grid edge.
func (l *LatticeMap) MakePoints(c comm.Communicator, seed r2.Point, fill FillType) (bool, error) {
	if l.processed {
		return false, nil
	}
	start, ok := l.Pixelate(seed)
	if !ok || l.Blocked(start) {
		return false, nil
	}
	steps := []PixelRef{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	if fill == FillAugmented {
		steps = append(steps, PixelRef{1, 1}, PixelRef{1, -1}, PixelRef{-1, 1}, PixelRef{-1, -1})
	}
	c.PostRecords(l.cols * l.rows)
	queue := []PixelRef{start}
	seen := map[PixelRef]bool{start: true}
	added := 0
	for n := 0; len(queue) > 0; n++ {
		if err := c.PostRecord(n); err != nil {
			return false, err
		}
		p := queue[0]
		queue = queue[1:]
		if l.setFilled(p, true) {
			added++
		}
		for _, d := range steps {
			q := PixelRef{X: p.X + d.X, Y: p.Y + d.Y}
			if _, ok := l.index(q); !ok || seen[q] || l.Blocked(q) {
				continue
			}
			seen[q] = true
			queue = append(queue, q)
		}
	}
	return added > 0, nil
}

// ClearAllPoints empties the lattice, keeping the grid.
func (l *LatticeMap) ClearAllPoints() {
	for i := range l.cells {
		l.cells[i] &^= PointFilled
	}
	l.table = attributes.NewTable()
	l.processed = false
	l.neighbours = make(map[int][]int)
}

// ClearPointsIn removes the filled points whose centres lie in r.
func (l *LatticeMap) ClearPointsIn(r r2.Rect) int {
	if l.processed {
		return 0
	}
	n := 0
	for _, k := range l.Keys() {
		p := PixelFromKey(k)
		if r.ContainsPoint(l.Depixelate(p)) && l.setFilled(p, false) {
			n++
		}
	}
	return n
}

// ClearPoints removes the given keys, returning how many were filled.
func (l *LatticeMap) ClearPoints(keys []int) int {
	if l.processed {
		return 0
	}
	n := 0
	for _, k := range keys {
		if l.setFilled(PixelFromKey(k), false) {
			n++
		}
	}
	return n
}

// MakeGraph links every pair of filled points that can see each other within
// maxDist (unlimited when maxDist <= 0) and writes the locked connectivity
// column.
func (l *LatticeMap) MakeGraph(c comm.Communicator, maxDist float64) (bool, error) {
	keys := l.Keys()
	if len(keys) == 0 {
		return false, nil
	}
	neighbours := make(map[int][]int, len(keys))
	c.PostRecords(len(keys))
	for i, a := range keys {
		if err := c.PostRecord(i); err != nil {
			return false, err
		}
		pa := l.Depixelate(PixelFromKey(a))
		for _, b := range keys[i+1:] {
			pb := l.Depixelate(PixelFromKey(b))
			if maxDist > 0 && pa.Sub(pb).Norm() > maxDist {
				continue
			}
			if !l.Visible(pa, pb) {
				continue
			}
			neighbours[a] = append(neighbours[a], b)
			neighbours[b] = append(neighbours[b], a)
		}
	}
	l.neighbours = neighbours
	col := l.table.InsertOrResetLockedColumn(ColumnConnectivity)
	for _, k := range keys {
		l.table.SetValue(k, col, float64(len(neighbours[k])))
	}
	l.processed = true
	return true, nil
}

// Visible reports whether the segment a-b clears every blocking line.
func (l *LatticeMap) Visible(a, b r2.Point) bool {
	sight := geometry.Line{Start: a, End: b}
	for _, ln := range l.blockers {
		if sight.Intersects(ln, geometry.Tolerance) {
			return false
		}
	}
	return true
}

// Blockers returns the visibility obstacles.
func (l *LatticeMap) Blockers() []geometry.Line { return append([]geometry.Line(nil), l.blockers...) }

// Unmake drops the graph. Filled points stay; graph attributes are removed
// when removeAttributes is set.
func (l *LatticeMap) Unmake(removeAttributes bool) bool {
	if !l.processed {
		return false
	}
	l.processed = false
	l.neighbours = make(map[int][]int)
	if removeAttributes {
		t := attributes.NewTable()
		for _, k := range l.table.Keys() {
			t.AddRow(k)
		}
		l.table = t
	}
	return true
}

// Neighbours returns the points visible from key.
func (l *LatticeMap) Neighbours(key int) []int {
	return append([]int(nil), l.neighbours[key]...)
}

// LocationValue reads col for the filled point under p.
func (l *LatticeMap) LocationValue(p r2.Point, col int) float64 {
	ref, ok := l.Pixelate(p)
	if !ok || !l.Includes(ref) {
		return attributes.NoValue
	}
	return l.table.Value(ref.Key(), col)
}

// PointsIn returns the keys of filled points whose centres are in r.
func (l *LatticeMap) PointsIn(r r2.Rect) []int {
	var out []int
	for _, k := range l.Keys() {
		if r.ContainsPoint(l.Depixelate(PixelFromKey(k))) {
			out = append(out, k)
		}
	}
	return out
}
