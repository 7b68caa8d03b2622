// Package attributes implements the columnar attribute table carried by every
// map: named columns, rows keyed by reference number, and the authoritative
// display column consulted by map views.
package attributes

import (
	"math"
	"sort"
)

// NoValue marks a cell that has not been computed.
const NoValue = -1.0

const (
	// DisplayUninitialised marks a display column that has never been set
	// or has been invalidated by a column removal.
	DisplayUninitialised = -2
	// DisplayRefColumn selects the reference-number pseudo-column.
	DisplayRefColumn = -1
)

type Column struct {
	Name   string `json:"name"`
	Locked bool   `json:"locked"`
}

type Stats struct {
	Min   float64
	Max   float64
	Total float64
	Count int
}

// Table is not safe for concurrent use; the owning document serialises access.
type Table struct {
	columns    []Column
	keys       []int
	rows       map[int][]float64
	displayCol int
}

func NewTable() *Table {
	return &Table{rows: make(map[int][]float64), displayCol: DisplayUninitialised}
}

func (t *Table) NumColumns() int { return len(t.columns) }

func (t *Table) NumRows() int { return len(t.keys) }

func (t *Table) Column(i int) Column { return t.columns[i] }

func (t *Table) ColumnName(i int) string {
	if i == DisplayRefColumn {
		return "Ref Number"
	}
	if i < 0 || i >= len(t.columns) {
		return ""
	}
	return t.columns[i].Name
}

// ColumnIndex looks up a column by exact name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// IsLocked reports whether column i is locked. The ref column is always locked.
func (t *Table) IsLocked(i int) bool {
	if i == DisplayRefColumn {
		return true
	}
	if i < 0 || i >= len(t.columns) {
		return false
	}
	return t.columns[i].Locked
}

// InsertOrResetColumn returns the index of name, clearing its values when it
// already exists and appending it otherwise.
func (t *Table) InsertOrResetColumn(name string) int {
	return t.insertOrReset(name, false)
}

// InsertOrResetLockedColumn is InsertOrResetColumn for locked columns.
func (t *Table) InsertOrResetLockedColumn(name string) int {
	return t.insertOrReset(name, true)
}

func (t *Table) insertOrReset(name string, locked bool) int {
	if i, ok := t.ColumnIndex(name); ok {
		t.columns[i].Locked = t.columns[i].Locked || locked
		for _, k := range t.keys {
			t.rows[k][i] = NoValue
		}
		return i
	}
	return t.appendColumn(name, locked)
}

// GetOrInsertColumn returns the index of name, appending it when missing.
// Existing values are left untouched.
func (t *Table) GetOrInsertColumn(name string) int {
	if i, ok := t.ColumnIndex(name); ok {
		return i
	}
	return t.appendColumn(name, false)
}

// GetOrInsertLockedColumn is GetOrInsertColumn for locked columns.
func (t *Table) GetOrInsertLockedColumn(name string) int {
	if i, ok := t.ColumnIndex(name); ok {
		t.columns[i].Locked = true
		return i
	}
	return t.appendColumn(name, true)
}

func (t *Table) appendColumn(name string, locked bool) int {
	t.columns = append(t.columns, Column{Name: name, Locked: locked})
	for _, k := range t.keys {
		t.rows[k] = append(t.rows[k], NoValue)
	}
	return len(t.columns) - 1
}

// RemoveColumn deletes column i. Later columns shift down by one and the
// display column follows them; removing the displayed column resets it.
func (t *Table) RemoveColumn(i int) bool {
	if i < 0 || i >= len(t.columns) {
		return false
	}
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	for _, k := range t.keys {
		row := t.rows[k]
		t.rows[k] = append(row[:i], row[i+1:]...)
	}
	switch {
	case t.displayCol == i:
		t.displayCol = DisplayUninitialised
	case t.displayCol > i:
		t.displayCol--
	}
	return true
}

func (t *Table) RenameColumn(i int, name string) bool {
	if i < 0 || i >= len(t.columns) || t.HasColumn(name) {
		return false
	}
	t.columns[i].Name = name
	return true
}

// AddRow appends a row for key with every column unset. Adding an existing
// key is a no-op.
func (t *Table) AddRow(key int) {
	if _, ok := t.rows[key]; ok {
		return
	}
	row := make([]float64, len(t.columns))
	for i := range row {
		row[i] = NoValue
	}
	t.rows[key] = row
	pos := sort.SearchInts(t.keys, key)
	t.keys = append(t.keys, 0)
	copy(t.keys[pos+1:], t.keys[pos:])
	t.keys[pos] = key
}

func (t *Table) RemoveRow(key int) bool {
	if _, ok := t.rows[key]; !ok {
		return false
	}
	delete(t.rows, key)
	pos := sort.SearchInts(t.keys, key)
	t.keys = append(t.keys[:pos], t.keys[pos+1:]...)
	return true
}

func (t *Table) HasRow(key int) bool {
	_, ok := t.rows[key]
	return ok
}

// Keys returns the row keys in ascending order. The slice is a copy.
func (t *Table) Keys() []int {
	return append([]int(nil), t.keys...)
}

// Value returns the cell at (key, col). The ref column yields the key itself.
func (t *Table) Value(key, col int) float64 {
	if col == DisplayRefColumn {
		return float64(key)
	}
	row, ok := t.rows[key]
	if !ok || col < 0 || col >= len(row) {
		return NoValue
	}
	return row[col]
}

func (t *Table) SetValue(key, col int, v float64) {
	row, ok := t.rows[key]
	if !ok || col < 0 || col >= len(row) {
		return
	}
	row[col] = v
}

// IncrValue adds delta to a cell, treating an unset cell as zero.
func (t *Table) IncrValue(key, col int, delta float64) {
	row, ok := t.rows[key]
	if !ok || col < 0 || col >= len(row) {
		return
	}
	if row[col] == NoValue {
		row[col] = 0
	}
	row[col] += delta
}

// Stats summarises the set values of column col.
func (t *Table) Stats(col int) Stats {
	s := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, k := range t.keys {
		v := t.Value(k, col)
		if v == NoValue && col != DisplayRefColumn {
			continue
		}
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		s.Total += v
		s.Count++
	}
	if s.Count == 0 {
		s.Min, s.Max = NoValue, NoValue
	}
	return s
}

// SelectionAverage averages col over refs, skipping unset cells. It returns
// NoValue when nothing contributes.
func (t *Table) SelectionAverage(col int, refs []int) float64 {
	var total float64
	var n int
	for _, k := range refs {
		if !t.HasRow(k) {
			continue
		}
		v := t.Value(k, col)
		if v == NoValue && col != DisplayRefColumn {
			continue
		}
		total += v
		n++
	}
	if n == 0 {
		return NoValue
	}
	return total / float64(n)
}

// DisplayColumn is the authoritative display column. It starts uninitialised.
func (t *Table) DisplayColumn() int { return t.displayCol }

func (t *Table) SetDisplayColumn(col int) { t.displayCol = col }

// Clone deep-copies the table including its display column.
func (t *Table) Clone() *Table {
	out := &Table{
		columns:    append([]Column(nil), t.columns...),
		keys:       append([]int(nil), t.keys...),
		rows:       make(map[int][]float64, len(t.rows)),
		displayCol: t.displayCol,
	}
	for k, row := range t.rows {
		out.rows[k] = append([]float64(nil), row...)
	}
	return out
}
