package attributes

import "sort"

// TableData is the serialisable form of a Table.
type TableData struct {
	Columns []Column          `json:"columns"`
	Rows    map[int][]float64 `json:"rows"`
	Display int               `json:"display"`
}

func (t *Table) Export() TableData {
	d := TableData{
		Columns: append([]Column(nil), t.columns...),
		Rows:    make(map[int][]float64, len(t.rows)),
		Display: t.displayCol,
	}
	for k, row := range t.rows {
		d.Rows[k] = append([]float64(nil), row...)
	}
	return d
}

// TableFromData rebuilds a table. Short rows are padded with NoValue.
func TableFromData(d TableData) *Table {
	t := NewTable()
	t.columns = append(t.columns, d.Columns...)
	t.displayCol = d.Display
	for k, row := range d.Rows {
		full := make([]float64, len(t.columns))
		for i := range full {
			full[i] = NoValue
			if i < len(row) {
				full[i] = row[i]
			}
		}
		t.rows[k] = full
		t.keys = append(t.keys, k)
	}
	sort.Ints(t.keys)
	return t
}
