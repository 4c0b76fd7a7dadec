// Package table holds an in-memory tabular dataset and the operations that
// standardize it: locating the real label row, mapping and merging labels,
// and dropping rows and columns left empty by null cleaning.
//
// Cells are untyped (any). A nil cell is the null marker. Operations mutate
// the table in place and never retain references to it after returning.
package table

import "fmt"

// Label is a column label. The zero value is the null label, used for
// columns whose label cell was empty in the source or was deliberately
// cleared.
type Label struct {
	Name  string
	Valid bool
}

// NewLabel returns a valid label with the given name.
func NewLabel(name string) Label {
	return Label{Name: name, Valid: true}
}

// Labels builds valid labels from names.
func Labels(names ...string) []Label {
	out := make([]Label, len(names))
	for i, n := range names {
		out[i] = NewLabel(n)
	}
	return out
}

func (l Label) String() string {
	if !l.Valid {
		return "<null>"
	}
	return l.Name
}

// Tabular is the minimal table abstraction the operations in this package
// work against. Row and column indexes are zero based.
type Tabular interface {
	RowCount() int
	ColumnCount() int
	Label(j int) Label
	SetLabel(j int, l Label)
	Cell(i, j int) any
	SetCell(i, j int, v any)
	// Column returns a copy of column j's values.
	Column(j int) []any
	// SetColumn replaces column j's values. len(values) must equal RowCount.
	SetColumn(j int, values []any)
	DropRows(idx ...int)
	DropColumns(idx ...int)
}

// Column is a labeled column of cells.
type Column struct {
	Label  Label
	Values []any
}

// Table is a column-major Tabular.
type Table struct {
	columns []Column
	rows    int
}

var _ Tabular = (*Table)(nil)

// New returns an empty table with the given labels and no rows.
func New(labels ...Label) *Table {
	t := &Table{columns: make([]Column, len(labels))}
	for j, l := range labels {
		t.columns[j] = Column{Label: l, Values: []any{}}
	}
	return t
}

// FromRows builds a table from row-major data. The table is as wide as the
// widest row or the label list, whichever is larger. Short rows are padded
// with nil and missing labels are null labels.
func FromRows(labels []Label, rows [][]any) *Table {
	width := len(labels)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	t := &Table{columns: make([]Column, width), rows: len(rows)}
	for j := range t.columns {
		if j < len(labels) {
			t.columns[j].Label = labels[j]
		}
		values := make([]any, len(rows))
		for i, r := range rows {
			if j < len(r) {
				values[i] = r[j]
			}
		}
		t.columns[j].Values = values
	}
	return t
}

// FromColumns builds a table from columns of equal length.
func FromColumns(cols ...Column) (*Table, error) {
	t := &Table{columns: make([]Column, len(cols))}
	for j, c := range cols {
		if j > 0 && len(c.Values) != t.rows {
			return nil, fmt.Errorf("column %d (%s) has %d values, want %d", j, c.Label, len(c.Values), t.rows)
		}
		if j == 0 {
			t.rows = len(c.Values)
		}
		values := make([]any, len(c.Values))
		copy(values, c.Values)
		t.columns[j] = Column{Label: c.Label, Values: values}
	}
	return t, nil
}

func (t *Table) RowCount() int    { return t.rows }
func (t *Table) ColumnCount() int { return len(t.columns) }

func (t *Table) Label(j int) Label       { return t.columns[j].Label }
func (t *Table) SetLabel(j int, l Label) { t.columns[j].Label = l }

func (t *Table) Cell(i, j int) any       { return t.columns[j].Values[i] }
func (t *Table) SetCell(i, j int, v any) { t.columns[j].Values[i] = v }

func (t *Table) Column(j int) []any {
	out := make([]any, t.rows)
	copy(out, t.columns[j].Values)
	return out
}

func (t *Table) SetColumn(j int, values []any) {
	if len(values) != t.rows {
		panic(fmt.Sprintf("table: SetColumn(%d) with %d values, table has %d rows", j, len(values), t.rows))
	}
	cp := make([]any, len(values))
	copy(cp, values)
	t.columns[j].Values = cp
}

// LabelSlice returns a copy of the table's labels.
func (t *Table) LabelSlice() []Label {
	out := make([]Label, len(t.columns))
	for j, c := range t.columns {
		out[j] = c.Label
	}
	return out
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.columns))
	for j, c := range t.columns {
		out[j] = c.Values[i]
	}
	return out
}

// Rows returns the table as row-major data.
func (t *Table) Rows() [][]any {
	out := make([][]any, t.rows)
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// AppendRow adds a row. Extra values are ignored and missing ones are nil.
func (t *Table) AppendRow(values ...any) {
	for j := range t.columns {
		var v any
		if j < len(values) {
			v = values[j]
		}
		t.columns[j].Values = append(t.columns[j].Values, v)
	}
	t.rows++
}

// DropRows removes the rows at the given indexes. Out of range and repeated
// indexes are ignored.
func (t *Table) DropRows(idx ...int) {
	drop := indexSet(idx, t.rows)
	if len(drop) == 0 {
		return
	}
	for j := range t.columns {
		kept := t.columns[j].Values[:0]
		for i, v := range t.columns[j].Values {
			if !drop[i] {
				kept = append(kept, v)
			}
		}
		clear(t.columns[j].Values[len(kept):])
		t.columns[j].Values = kept
	}
	t.rows -= len(drop)
}

// DropColumns removes the columns at the given indexes. Out of range and
// repeated indexes are ignored.
func (t *Table) DropColumns(idx ...int) {
	drop := indexSet(idx, len(t.columns))
	if len(drop) == 0 {
		return
	}
	kept := make([]Column, 0, len(t.columns)-len(drop))
	for j, c := range t.columns {
		if !drop[j] {
			kept = append(kept, c)
		}
	}
	t.columns = kept
}

// Clone returns a deep copy of the table's structure. Cell values are
// copied shallowly.
func (t *Table) Clone() *Table {
	c := &Table{columns: make([]Column, len(t.columns)), rows: t.rows}
	for j, col := range t.columns {
		values := make([]any, len(col.Values))
		copy(values, col.Values)
		c.columns[j] = Column{Label: col.Label, Values: values}
	}
	return c
}

func indexSet(idx []int, n int) map[int]bool {
	set := make(map[int]bool, len(idx))
	for _, i := range idx {
		if i >= 0 && i < n {
			set[i] = true
		}
	}
	return set
}

// rangeIndexes returns [from, to).
func rangeIndexes(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
