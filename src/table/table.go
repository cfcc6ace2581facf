// Package table provides a small column-oriented in-memory dataset used by the
// validation checks. Cells are untyped; typed access goes through Row accessors
// that coerce heterogeneous source values.
package table

import (
	"sort"
)

// Table stores cells column-major.
type Table struct {
	columns []string
	index   map[string]int
	cells   [][]interface{}
	n       int
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	t := &Table{index: map[string]int{}}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

// FromRecords builds a table from row maps. Columns are the sorted union of keys;
// absent keys become nil cells.
func FromRecords(records []map[string]interface{}) *Table {
	seen := map[string]struct{}{}
	for _, r := range records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	t := New(cols...)
	for _, r := range records {
		t.Append(r)
	}
	return t
}

func (t *Table) addColumn(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.columns = append(t.columns, name)
	t.index[name] = len(t.columns) - 1
	t.cells = append(t.cells, make([]interface{}, t.n))
	return len(t.columns) - 1
}

// Len is the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.n
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.Len() == 0 }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

// Has reports whether the column exists.
func (t *Table) Has(col string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[col]
	return ok
}

// Missing returns the requested columns that the table lacks, in request order.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Append adds a row. Keys that are not yet columns become new columns.
func (t *Table) Append(values map[string]interface{}) {
	for k := range values {
		if _, ok := t.index[k]; !ok {
			t.addColumn(k)
		}
	}
	for i, c := range t.columns {
		t.cells[i] = append(t.cells[i], values[c])
	}
	t.n++
}

// Value returns the raw cell, or nil for an unknown column.
func (t *Table) Value(row int, col string) interface{} {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= t.n {
		return nil
	}
	return t.cells[i][row]
}

// Set writes a cell, creating the column when needed.
func (t *Table) Set(row int, col string, v interface{}) {
	if row < 0 || row >= t.n {
		return
	}
	i := t.addColumn(col)
	t.cells[i][row] = v
}

// Column returns a copy of one column's cells.
func (t *Table) Column(col string) []interface{} {
	i, ok := t.index[col]
	if !ok {
		return nil
	}
	return append([]interface{}(nil), t.cells[i]...)
}

// Row returns a view over row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Rows returns views over every row in order.
func (t *Table) Rows() []Row {
	out := make([]Row, t.Len())
	for i := range out {
		out[i] = Row{t: t, i: i}
	}
	return out
}

// ResolveAlias makes sure target exists, copying the first alias column found.
// It returns the column the values came from.
func (t *Table) ResolveAlias(target string, aliases ...string) (string, bool) {
	if t.Has(target) {
		return target, true
	}
	for _, a := range aliases {
		if !t.Has(a) {
			continue
		}
		src := t.cells[t.index[a]]
		i := t.addColumn(target)
		copy(t.cells[i], src)
		return a, true
	}
	return "", false
}

func (t *Table) pick(rows []int) *Table {
	if t == nil {
		return New()
	}
	out := New(t.columns...)
	for ci := range t.columns {
		col := make([]interface{}, len(rows))
		for j, r := range rows {
			col[j] = t.cells[ci][r]
		}
		out.cells[ci] = col
	}
	out.n = len(rows)
	return out
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	var rows []int
	for i := 0; i < t.Len(); i++ {
		if keep(Row{t: t, i: i}) {
			rows = append(rows, i)
		}
	}
	return t.pick(rows)
}

// SortStable returns a new table ordered by less, keeping input order for ties.
func (t *Table) SortStable(less func(a, b Row) bool) *Table {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return less(Row{t: t, i: rows[a]}, Row{t: t, i: rows[b]})
	})
	return t.pick(rows)
}

// SortByTime orders rows by a time column. Unparseable times sort last.
func (t *Table) SortByTime(col string) *Table {
	return t.SortStable(func(a, b Row) bool {
		ta, okA := a.Time(col)
		tb, okB := b.Time(col)
		switch {
		case okA && okB:
			return ta.Before(tb)
		case okA:
			return true
		default:
			return false
		}
	})
}

// Head returns at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.Len() {
		n = t.Len()
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.pick(rows)
}

// Group is one key's slice of a table.
type Group struct {
	Key   string
	Table *Table
}

// GroupBy splits rows by the string form of col, ordered by first appearance.
// Rows with a null key are dropped.
func (t *Table) GroupBy(col string) []Group {
	var order []string
	members := map[string][]int{}
	for i := 0; i < t.Len(); i++ {
		r := Row{t: t, i: i}
		if r.IsNull(col) {
			continue
		}
		k := r.String(col)
		if _, ok := members[k]; !ok {
			order = append(order, k)
		}
		members[k] = append(members[k], i)
	}
	out := make([]Group, 0, len(order))
	for _, k := range order {
		out = append(out, Group{Key: k, Table: t.pick(members[k])})
	}
	return out
}

// Unique returns the distinct non-null string values of col in appearance order.
func (t *Table) Unique(col string) []string {
	var out []string
	seen := map[string]struct{}{}
	for i := 0; i < t.Len(); i++ {
		r := Row{t: t, i: i}
		if r.IsNull(col) {
			continue
		}
		k := r.String(col)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Records converts the table back to row maps.
func (t *Table) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, t.Len())
	for i := range out {
		rec := make(map[string]interface{}, len(t.columns))
		for ci, c := range t.columns {
			rec[c] = t.cells[ci][i]
		}
		out[i] = rec
	}
	return out
}

// Pivot is a two-key lookup built from a long table.
type Pivot struct {
	Index   []string
	Columns []string
	cells   map[string]map[string]interface{}
}

// Pivot reshapes rows into index x column cells keeping the first non-null value.
func (t *Table) Pivot(indexCol, columnCol, valueCol string) *Pivot {
	p := &Pivot{cells: map[string]map[string]interface{}{}}
	seenCol := map[string]struct{}{}
	for i := 0; i < t.Len(); i++ {
		r := Row{t: t, i: i}
		if r.IsNull(indexCol) || r.IsNull(columnCol) || r.IsNull(valueCol) {
			continue
		}
		ik, ck := r.String(indexCol), r.String(columnCol)
		row, ok := p.cells[ik]
		if !ok {
			row = map[string]interface{}{}
			p.cells[ik] = row
			p.Index = append(p.Index, ik)
		}
		if _, ok := seenCol[ck]; !ok {
			seenCol[ck] = struct{}{}
			p.Columns = append(p.Columns, ck)
		}
		if _, exists := row[ck]; !exists {
			row[ck] = r.Value(valueCol)
		}
	}
	return p
}

// Value returns the cell at (index, column) or nil.
func (p *Pivot) Value(index, column string) interface{} {
	return p.cells[index][column]
}

// Float returns the cell coerced to float.
func (p *Pivot) Float(index, column string) (float64, bool) {
	v, ok := p.cells[index][column]
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}
