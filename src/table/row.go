package table

import (
	"math"
	"time"
)

// Row is a read view over one table row.
type Row struct {
	t *Table
	i int
}

// Index is the row position in its table.
func (r Row) Index() int { return r.i }

// Value returns the raw cell.
func (r Row) Value(col string) interface{} { return r.t.Value(r.i, col) }

// IsNull reports a missing column, a nil cell or a NaN float.
func (r Row) IsNull(col string) bool {
	if !r.t.Has(col) {
		return true
	}
	switch v := r.Value(col).(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	}
	return false
}

// AllPresent reports whether every column is non-null.
func (r Row) AllPresent(cols ...string) bool {
	for _, c := range cols {
		if r.IsNull(c) {
			return false
		}
	}
	return true
}

// AnyPresent reports whether at least one column is non-null.
func (r Row) AnyPresent(cols ...string) bool {
	for _, c := range cols {
		if !r.IsNull(c) {
			return true
		}
	}
	return false
}

// Float coerces the cell to float64.
func (r Row) Float(col string) (float64, bool) { return ToFloat(r.Value(col)) }

// String renders the cell as a string; nulls become "".
func (r Row) String(col string) string {
	if r.IsNull(col) {
		return ""
	}
	return ToString(r.Value(col))
}

// Time parses the cell as a timestamp.
func (r Row) Time(col string) (time.Time, bool) { return ToTime(r.Value(col)) }

// Strings reads list-like cells such as ticker arrays.
func (r Row) Strings(col string) []string { return ToStrings(r.Value(col)) }
