package table

import "strings"

// Row maps column names to cells. Absent keys read as Null.
type Row map[string]Value

// Get returns the cell for col, Null when absent.
func (r Row) Get(col string) Value {
	if r == nil {
		return Null()
	}
	return r[col]
}

// Clone returns a shallow copy; Values are immutable so this is a full copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRows copies a row sequence so callers can hand a working buffer to an
// in-place transform without touching the original.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// IsEmpty reports whether every cell of r is missing.
func (r Row) IsEmpty() bool {
	for _, v := range r {
		if !v.IsMissing() {
			return false
		}
	}
	return true
}

// Fingerprint serializes the row field by field in header order. Rows with equal
// fingerprints are exact duplicates.
func (r Row) Fingerprint(headers []string) string {
	var b strings.Builder
	for i, h := range headers {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(r.Get(h).Key())
	}
	return b.String()
}

// Column extracts the cells of one column in row order.
func Column(rows []Row, col string) []Value {
	out := make([]Value, len(rows))
	for i, r := range rows {
		out[i] = r.Get(col)
	}
	return out
}
