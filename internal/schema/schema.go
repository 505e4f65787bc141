// Package schema infers column types and per-column statistics from rows.
package schema

import (
	"math"

	"github.com/KaramelBytes/tabloom-cli/internal/normalize"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Type is the inferred column type.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeDate    Type = "date"
	TypeBoolean Type = "boolean"
)

// Stats holds per-column statistics. Min, Max and Avg are set for numeric
// columns only; the extended fields are filled by the EDA path on demand.
type Stats struct {
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Avg         *float64 `json:"avg,omitempty"`
	NullCount   int      `json:"nullCount"`
	UniqueCount int      `json:"uniqueCount"`

	Median       *float64  `json:"median,omitempty"`
	Mode         *float64  `json:"mode,omitempty"`
	StdDev       *float64  `json:"stdDev,omitempty"`
	Variance     *float64  `json:"variance,omitempty"`
	Skewness     *float64  `json:"skewness,omitempty"`
	Kurtosis     *float64  `json:"kurtosis,omitempty"`
	Outliers     []float64 `json:"outliers,omitempty"`
	Distribution []Bin     `json:"distribution,omitempty"`
}

// Bin is one equal-width histogram bucket.
type Bin struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
}

// Column is the inferred schema of one field.
type Column struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Nullable bool   `json:"nullable"`
	Unique   bool   `json:"unique"`
	Stats    Stats  `json:"stats"`
}

// IsNumeric reports whether the column is typed number.
func (c Column) IsNumeric() bool { return c.Type == TypeNumber }

// Options controls inference.
type Options struct {
	Number normalize.Options
}

// Infer produces one Column per header. It never fails: a column without any
// observed value is a string column with zero counts beyond nullCount.
func Infer(rows []table.Row, headers []string, opt Options) []Column {
	cols := make([]Column, len(headers))
	for i, h := range headers {
		cols[i] = InferColumn(table.Column(rows, h), h, opt)
	}
	return cols
}

// InferColumn infers a single column from its cells in row order.
func InferColumn(cells []table.Value, name string, opt Options) Column {
	return Restat(Column{Name: name, Type: detectType(observedOf(cells), opt)}, cells, opt)
}

// Restat recomputes counts and range statistics for c from cells, keeping the
// column's type. Extended statistics are dropped. Range stats only cover cells
// that read as numbers.
func Restat(c Column, cells []table.Value, opt Options) Column {
	observed := observedOf(cells)
	distinct := make(map[string]struct{}, len(observed))
	for _, v := range observed {
		distinct[v.Key()] = struct{}{}
	}
	c.Stats = Stats{
		NullCount:   len(cells) - len(observed),
		UniqueCount: len(distinct),
	}
	c.Nullable = c.Stats.NullCount > 0
	c.Unique = len(distinct) == len(observed)

	if c.Type != TypeNumber {
		return c
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	nums := make([]float64, 0, len(observed))
	for _, v := range observed {
		f, ok := normalize.NumberOf(v, opt.Number)
		if !ok {
			continue
		}
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
		nums = append(nums, f)
	}
	if len(nums) > 0 {
		avg := Mean(nums)
		c.Stats.Min, c.Stats.Max, c.Stats.Avg = &lo, &hi, &avg
	}
	return c
}

// Mean is the arithmetic mean of xs, or 0 for an empty slice. When the plain
// sum overflows, a running mean is used so any finite sample has a finite mean.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	if m := sum / float64(len(xs)); !math.IsInf(m, 0) && !math.IsNaN(m) {
		return m
	}
	m := 0.0
	for i, x := range xs {
		n := float64(i + 1)
		m += x/n - m/n
	}
	return m
}

func observedOf(cells []table.Value) []table.Value {
	out := make([]table.Value, 0, len(cells))
	for _, v := range cells {
		if !v.IsMissing() {
			out = append(out, v)
		}
	}
	return out
}

func detectType(observed []table.Value, opt Options) Type {
	if len(observed) == 0 {
		return TypeString
	}
	if all(observed, normalize.IsBoolLiteral) {
		return TypeBoolean
	}
	if all(observed, func(v table.Value) bool { _, ok := normalize.NumberOf(v, opt.Number); return ok }) {
		return TypeNumber
	}
	if all(observed, func(v table.Value) bool { _, ok := normalize.DateOf(v); return ok }) {
		return TypeDate
	}
	return TypeString
}

func all(vs []table.Value, pred func(table.Value) bool) bool {
	for _, v := range vs {
		if !pred(v) {
			return false
		}
	}
	return true
}

// Find returns the column named name.
func Find(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Headers lists column names in schema order.
func Headers(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// Clone deep-copies a schema so callers can update stats without aliasing.
func Clone(cols []Column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = c
		out[i].Stats.Outliers = append([]float64(nil), c.Stats.Outliers...)
		out[i].Stats.Distribution = append([]Bin(nil), c.Stats.Distribution...)
	}
	return out
}
