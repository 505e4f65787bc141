// Package impute fills missing cells column by column under per-column
// strategies.
package impute

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/KaramelBytes/tabloom-cli/internal/normalize"
	"github.com/KaramelBytes/tabloom-cli/internal/schema"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// ErrCustomValueRequired is reported when a custom strategy has no value.
var ErrCustomValueRequired = errors.New("custom value is required")

// Result describes what happened to one column.
type Result struct {
	OriginalNullCount int    `json:"originalNullCount"`
	ImputedCount      int    `json:"imputedCount"`
	Method            Method `json:"method"`
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
}

// Outcome is the imputed copy of the data with refreshed column stats.
type Outcome struct {
	Data    []table.Row       `json:"data"`
	Columns []schema.Column   `json:"columns"`
	Results map[string]Result `json:"results"`
}

// Options tunes numeric parsing and logging.
type Options struct {
	Number normalize.Options
	Logger *slog.Logger
}

// Apply imputes a copy of rows and returns it with refreshed stats. rows and
// cols are not modified.
func Apply(rows []table.Row, cols []schema.Column, strategies []Strategy, opt Options) Outcome {
	data := table.CloneRows(rows)
	results := ApplyInPlace(data, cols, strategies, opt)

	out := schema.Clone(cols)
	sopt := schema.Options{Number: opt.Number}
	for i, c := range out {
		if _, touched := results[c.Name]; touched {
			out[i] = schema.Restat(c, table.Column(data, c.Name), sopt)
		}
	}
	return Outcome{Data: data, Columns: out, Results: results}
}

// ApplyInPlace mutates rows, the caller's working buffer. Strategies are keyed
// by column; when a column is named twice the last strategy wins. Columns not
// in cols are ignored. A failing column is reported and does not stop the rest.
func ApplyInPlace(rows []table.Row, cols []schema.Column, strategies []Strategy, opt Options) map[string]Result {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "impute"))

	byCol := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		byCol[s.Column] = s
	}

	results := make(map[string]Result)
	for _, c := range cols {
		s, ok := byCol[c.Name]
		if !ok {
			continue
		}
		before := countMissing(rows, c.Name)
		res := Result{OriginalNullCount: before, Method: s.Method, Success: true}
		if err := safeRun(rows, c.Name, s, opt.Number); err != nil {
			res.Success = false
			res.Error = err.Error()
			log.Warn("imputation failed", slog.String("column", c.Name), slog.String("method", string(s.Method)), slog.Any("error", err))
		}
		res.ImputedCount = before - countMissing(rows, c.Name)
		results[c.Name] = res
		log.Debug("imputed column", slog.String("column", c.Name), slog.String("method", string(s.Method)), slog.Int("filled", res.ImputedCount))
	}
	return results
}

func safeRun(rows []table.Row, col string, s Strategy, opt normalize.Options) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("impute %s: %v", col, r)
		}
	}()
	return run(rows, col, s, opt)
}

func run(rows []table.Row, col string, s Strategy, opt normalize.Options) error {
	switch s.Method {
	case Mean, Median:
		nums := numbers(rows, col, opt)
		if len(nums) == 0 {
			return nil
		}
		var fill float64
		if s.Method == Mean {
			fill = schema.Mean(nums)
		} else {
			fill = median(nums)
		}
		fillMissing(rows, col, table.Number(fill))
	case Mode:
		if v, ok := mode(rows, col); ok {
			fillMissing(rows, col, v)
		}
	case ForwardFill:
		var last table.Value
		for _, r := range rows {
			if v := r.Get(col); !v.IsMissing() {
				last = v
			} else if !last.IsNull() {
				r[col] = last
			}
		}
	case BackwardFill:
		var next table.Value
		for i := len(rows) - 1; i >= 0; i-- {
			if v := rows[i].Get(col); !v.IsMissing() {
				next = v
			} else if !next.IsNull() {
				rows[i][col] = next
			}
		}
	case Interpolation:
		interpolate(rows, col, opt)
	case Custom:
		if s.CustomValue == nil {
			return ErrCustomValueRequired
		}
		fillMissing(rows, col, *s.CustomValue)
	}
	return nil
}

func countMissing(rows []table.Row, col string) int {
	n := 0
	for _, r := range rows {
		if r.Get(col).IsMissing() {
			n++
		}
	}
	return n
}

func fillMissing(rows []table.Row, col string, v table.Value) {
	for _, r := range rows {
		if r.Get(col).IsMissing() {
			r[col] = v
		}
	}
}

func numbers(rows []table.Row, col string, opt normalize.Options) []float64 {
	var out []float64
	for _, r := range rows {
		if f, ok := normalize.NumberOf(r.Get(col), opt); ok {
			out = append(out, f)
		}
	}
	return out
}


func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	m := len(s) / 2
	if len(s)%2 == 0 {
		return s[m-1]/2 + s[m]/2
	}
	return s[m]
}

// mode picks the most frequent present value; ties go to the value counted first.
func mode(rows []table.Row, col string) (table.Value, bool) {
	counts := make(map[string]int)
	var order []table.Value
	for _, r := range rows {
		v := r.Get(col)
		if v.IsMissing() {
			continue
		}
		k := v.Key()
		if counts[k] == 0 {
			order = append(order, v)
		}
		counts[k]++
	}
	if len(order) == 0 {
		return table.Value{}, false
	}
	best := order[0]
	for _, v := range order[1:] {
		if counts[v.Key()] > counts[best.Key()] {
			best = v
		}
	}
	return best, true
}

// interpolate fills each run of missing cells bounded on both sides by
// numeric cells. Runs at either edge, or next to a non-numeric cell, stay.
func interpolate(rows []table.Row, col string, opt normalize.Options) {
	for i := 0; i < len(rows); {
		if !rows[i].Get(col).IsMissing() {
			i++
			continue
		}
		start := i
		for i < len(rows) && rows[i].Get(col).IsMissing() {
			i++
		}
		if start == 0 || i == len(rows) {
			continue
		}
		lo, okLo := normalize.NumberOf(rows[start-1].Get(col), opt)
		hi, okHi := normalize.NumberOf(rows[i].Get(col), opt)
		if !okLo || !okHi {
			continue
		}
		span := float64(i - start + 1)
		for j := start; j < i; j++ {
			rows[j][col] = table.Number(lerp(lo, hi, float64(j-start+1)/span))
		}
	}
}

// lerp interpolates between a and b; the weighted form covers a span that
// overflows float64.
func lerp(a, b, t float64) float64 {
	if v := a + (b-a)*t; !math.IsInf(v, 0) {
		return v
	}
	return a*(1-t) + b*t
}
