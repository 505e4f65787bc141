// Package analysis computes the exploratory report for a cleaned dataset:
// correlations, outliers, distributions and structural patterns.
package analysis

import (
	"log/slog"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabloom-cli/internal/normalize"
	"github.com/KaramelBytes/tabloom-cli/internal/schema"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// minOutlierValues is the sample size at or below which outlier detection is skipped.
const minOutlierValues = 4

// Options controls analysis behavior for tabular data.
type Options struct {
	// Name labels the dataset in the Markdown report.
	Name string
	// Bins is the histogram bucket count for numeric columns.
	Bins int
	// TopCategories truncates categorical frequency tables.
	TopCategories int
	// RelationshipThreshold is the overlap above which two string columns are related.
	RelationshipThreshold float64
	// ZScoreThreshold flags |z| above it, using the population standard deviation.
	ZScoreThreshold float64
	// IQRMultiplier scales the interquartile range for the Tukey fences.
	IQRMultiplier float64
	// RobustOutliers adds a median/MAD pass for columns with at least 8 values.
	RobustOutliers  bool
	RobustThreshold float64
	Number          normalize.Options
	Logger          *slog.Logger
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		Bins:                  10,
		TopCategories:         20,
		RelationshipThreshold: 0.7,
		ZScoreThreshold:       3,
		IQRMultiplier:         1.5,
		RobustThreshold:       3.5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Bins <= 0 {
		o.Bins = d.Bins
	}
	if o.TopCategories <= 0 {
		o.TopCategories = d.TopCategories
	}
	if o.RelationshipThreshold <= 0 {
		o.RelationshipThreshold = d.RelationshipThreshold
	}
	if o.ZScoreThreshold <= 0 {
		o.ZScoreThreshold = d.ZScoreThreshold
	}
	if o.IQRMultiplier <= 0 {
		o.IQRMultiplier = d.IQRMultiplier
	}
	if o.RobustThreshold <= 0 {
		o.RobustThreshold = d.RobustThreshold
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Outlier detection methods.
const (
	MethodIQR    = "iqr"
	MethodZScore = "zscore"
	MethodMAD    = "mad"
)

// Pattern kinds.
const (
	PatternPrimaryKey   = "primary_key"
	PatternRelationship = "relationship"
	PatternTimeSeries   = "time_series"
)

const timeSeriesConfidence = 0.8

// Result is the full exploratory report. It is recomputed on every call.
type Result struct {
	Summary       Summary        `json:"summary"`
	Correlations  []Correlation  `json:"correlations"`
	Outliers      []Outlier      `json:"outliers"`
	Distributions []Distribution `json:"distributions"`
	Patterns      []Pattern      `json:"patterns"`
	Matrix        *CorrMatrix    `json:"correlationMatrix,omitempty"`
}

// Summary describes the dataset as a whole. Columns carry extended stats for
// numeric columns.
type Summary struct {
	Name               string          `json:"name,omitempty"`
	TotalRows          int             `json:"totalRows"`
	TotalColumns       int             `json:"totalColumns"`
	NumericColumns     int             `json:"numericColumns"`
	CategoricalColumns int             `json:"categoricalColumns"`
	DateColumns        int             `json:"dateColumns"`
	MissingValues      int             `json:"missingValues"`
	Columns            []schema.Column `json:"columns"`
}

// Correlation is the Pearson coefficient of one numeric column pair.
type Correlation struct {
	ColumnA      string  `json:"columnA"`
	ColumnB      string  `json:"columnB"`
	Correlation  float64 `json:"correlation"`
	Observations int     `json:"observations"`
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
}

// Outlier lists the values one method flagged in one column.
type Outlier struct {
	Column     string    `json:"column"`
	Method     string    `json:"method"`
	Values     []float64 `json:"values"`
	Rows       []int     `json:"rows"`
	LowerBound *float64  `json:"lowerBound,omitempty"`
	UpperBound *float64  `json:"upperBound,omitempty"`
	Threshold  float64   `json:"threshold"`
}

// CategoryCount is one row of a frequency table.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Distribution is a histogram for numeric columns or a frequency table for
// categorical ones.
type Distribution struct {
	Column      string          `json:"column"`
	Kind        string          `json:"kind"`
	Bins        []schema.Bin    `json:"bins,omitempty"`
	Frequencies []CategoryCount `json:"frequencies,omitempty"`
	Unique      int             `json:"unique"`
}

// Pattern is a structural hint about the dataset.
type Pattern struct {
	Type        string   `json:"type"`
	Columns     []string `json:"columns"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
}

// sample is a numeric column's parsed values with their row positions.
type sample struct {
	values []float64
	rows   []int
}

type profile struct {
	column       schema.Column
	sample       sample
	outliers     []Outlier
	distribution *Distribution
}

// Analyze builds the report. Per-column work runs in parallel; results are
// slotted by column index so the output matches a sequential run.
func Analyze(rows []table.Row, cols []schema.Column, opt Options) *Result {
	opt = opt.withDefaults()
	log := opt.Logger.With(slog.String("component", "analysis"))

	profiles := make([]profile, len(cols))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range cols {
		g.Go(func() error {
			profiles[i] = profileColumn(rows, c, opt)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{
		Summary:       Summary{Name: opt.Name, TotalRows: len(rows), TotalColumns: len(cols), Columns: make([]schema.Column, 0, len(cols))},
		Correlations:  []Correlation{},
		Outliers:      []Outlier{},
		Distributions: []Distribution{},
	}
	for _, p := range profiles {
		res.Summary.Columns = append(res.Summary.Columns, p.column)
		res.Summary.MissingValues += p.column.Stats.NullCount
		switch p.column.Type {
		case schema.TypeNumber:
			res.Summary.NumericColumns++
		case schema.TypeDate:
			res.Summary.DateColumns++
		default:
			res.Summary.CategoricalColumns++
		}
		res.Outliers = append(res.Outliers, p.outliers...)
		if p.distribution != nil {
			res.Distributions = append(res.Distributions, *p.distribution)
		}
	}
	res.Correlations, res.Matrix = correlate(profiles)
	res.Patterns = findPatterns(rows, cols, opt)

	log.Debug("analysis complete",
		slog.Int("columns", len(cols)),
		slog.Int("correlations", len(res.Correlations)),
		slog.Int("outliers", len(res.Outliers)),
		slog.Int("patterns", len(res.Patterns)))
	return res
}

func profileColumn(rows []table.Row, c schema.Column, opt Options) profile {
	p := profile{column: c}
	switch c.Type {
	case schema.TypeNumber:
		for i, r := range rows {
			if f, ok := normalize.NumberOf(r.Get(c.Name), opt.Number); ok {
				p.sample.values = append(p.sample.values, f)
				p.sample.rows = append(p.sample.rows, i)
			}
		}
		p.column.Stats = ExtendedStats(c.Stats, p.sample.values, opt)
		p.outliers = detectOutliers(c.Name, p.sample, opt)
		if len(p.sample.values) > 0 {
			p.distribution = &Distribution{
				Column: c.Name,
				Kind:   "numeric",
				Bins:   p.column.Stats.Distribution,
				Unique: c.Stats.UniqueCount,
			}
		}
	case schema.TypeString, schema.TypeBoolean:
		p.distribution = frequencies(rows, c.Name, opt.TopCategories)
	}
	return p
}

func detectOutliers(col string, s sample, opt Options) []Outlier {
	if len(s.values) <= minOutlierValues {
		return nil
	}
	sorted := append([]float64(nil), s.values...)
	sort.Float64s(sorted)

	var out []Outlier
	lo, hi, _ := iqrOutliers(sorted, nil, opt.IQRMultiplier)
	iqr := Outlier{Column: col, Method: MethodIQR, LowerBound: finite(lo), UpperBound: finite(hi), Threshold: opt.IQRMultiplier}
	for i, v := range s.values {
		if v < lo || v > hi {
			iqr.Values = append(iqr.Values, v)
			iqr.Rows = append(iqr.Rows, s.rows[i])
		}
	}
	if len(iqr.Values) > 0 {
		out = append(out, iqr)
	}

	if mean, _, std, _ := spread(s.values); std > 0 {
		z := Outlier{Column: col, Method: MethodZScore, Threshold: opt.ZScoreThreshold}
		for i, v := range s.values {
			if math.Abs(v/std-mean/std) > opt.ZScoreThreshold {
				z.Values = append(z.Values, v)
				z.Rows = append(z.Rows, s.rows[i])
			}
		}
		if len(z.Values) > 0 {
			out = append(out, z)
		}
	}

	if opt.RobustOutliers && len(s.values) >= 8 {
		median, mad := medianMAD(s.values)
		if mad > 0 {
			r := Outlier{Column: col, Method: MethodMAD, Threshold: opt.RobustThreshold}
			for i, v := range s.values {
				if 0.6745*math.Abs(v/mad-median/mad) > opt.RobustThreshold {
					r.Values = append(r.Values, v)
					r.Rows = append(r.Rows, s.rows[i])
				}
			}
			if len(r.Values) > 0 {
				out = append(out, r)
			}
		}
	}
	return out
}

func frequencies(rows []table.Row, col string, top int) *Distribution {
	counts := make(map[string]int)
	for _, r := range rows {
		v := r.Get(col)
		if v.IsMissing() {
			continue
		}
		counts[v.String()]++
	}
	if len(counts) == 0 {
		return nil
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, n := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: n})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > top {
		tops = tops[:top]
	}
	return &Distribution{Column: col, Kind: "categorical", Frequencies: tops, Unique: len(counts)}
}

// correlate computes Pearson r for every numeric pair over rows where both
// values are present. Pairs with fewer than two co-observations are skipped;
// zero variance yields 0.
func correlate(profiles []profile) ([]Correlation, *CorrMatrix) {
	var num []profile
	for _, p := range profiles {
		if p.column.Type == schema.TypeNumber {
			num = append(num, p)
		}
	}
	out := []Correlation{}
	if len(num) < 2 {
		return out, nil
	}

	n := len(num)
	mat := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for i := range num {
		mat.Columns[i] = num[i].column.Name
		mat.Values[i] = make([]float64, n)
		mat.Values[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			x, y := coObserved(num[a].sample, num[b].sample)
			if len(x) < 2 {
				continue
			}
			r := stat.Correlation(x, y, nil)
			if !isFinite(r) {
				// Pearson r is scale-free; retry on samples shrunk into [-1, 1].
				xs, _ := rescale(x)
				ys, _ := rescale(y)
				r = stat.Correlation(xs, ys, nil)
			}
			r = clampCorr(r)
			mat.Values[a][b], mat.Values[b][a] = r, r
			out = append(out, Correlation{
				ColumnA:      num[a].column.Name,
				ColumnB:      num[b].column.Name,
				Correlation:  r,
				Observations: len(x),
			})
		}
	}
	return out, mat
}

// coObserved aligns two samples on shared row positions. Both row lists are
// ascending.
func coObserved(a, b sample) (x, y []float64) {
	i, j := 0, 0
	for i < len(a.rows) && j < len(b.rows) {
		switch {
		case a.rows[i] == b.rows[j]:
			x = append(x, a.values[i])
			y = append(y, b.values[j])
			i++
			j++
		case a.rows[i] < b.rows[j]:
			i++
		default:
			j++
		}
	}
	return x, y
}

func clampCorr(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}
