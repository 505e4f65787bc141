package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabloom-cli/internal/schema"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// dataset builds rows from column-major values and infers their schema.
func dataset(t *testing.T, headers []string, colsData ...[]any) ([]table.Row, []schema.Column) {
	t.Helper()
	require.Len(t, colsData, len(headers))
	n := len(colsData[0])
	rows := make([]table.Row, n)
	for i := range rows {
		rows[i] = table.Row{}
		for j, h := range headers {
			require.Len(t, colsData[j], n)
			rows[i][h] = table.FromAny(colsData[j][i])
		}
	}
	return rows, schema.Infer(rows, headers, schema.Options{})
}

func outliersFor(res *Result, col, method string) *Outlier {
	for i := range res.Outliers {
		if res.Outliers[i].Column == col && res.Outliers[i].Method == method {
			return &res.Outliers[i]
		}
	}
	return nil
}

func TestOutliersSmallSample(t *testing.T) {
	rows, cols := dataset(t, []string{"v"}, []any{1, 2, 3, 4, 100})
	res := Analyze(rows, cols, DefaultOptions())

	iqr := outliersFor(res, "v", MethodIQR)
	require.NotNil(t, iqr)
	assert.Equal(t, []float64{100}, iqr.Values)
	assert.Equal(t, []int{4}, iqr.Rows)
	assert.InDelta(t, -1.0, *iqr.LowerBound, 1e-9)
	assert.InDelta(t, 7.0, *iqr.UpperBound, 1e-9)

	// With five values the population z-score can never exceed 2.
	assert.Nil(t, outliersFor(res, "v", MethodZScore))
}

func TestZScoreFlagsExtremeValue(t *testing.T) {
	vals := make([]any, 0, 20)
	for i := 0; i < 19; i++ {
		vals = append(vals, 10)
	}
	vals = append(vals, 100)
	rows, cols := dataset(t, []string{"v"}, vals)
	res := Analyze(rows, cols, DefaultOptions())

	z := outliersFor(res, "v", MethodZScore)
	require.NotNil(t, z)
	assert.Equal(t, []float64{100}, z.Values)
	assert.Equal(t, []int{19}, z.Rows)
}

func TestOutliersSkipTinyColumns(t *testing.T) {
	rows, cols := dataset(t, []string{"v"}, []any{1, 2, 3, 1000})
	res := Analyze(rows, cols, DefaultOptions())
	assert.Empty(t, res.Outliers)
}

func TestRobustOutliersOptIn(t *testing.T) {
	rows, cols := dataset(t, []string{"v"}, []any{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50})
	opt := DefaultOptions()
	assert.Nil(t, outliersFor(Analyze(rows, cols, opt), "v", MethodMAD))

	opt.RobustOutliers = true
	mad := outliersFor(Analyze(rows, cols, opt), "v", MethodMAD)
	require.NotNil(t, mad)
	assert.Equal(t, []float64{50}, mad.Values)
}

func TestCorrelationSymmetry(t *testing.T) {
	rows, cols := dataset(t, []string{"a", "b", "flat", "sparse"},
		[]any{1, 2, 3, 4, 5},
		[]any{2.1, 3.9, 6.2, 8, 9.7},
		[]any{5, 5, 5, 5, 5},
		[]any{7, nil, nil, nil, nil},
	)
	res := Analyze(rows, cols, DefaultOptions())
	require.NotNil(t, res.Matrix)
	m := res.Matrix
	require.Equal(t, []string{"a", "b", "flat", "sparse"}, m.Columns)
	for i := range m.Columns {
		assert.Equal(t, 1.0, m.Values[i][i])
		for j := range m.Columns {
			assert.Equal(t, m.Values[i][j], m.Values[j][i])
			assert.GreaterOrEqual(t, m.Values[i][j], -1.0)
			assert.LessOrEqual(t, m.Values[i][j], 1.0)
		}
	}

	byPair := map[string]Correlation{}
	for _, c := range res.Correlations {
		byPair[c.ColumnA+"~"+c.ColumnB] = c
	}
	assert.Greater(t, byPair["a~b"].Correlation, 0.99)
	assert.Equal(t, 5, byPair["a~b"].Observations)
	assert.Equal(t, 0.0, byPair["a~flat"].Correlation, "zero variance yields 0")
	assert.NotContains(t, byPair, "a~sparse", "single co-observation is skipped")
	assert.Len(t, res.Correlations, 3)
}

func TestCorrelationUsesCoObservedRows(t *testing.T) {
	rows, cols := dataset(t, []string{"x", "y"},
		[]any{1, 2, nil, 4, 5},
		[]any{10, nil, 30, 40, 50},
	)
	res := Analyze(rows, cols, DefaultOptions())
	require.Len(t, res.Correlations, 1)
	assert.Equal(t, 3, res.Correlations[0].Observations)
	assert.InDelta(t, 1.0, res.Correlations[0].Correlation, 1e-12)
}

func TestNumericHistogram(t *testing.T) {
	vals := make([]any, 11)
	for i := range vals {
		vals[i] = i
	}
	rows, cols := dataset(t, []string{"n"}, vals)
	res := Analyze(rows, cols, DefaultOptions())
	require.Len(t, res.Distributions, 1)
	bins := res.Distributions[0].Bins
	require.Len(t, bins, 10)
	total := 0
	for i, b := range bins {
		assert.InDelta(t, float64(i), b.Start, 1e-9)
		total += b.Count
	}
	assert.Equal(t, 10.0, bins[9].End)
	assert.Equal(t, 2, bins[9].Count, "last bucket includes the maximum")
	assert.Equal(t, 11, total)
}

func TestHistogramConstantColumn(t *testing.T) {
	bins := histogram([]float64{3, 3, 3}, 10)
	assert.Equal(t, []schema.Bin{{Start: 3, End: 3, Count: 3}}, bins)
}

func TestCategoricalFrequencies(t *testing.T) {
	var vals []any
	for i := 0; i < 25; i++ {
		vals = append(vals, fmt.Sprintf("c%02d", i))
	}
	vals = append(vals, "c24", "c24", "c10")
	rows, cols := dataset(t, []string{"cat"}, vals)
	res := Analyze(rows, cols, DefaultOptions())

	require.Len(t, res.Distributions, 1)
	d := res.Distributions[0]
	assert.Equal(t, "categorical", d.Kind)
	assert.Equal(t, 25, d.Unique)
	require.Len(t, d.Frequencies, 20)
	assert.Equal(t, CategoryCount{Value: "c24", Count: 3}, d.Frequencies[0])
	assert.Equal(t, CategoryCount{Value: "c10", Count: 2}, d.Frequencies[1])
	assert.Equal(t, "c00", d.Frequencies[2].Value)
}

func patternsOf(res *Result, kind string) []Pattern {
	var out []Pattern
	for _, p := range res.Patterns {
		if p.Type == kind {
			out = append(out, p)
		}
	}
	return out
}

func TestRelationshipBelowThreshold(t *testing.T) {
	rows, cols := dataset(t, []string{"x", "y"},
		[]any{"a", "b", "c"},
		[]any{"a", "b", "d"},
	)
	res := Analyze(rows, cols, DefaultOptions())
	assert.Empty(t, patternsOf(res, PatternRelationship))
	assert.Len(t, patternsOf(res, PatternPrimaryKey), 2)
}

func TestRelationshipAboveThreshold(t *testing.T) {
	rows, cols := dataset(t, []string{"x", "y"},
		[]any{"a", "b", "c", "c"},
		[]any{"a", "b", "c", "d"},
	)
	res := Analyze(rows, cols, DefaultOptions())
	rel := patternsOf(res, PatternRelationship)
	require.Len(t, rel, 1)
	assert.Equal(t, []string{"x", "y"}, rel[0].Columns)
	assert.Equal(t, 1.0, rel[0].Confidence)

	pk := patternsOf(res, PatternPrimaryKey)
	require.Len(t, pk, 1)
	assert.Equal(t, []string{"y"}, pk[0].Columns)
}

func TestTimeSeriesPattern(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows, cols := dataset(t, []string{"when", "also", "v"},
		[]any{day, day.AddDate(0, 0, 1), nil},
		[]any{"2024-02-01", "2024-02-02", "2024-02-03"},
		[]any{1, 1, 2},
	)
	res := Analyze(rows, cols, DefaultOptions())
	ts := patternsOf(res, PatternTimeSeries)
	require.Len(t, ts, 1)
	assert.Equal(t, []string{"when", "also"}, ts[0].Columns)
	assert.Equal(t, 0.8, ts[0].Confidence)
	for _, p := range res.Patterns {
		assert.GreaterOrEqual(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}
	assert.Equal(t, 2, res.Summary.DateColumns)
}

func TestExtendedStats(t *testing.T) {
	st := ExtendedStats(schema.Stats{}, []float64{4, 1, 2, 2, 6}, DefaultOptions())
	require.NotNil(t, st.Median)
	assert.Equal(t, 2.0, *st.Median)
	assert.Equal(t, 2.0, *st.Mode)
	assert.InDelta(t, 3.2, *st.Variance, 1e-9)
	require.NotNil(t, st.Skewness)
	require.NotNil(t, st.Kurtosis)
	assert.Len(t, st.Distribution, 10)

	tiny := ExtendedStats(schema.Stats{}, []float64{1, 1}, DefaultOptions())
	assert.Nil(t, tiny.Skewness)
	assert.Nil(t, tiny.Kurtosis)
	assert.Equal(t, 0.0, *tiny.StdDev)

	assert.Nil(t, ExtendedStats(schema.Stats{}, nil, DefaultOptions()).Median)
}

func TestExtendedStatsExtremeRange(t *testing.T) {
	st := ExtendedStats(schema.Stats{}, []float64{-1.5e308, 0, 1.5e308}, DefaultOptions())

	require.Len(t, st.Distribution, 10)
	counts := make([]int, 0, 10)
	for _, b := range st.Distribution {
		assert.False(t, math.IsInf(b.Start, 0) || math.IsNaN(b.Start), "start %v", b.Start)
		assert.False(t, math.IsInf(b.End, 0) || math.IsNaN(b.End), "end %v", b.End)
		counts = append(counts, b.Count)
	}
	assert.Equal(t, []int{1, 0, 0, 0, 0, 1, 0, 0, 0, 1}, counts)
	assert.Equal(t, -1.5e308, st.Distribution[0].Start)
	assert.Equal(t, 1.5e308, st.Distribution[9].End)
	assert.Equal(t, 0.0, st.Distribution[5].Start)

	assert.Nil(t, st.Variance, "variance overflows float64")
	require.NotNil(t, st.StdDev)
	assert.InDelta(t, 1.5e308*math.Sqrt(2.0/3.0), *st.StdDev, 1e296)

	_, err := json.Marshal(st)
	require.NoError(t, err)
}

func TestAnalyzeExtremeMagnitudes(t *testing.T) {
	huge := []any{-1.5e308, -1e308, 0, 1e308, 1.5e308, 1.2e308}
	rows, cols := dataset(t, []string{"a", "b"}, huge, huge)
	res := Analyze(rows, cols, DefaultOptions())

	require.Len(t, res.Correlations, 1)
	assert.InDelta(t, 1.0, res.Correlations[0].Correlation, 1e-9)
	for _, o := range res.Outliers {
		if o.LowerBound != nil {
			assert.False(t, math.IsInf(*o.LowerBound, 0))
		}
		if o.UpperBound != nil {
			assert.False(t, math.IsInf(*o.UpperBound, 0))
		}
	}

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"column":"a"`)
}

func TestAnalyzeEmptyAndDeterministic(t *testing.T) {
	empty := Analyze(nil, nil, Options{})
	assert.Empty(t, empty.Correlations)
	assert.Empty(t, empty.Patterns)
	assert.Nil(t, empty.Matrix)

	rows, cols := dataset(t, []string{"a", "b", "c"},
		[]any{1, 2, 3, 4, 5, 6, 7},
		[]any{7, 3, 5, 1, 2, 8, 4},
		[]any{"x", "y", "x", "z", "x", "y", "q"},
	)
	first := Analyze(rows, cols, DefaultOptions())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Analyze(rows, cols, DefaultOptions()))
	}
}

func TestMarkdownSections(t *testing.T) {
	rows, cols := dataset(t, []string{"id", "score", "team", "day"},
		[]any{1, 2, 3, 4, 5, 6},
		[]any{10, 12, 11, 13, 12, 90},
		[]any{"red", "blue", "red", "red", "blue", "green"},
		[]any{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06"},
	)
	opt := DefaultOptions()
	opt.Name = "teams.csv"
	md := Analyze(rows, cols, opt).Markdown()
	for _, section := range []string{"[DATASET SUMMARY]", "[COLUMNS]", "[CORRELATIONS]", "[OUTLIERS]", "[DISTRIBUTIONS]", "[PATTERNS]"} {
		assert.Contains(t, md, section)
	}
	assert.Contains(t, md, "File: teams.csv")
	assert.Contains(t, md, "- team (categorical): red(3), blue(2), green(1)")
	assert.True(t, strings.Index(md, "[COLUMNS]") < strings.Index(md, "[PATTERNS]"))
}
