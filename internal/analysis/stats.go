package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/tabloom-cli/internal/schema"
)

// ExtendedStats returns st with the best-effort extended fields filled from
// values: median, mode, population stdDev and variance, sample skewness and
// excess kurtosis, IQR outliers and the equal-width histogram. Moments that
// are undefined for the sample (too few values, zero spread) stay nil.
func ExtendedStats(st schema.Stats, values []float64, opt Options) schema.Stats {
	opt = opt.withDefaults()
	if len(values) == 0 {
		return st
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	med := quantile(sorted, 0.5)
	st.Median = &med
	m := sortedMode(sorted)
	st.Mode = &m

	_, variance, std, shape := spread(sorted)
	st.Variance = finite(variance)
	st.StdDev = finite(std)

	if n := len(sorted); std > 0 {
		if n >= 3 {
			st.Skewness = finite(stat.Skew(shape, nil))
		}
		if n >= 4 {
			st.Kurtosis = finite(stat.ExKurtosis(shape, nil))
		}
	}
	if len(sorted) > minOutlierValues {
		_, _, flagged := iqrOutliers(sorted, values, opt.IQRMultiplier)
		st.Outliers = flagged
	}
	st.Distribution = histogram(sorted, opt.Bins)
	return st
}

// spread returns the population mean, variance and stdDev of xs, plus the
// sample to use for scale-free shape statistics. A sample whose moments
// overflow is divided by its largest magnitude first; the variance may still
// be infinite then, but mean and stdDev are not.
func spread(xs []float64) (mean, variance, std float64, shape []float64) {
	mean, variance = stat.PopMeanVariance(xs, nil)
	if isFinite(mean) && isFinite(variance) {
		return mean, variance, math.Sqrt(variance), xs
	}
	shape, scale := rescale(xs)
	m, v := stat.PopMeanVariance(shape, nil)
	return m * scale, v * scale * scale, math.Sqrt(v) * scale, shape
}

// rescale divides xs by its largest magnitude.
func rescale(xs []float64) ([]float64, float64) {
	scale := 0.0
	for _, x := range xs {
		scale = math.Max(scale, math.Abs(x))
	}
	if scale == 0 {
		return xs, 1
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x / scale
	}
	return out, scale
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// sortedMode is the most frequent value of a sorted sample; ties go to the
// smallest value.
func sortedMode(sorted []float64) float64 {
	best, bestRun := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestRun {
			best, bestRun = sorted[i], j-i
		}
		i = j
	}
	return best
}

// iqrOutliers computes Tukey fences on the sorted sample and returns the values
// outside them in their original order.
func iqrOutliers(sorted, values []float64, k float64) (lo, hi float64, flagged []float64) {
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi = q1-k*iqr, q3+k*iqr
	for _, v := range values {
		if v < lo || v > hi {
			flagged = append(flagged, v)
		}
	}
	return lo, hi, flagged
}

// histogram splits [min, max] into bins equal-width buckets. The last bucket
// includes its upper edge. A constant sample yields a single bucket. A range
// wider than float64 is measured on values pre-divided by bins.
func histogram(sorted []float64, bins int) []schema.Bin {
	if len(sorted) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []schema.Bin{{Start: lo, End: hi, Count: len(sorted)}}
	}
	b := float64(bins)
	width := (hi - lo) / b
	edge := func(i int) float64 { return lo + float64(i)*width }
	pos := func(v float64) float64 { return (v - lo) / width }
	if math.IsInf(width, 0) {
		width = hi/b - lo/b
		edge = func(i int) float64 {
			t := float64(i) / b
			return lo*(1-t) + hi*t
		}
		pos = func(v float64) float64 { return (v/b - lo/b) / width * b }
	}
	out := make([]schema.Bin, bins)
	for i := range out {
		out[i].Start = edge(i)
		out[i].End = edge(i + 1)
	}
	out[bins-1].End = hi
	for _, v := range sorted {
		out[binIndex(pos(v), bins)].Count++
	}
	return out
}

// binIndex clamps a fractional bucket position to [0, bins-1]. NaN, which an
// underflowed width produces at the lower edge, maps to the first bucket.
func binIndex(pos float64, bins int) int {
	f := math.Floor(pos)
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f >= float64(bins):
		return bins - 1
	}
	return int(f)
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between closest ranks at q*(n-1).
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
