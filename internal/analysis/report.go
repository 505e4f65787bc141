package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/schema"
)

const (
	maxCorrPairs     = 10
	maxOutlierValues = 8
	maxReportBuckets = 8
)

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Result) Markdown() string {
	var b strings.Builder
	s := r.Summary
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.TotalRows))
	b.WriteString(fmt.Sprintf("Columns: %d (numeric %d, categorical %d, date %d)\n", s.TotalColumns, s.NumericColumns, s.CategoricalColumns, s.DateColumns))
	b.WriteString(fmt.Sprintf("Missing values: %d\n", s.MissingValues))

	b.WriteString("\n[COLUMNS]\n")
	for _, c := range s.Columns {
		total := s.TotalRows
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Stats.NullCount) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (missing %.1f%%, unique %d)", safeName(c.Name), c.Type, missPct, c.Stats.UniqueCount))
		if c.Type == schema.TypeNumber && c.Stats.Min != nil {
			b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g", *c.Stats.Min, *c.Stats.Max, *c.Stats.Avg))
			if c.Stats.Median != nil {
				b.WriteString(fmt.Sprintf(", median %.4g", *c.Stats.Median))
			}
			if c.Stats.StdDev != nil {
				b.WriteString(fmt.Sprintf(", std %.4g", *c.Stats.StdDev))
			}
			if c.Stats.Skewness != nil {
				b.WriteString(fmt.Sprintf(", skew %.3f", *c.Stats.Skewness))
			}
		}
		b.WriteString("\n")
	}

	if len(r.Correlations) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		pairs := append([]Correlation(nil), r.Correlations...)
		sort.Slice(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].Correlation), math.Abs(pairs[j].Correlation)
			if ai == aj {
				return pairs[i].ColumnA+pairs[i].ColumnB < pairs[j].ColumnA+pairs[j].ColumnB
			}
			return ai > aj
		})
		if len(pairs) > maxCorrPairs {
			pairs = pairs[:maxCorrPairs]
		}
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (n=%d)\n", p.ColumnA, p.ColumnB, p.Correlation, p.Observations))
		}
	}

	if len(r.Outliers) > 0 {
		b.WriteString("\n[OUTLIERS]\n")
		for _, o := range r.Outliers {
			b.WriteString(fmt.Sprintf("- %s (%s): %d flagged", o.Column, o.Method, len(o.Values)))
			if o.LowerBound != nil && o.UpperBound != nil {
				b.WriteString(fmt.Sprintf(" outside [%.4g, %.4g]", *o.LowerBound, *o.UpperBound))
			} else {
				b.WriteString(fmt.Sprintf(" above |z|>%.1f", o.Threshold))
			}
			vals := o.Values
			if len(vals) > maxOutlierValues {
				vals = vals[:maxOutlierValues]
			}
			parts := make([]string, len(vals))
			for i, v := range vals {
				parts[i] = fmt.Sprintf("%.4g", v)
			}
			b.WriteString(": " + strings.Join(parts, ", "))
			if len(o.Values) > len(vals) {
				b.WriteString(", ...")
			}
			b.WriteString("\n")
		}
	}

	if len(r.Distributions) > 0 {
		b.WriteString("\n[DISTRIBUTIONS]\n")
		for _, d := range r.Distributions {
			b.WriteString(fmt.Sprintf("- %s (%s): ", safeName(d.Column), d.Kind))
			if d.Kind == "numeric" {
				parts := make([]string, len(d.Bins))
				for i, bin := range d.Bins {
					parts[i] = fmt.Sprintf("[%.4g, %.4g]=%d", bin.Start, bin.End, bin.Count)
				}
				b.WriteString(strings.Join(parts, " "))
			} else {
				lim := min(len(d.Frequencies), maxReportBuckets)
				for i, kv := range d.Frequencies[:lim] {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if d.Unique > lim {
					b.WriteString(fmt.Sprintf("; unique=%d", d.Unique))
				}
			}
			b.WriteString("\n")
		}
	}

	if len(r.Patterns) > 0 {
		b.WriteString("\n[PATTERNS]\n")
		for _, p := range r.Patterns {
			b.WriteString(fmt.Sprintf("- %s: %s (confidence %.2f)\n", p.Type, p.Description, p.Confidence))
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
