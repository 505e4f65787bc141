package analysis

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabloom-cli/internal/schema"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

func findPatterns(rows []table.Row, cols []schema.Column, opt Options) []Pattern {
	out := []Pattern{}
	for _, c := range cols {
		if c.Unique && c.Stats.NullCount == 0 && len(rows) > 0 {
			out = append(out, Pattern{
				Type:        PatternPrimaryKey,
				Columns:     []string{c.Name},
				Description: fmt.Sprintf("%s has a unique, non-null value in every row", c.Name),
				Confidence:  1,
			})
		}
	}

	var text []schema.Column
	for _, c := range cols {
		if c.Type == schema.TypeString {
			text = append(text, c)
		}
	}
	sets := make([]map[string]struct{}, len(text))
	for i, c := range text {
		sets[i] = distinct(rows, c.Name)
	}
	for a := 0; a < len(text); a++ {
		for b := a + 1; b < len(text); b++ {
			ov := Overlap(sets[a], sets[b])
			if ov > opt.RelationshipThreshold {
				out = append(out, Pattern{
					Type:        PatternRelationship,
					Columns:     []string{text[a].Name, text[b].Name},
					Description: fmt.Sprintf("%s and %s share %.0f%% of their values", text[a].Name, text[b].Name, ov*100),
					Confidence:  ov,
				})
			}
		}
	}

	var dates []string
	for _, c := range cols {
		if c.Type == schema.TypeDate {
			dates = append(dates, c.Name)
		}
	}
	if len(dates) > 0 {
		out = append(out, Pattern{
			Type:        PatternTimeSeries,
			Columns:     dates,
			Description: "time series candidate on " + strings.Join(dates, ", "),
			Confidence:  timeSeriesConfidence,
		})
	}
	return out
}

func distinct(rows []table.Row, col string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, r := range rows {
		if v := r.Get(col); !v.IsMissing() {
			set[v.String()] = struct{}{}
		}
	}
	return set
}

// Overlap is |a ∩ b| / min(|a|, |b|), or 0 when either set is empty.
func Overlap(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	if len(small) == 0 {
		return 0
	}
	shared := 0
	for k := range small {
		if _, ok := large[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}
