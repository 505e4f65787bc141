// Package clean runs the multi-stage cleaning pipeline: cell repair, empty-row
// pruning, type coercion, categorical canonicalization and deduplication.
package clean

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/KaramelBytes/tabloom-cli/internal/normalize"
	"github.com/KaramelBytes/tabloom-cli/internal/quality"
	"github.com/KaramelBytes/tabloom-cli/internal/schema"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Options tunes the pipeline.
type Options struct {
	Number normalize.Options
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// ProcessedData is the pipeline output handed to presentation and to the
// imputation and EDA engines.
type ProcessedData struct {
	Data             []table.Row     `json:"data"`
	Columns          []schema.Column `json:"columns"`
	QualityReport    quality.Report  `json:"qualityReport"`
	OriginalRowCount int             `json:"originalRowCount"`
	CleanedRowCount  int             `json:"cleanedRowCount"`
}

// Process cleans rows against the authoritative header list. The input rows
// are not modified.
func Process(rows []table.Row, headers []string, opt Options) ProcessedData {
	log := opt.logger().With(slog.String("component", "clean"))
	sopt := schema.Options{Number: opt.Number}

	initial := schema.Infer(rows, headers, sopt)
	log.Debug("initial schema", slog.Int("rows", len(rows)), slog.Int("columns", len(initial)))

	work := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		nr := normalize.Row(r, headers)
		if nr.IsEmpty() {
			continue
		}
		work = append(work, nr)
	}
	if dropped := len(rows) - len(work); dropped > 0 {
		log.Debug("dropped empty rows", slog.Int("count", dropped))
	}

	cols := schema.Infer(work, headers, sopt)
	Coerce(work, cols, opt.Number)
	for _, c := range cols {
		if c.Type != schema.TypeString {
			continue
		}
		if merged := Canonicalize(work, c.Name); merged > 0 {
			log.Debug("canonicalized categories", slog.String("column", c.Name), slog.Int("cells", merged))
		}
	}

	work, dups := Dedupe(work, headers)
	if dups > 0 {
		log.Debug("removed duplicate rows", slog.Int("count", dups))
	}

	final := schema.Infer(work, headers, sopt)
	report := quality.Score(quality.Input{
		CleanedRows:  len(work),
		OriginalRows: len(rows),
		Duplicates:   dups,
		Columns:      final,
	})
	log.Info("processed dataset",
		slog.Int("original_rows", len(rows)),
		slog.Int("cleaned_rows", len(work)),
		slog.Int("quality_score", report.QualityScore))

	return ProcessedData{
		Data:             work,
		Columns:          final,
		QualityReport:    report,
		OriginalRowCount: len(rows),
		CleanedRowCount:  len(work),
	}
}

// Coerce converts every cell in place to its column's type. Failed coercions
// become Null.
func Coerce(rows []table.Row, cols []schema.Column, opt normalize.Options) {
	for _, c := range cols {
		var conv func(table.Value) table.Value
		switch c.Type {
		case schema.TypeNumber:
			conv = func(v table.Value) table.Value { return normalize.ToNumber(v, opt) }
		case schema.TypeDate:
			conv = normalize.ToDate
		case schema.TypeBoolean:
			conv = normalize.ToBool
		default:
			conv = normalize.ToText
		}
		for _, r := range rows {
			r[c.Name] = conv(r.Get(c.Name))
		}
	}
}

// CanonicalKey folds a categorical label for near-duplicate matching.
func CanonicalKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, strings.TrimSpace(s))
}

type variant struct {
	label string
	count int
	first int
}

// Canonicalize rewrites text variants of col that share a canonical key to the
// most frequent variant. Ties go to the variant seen first. It returns the
// number of cells rewritten.
func Canonicalize(rows []table.Row, col string) int {
	groups := make(map[string][]*variant)
	index := make(map[string]*variant)
	for i, r := range rows {
		s, ok := r.Get(col).TextValue()
		if !ok {
			continue
		}
		if v, seen := index[s]; seen {
			v.count++
			continue
		}
		key := CanonicalKey(s)
		if key == "" {
			continue
		}
		v := &variant{label: s, count: 1, first: i}
		index[s] = v
		groups[key] = append(groups[key], v)
	}

	rep := make(map[string]string)
	for _, vs := range groups {
		if len(vs) < 2 {
			continue
		}
		best := vs[0]
		for _, v := range vs[1:] {
			if v.count > best.count || (v.count == best.count && v.first < best.first) {
				best = v
			}
		}
		for _, v := range vs {
			if v != best {
				rep[v.label] = best.label
			}
		}
	}
	if len(rep) == 0 {
		return 0
	}

	merged := 0
	for _, r := range rows {
		s, ok := r.Get(col).TextValue()
		if !ok {
			continue
		}
		if to, hit := rep[s]; hit {
			r[col] = table.Text(to)
			merged++
		}
	}
	return merged
}

// Dedupe keeps the first occurrence of each exact duplicate, preserving order.
// It returns the surviving rows and the number removed.
func Dedupe(rows []table.Row, headers []string) ([]table.Row, int) {
	seen := make(map[string]struct{}, len(rows))
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		fp := r.Fingerprint(headers)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}
