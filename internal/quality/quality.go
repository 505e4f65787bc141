// Package quality turns cleaning observations into a scored report.
package quality

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/tabloom-cli/internal/schema"
)

const (
	duplicateWeight   = 20.0
	missingWeight     = 30.0
	issuePenalty      = 5.0
	highMissingRatio  = 0.1
	columnMissingRate = 0.5
)

// Report summarizes the quality of a cleaned dataset.
type Report struct {
	TotalRows     int                    `json:"totalRows"`
	TotalColumns  int                    `json:"totalColumns"`
	DuplicateRows int                    `json:"duplicateRows"`
	NullValues    int                    `json:"nullValues"`
	DataTypes     map[string]schema.Type `json:"dataTypes"`
	QualityScore  int                    `json:"qualityScore"`
	Issues        []string               `json:"issues"`
	Suggestions   []string               `json:"suggestions"`
}

// Input is what the cleaning pipeline observed.
type Input struct {
	CleanedRows  int
	OriginalRows int
	Duplicates   int
	Columns      []schema.Column
}

// Score builds the report. Negative counts are treated as zero.
func Score(in Input) Report {
	rows := max(in.CleanedRows, 0)
	dups := max(in.Duplicates, 0)
	orig := max(in.OriginalRows, 0)

	r := Report{
		TotalRows:     rows,
		TotalColumns:  len(in.Columns),
		DuplicateRows: dups,
		DataTypes:     make(map[string]schema.Type, len(in.Columns)),
		Issues:        []string{},
		Suggestions:   []string{},
	}
	for _, c := range in.Columns {
		r.NullValues += max(c.Stats.NullCount, 0)
		r.DataTypes[c.Name] = c.Type
	}
	cells := float64(r.TotalRows * r.TotalColumns)

	if dups > 0 {
		r.add(fmt.Sprintf("Found %d duplicate rows", dups),
			"Duplicate rows were removed; check the source for repeated exports")
	}
	if float64(r.NullValues) > highMissingRatio*cells {
		r.add(fmt.Sprintf("High number of missing values (%d of %d cells)", r.NullValues, int(cells)),
			"Consider imputing missing values or dropping sparse columns")
	}
	for _, c := range in.Columns {
		if float64(c.Stats.NullCount) > columnMissingRate*float64(rows) {
			r.add(fmt.Sprintf("Column %q has more than 50%% missing values", c.Name),
				fmt.Sprintf("Consider removing column %q or imputing it with a custom value", c.Name))
		}
	}

	score := 100.0
	if orig > 0 {
		score -= float64(dups) / float64(orig) * duplicateWeight
	}
	if cells > 0 {
		score -= float64(r.NullValues) / cells * missingWeight
	}
	score -= issuePenalty * float64(len(r.Issues))
	r.QualityScore = int(math.Round(math.Max(0, math.Min(100, score))))
	return r
}

func (r *Report) add(issue, suggestion string) {
	r.Issues = append(r.Issues, issue)
	r.Suggestions = append(r.Suggestions, suggestion)
}
