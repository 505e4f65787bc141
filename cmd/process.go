package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/clean"
)

var procFlags inputFlags

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Clean a table and report its schema and quality",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadAndClean(args[0], &procFlags)
		if err != nil {
			return err
		}
		return emit(cmd, &procFlags, r, r.Clean, func() string {
			return processMarkdown(r.Table.Name, r.Clean)
		})
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	addInputFlags(processCmd, &procFlags)
}

func processMarkdown(name string, pd clean.ProcessedData) string {
	var b strings.Builder
	q := pd.QualityReport
	b.WriteString("[QUALITY REPORT]\n")
	fmt.Fprintf(&b, "File: %s\n", name)
	fmt.Fprintf(&b, "Rows: %d cleaned of %d (%d duplicates removed)\n", pd.CleanedRowCount, pd.OriginalRowCount, q.DuplicateRows)
	fmt.Fprintf(&b, "Columns: %d, missing cells: %d\n", q.TotalColumns, q.NullValues)
	fmt.Fprintf(&b, "Quality score: %d/100\n", q.QualityScore)
	if len(q.Issues) > 0 {
		b.WriteString("\nIssues:\n")
		for _, s := range q.Issues {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if len(q.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range q.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	b.WriteString("\n[COLUMNS]\n")
	for _, c := range pd.Columns {
		fmt.Fprintf(&b, "- %s: %s", c.Name, c.Type)
		var notes []string
		if c.Stats.NullCount > 0 {
			notes = append(notes, fmt.Sprintf("nulls=%d", c.Stats.NullCount))
		}
		notes = append(notes, fmt.Sprintf("unique=%d", c.Stats.UniqueCount))
		if c.Stats.Min != nil && c.Stats.Max != nil && c.Stats.Avg != nil {
			notes = append(notes, fmt.Sprintf("min=%.4g max=%.4g avg=%.4g", *c.Stats.Min, *c.Stats.Max, *c.Stats.Avg))
		}
		fmt.Fprintf(&b, " (%s)\n", strings.Join(notes, ", "))
	}
	return b.String()
}

// sortedKeys returns map keys in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
