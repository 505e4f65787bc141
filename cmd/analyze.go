package cmd

import (
	"github.com/spf13/cobra"
)

var (
	anaFlags    inputFlags
	anaOutliers bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/TSV/XLSX/JSON table and produce a concise Markdown summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadAndClean(args[0], &anaFlags)
		if err != nil {
			return err
		}
		md := processMarkdown(r.Table.Name, r.Clean) + "\n" + runEDA(r, anaOutliers).Markdown()
		return writeOut(cmd, anaFlags.output, []byte(md))
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addInputFlags(analyzeCmd, &anaFlags)
	analyzeCmd.Flags().BoolVar(&anaOutliers, "outliers", true, "also compute robust outliers (MAD)")
	// Markdown only
	_ = analyzeCmd.Flags().MarkHidden("format")
}
