package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/impute"
)

var (
	impFlags          inputFlags
	impStrategyFlags  []string
	impStrategiesFile string
	impAuto           bool
)

var imputeCmd = &cobra.Command{
	Use:   "impute <file>",
	Short: "Clean a table, then fill missing values per column",
	Long: `Clean a table, then fill missing values.

Strategies come from --strategies (YAML file with a "strategies:" list) and
--strategy col=method[:value] flags, in that order; the last strategy for a
column wins. With --auto, columns that still have missing values and no
strategy get a recommended one.

Methods: mean, median, mode, forward_fill, backward_fill, interpolation, custom.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var strategies []impute.Strategy
		if impStrategiesFile != "" {
			s, err := impute.LoadStrategies(impStrategiesFile)
			if err != nil {
				return err
			}
			strategies = append(strategies, s...)
		}
		for _, raw := range impStrategyFlags {
			s, err := impute.ParseStrategyFlag(raw)
			if err != nil {
				return err
			}
			strategies = append(strategies, s)
		}

		r, err := loadAndClean(args[0], &impFlags)
		if err != nil {
			return err
		}
		if impAuto {
			explicit := make(map[string]bool, len(strategies))
			for _, s := range strategies {
				explicit[s.Column] = true
			}
			for _, s := range impute.Defaults(r.Clean.Columns) {
				if !explicit[s.Column] {
					strategies = append(strategies, s)
				}
			}
		}
		if len(strategies) == 0 {
			return fmt.Errorf("no strategies: pass --strategy, --strategies or --auto")
		}

		out := impute.Apply(r.Clean.Data, r.Clean.Columns, strategies, impute.Options{
			Number: r.Number,
			Logger: logger.With("run_id", r.ID),
		})
		return emit(cmd, &impFlags, r, out, func() string {
			return imputeMarkdown(r.Table.Name, out)
		})
	},
}

func init() {
	rootCmd.AddCommand(imputeCmd)
	addInputFlags(imputeCmd, &impFlags)
	imputeCmd.Flags().StringArrayVarP(&impStrategyFlags, "strategy", "s", nil, "column strategy col=method[:value] (repeatable)")
	imputeCmd.Flags().StringVar(&impStrategiesFile, "strategies", "", "YAML file with imputation strategies")
	imputeCmd.Flags().BoolVar(&impAuto, "auto", false, "recommend strategies for columns with missing values")
}

func imputeMarkdown(name string, out impute.Outcome) string {
	var b strings.Builder
	b.WriteString("[IMPUTATION]\n")
	fmt.Fprintf(&b, "File: %s\n", name)
	for _, col := range sortedKeys(out.Results) {
		res := out.Results[col]
		if !res.Success {
			fmt.Fprintf(&b, "- %s: %s failed: %s\n", col, res.Method, res.Error)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s filled %d of %d missing\n", col, res.Method, res.ImputedCount, res.OriginalNullCount)
	}
	b.WriteString("\n[COLUMNS]\n")
	for _, c := range out.Columns {
		fmt.Fprintf(&b, "- %s: %s (nulls=%d)\n", c.Name, c.Type, c.Stats.NullCount)
	}
	return b.String()
}
