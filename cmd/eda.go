package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
)

var (
	edaFlags  inputFlags
	edaRobust bool
)

var edaCmd = &cobra.Command{
	Use:   "eda <file>",
	Short: "Clean a table and run exploratory analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadAndClean(args[0], &edaFlags)
		if err != nil {
			return err
		}
		res := runEDA(r, edaRobust)
		return emit(cmd, &edaFlags, r, res, res.Markdown)
	},
}

func init() {
	rootCmd.AddCommand(edaCmd)
	addInputFlags(edaCmd, &edaFlags)
	edaCmd.Flags().BoolVar(&edaRobust, "robust", false, "also flag outliers by median absolute deviation")
}

func runEDA(r *run, robust bool) *analysis.Result {
	opt := edaOptions(cfg)
	opt.Name = r.Table.Name
	opt.Number = r.Number
	opt.RobustOutliers = robust
	opt.Logger = logger.With("run_id", r.ID)
	return analysis.Analyze(r.Clean.Data, r.Clean.Columns, opt)
}
