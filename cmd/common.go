package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
	"github.com/KaramelBytes/tabloom-cli/internal/clean"
	cfgpkg "github.com/KaramelBytes/tabloom-cli/internal/config"
	"github.com/KaramelBytes/tabloom-cli/internal/normalize"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

// inputFlags are shared by every command that reads a table from disk.
type inputFlags struct {
	delimiter  string
	decimal    string
	sheetName  string
	sheetIndex int
	maxRows    int
	output     string
	format     string
}

func addInputFlags(c *cobra.Command, f *inputFlags) {
	c.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (sniffed if omitted)")
	c.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'dot'|','|'comma'|'auto' (config decimal_separator if omitted)")
	c.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	c.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	c.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to load (0 = config max_rows)")
	c.Flags().StringVarP(&f.output, "output", "o", "", "optional path to write the result")
	c.Flags().StringVar(&f.format, "format", "", "output format: json | markdown (config output_format if omitted)")
}

func (f *inputFlags) parserOptions() (parser.Options, error) {
	opt := parser.Options{MaxRows: cfg.MaxRows, Sheet: f.sheetName, SheetIndex: f.sheetIndex}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "|":
		opt.Delimiter = '|'
	case "\t", "tab":
		opt.Delimiter = '\t'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	return opt, nil
}

func (f *inputFlags) numberOptions() (normalize.Options, error) {
	sep := cfg.DecimalSeparator
	if f.decimal != "" {
		sep = f.decimal
	}
	return numberOptions(sep)
}

func (f *inputFlags) outputFormat() (string, error) {
	format := cfg.OutputFormat
	if f.format != "" {
		format = f.format
	}
	switch format {
	case "json", "markdown":
		return format, nil
	}
	return "", fmt.Errorf("unsupported --format: %s (use json|markdown)", format)
}

// numberOptions maps a decimal separator setting to parsing options. A fixed
// decimal mark implies the other mark groups thousands.
func numberOptions(sep string) (normalize.Options, error) {
	switch strings.ToLower(strings.TrimSpace(sep)) {
	case "", "auto":
		return normalize.Options{}, nil
	case ".", "dot":
		return normalize.Options{DecimalSeparator: '.', ThousandsSeparator: ','}, nil
	case ",", "comma":
		return normalize.Options{DecimalSeparator: ',', ThousandsSeparator: '.'}, nil
	}
	return normalize.Options{}, fmt.Errorf("unsupported decimal separator: %s (use '.'|','|'dot'|'comma'|'auto')", sep)
}

func edaOptions(c *cfgpkg.Global) analysis.Options {
	opt := analysis.DefaultOptions()
	opt.Bins = c.HistogramBins
	opt.TopCategories = c.TopCategories
	opt.RelationshipThreshold = c.RelationshipThreshold
	opt.ZScoreThreshold = c.ZScoreThreshold
	opt.IQRMultiplier = c.IQRMultiplier
	return opt
}

// run is one CLI invocation: the loaded table, its cleaned form and the
// identifiers stamped on output.
type run struct {
	ID     string
	Table  *parser.Table
	Number normalize.Options
	Clean  clean.ProcessedData
}

// loadAndClean decodes path and runs the cleaning pipeline on it.
func loadAndClean(path string, f *inputFlags) (*run, error) {
	popt, err := f.parserOptions()
	if err != nil {
		return nil, err
	}
	nopt, err := f.numberOptions()
	if err != nil {
		return nil, err
	}
	r := &run{ID: uuid.NewString(), Number: nopt}
	log := logger.With("run_id", r.ID)

	r.Table, err = parser.Load(path, popt)
	if err != nil {
		return nil, err
	}
	for _, w := range r.Table.Warnings {
		log.Warn(w, "file", r.Table.Name)
	}
	r.Clean = clean.Process(r.Table.Rows, r.Table.Headers, clean.Options{Number: nopt, Logger: log})
	log.Info("cleaned",
		"file", r.Table.Name,
		"rows_in", r.Clean.OriginalRowCount,
		"rows_out", r.Clean.CleanedRowCount,
		"quality_score", r.Clean.QualityReport.QualityScore,
	)
	return r, nil
}

// envelope wraps JSON command output.
type envelope struct {
	RunID    string   `json:"runId"`
	Source   string   `json:"source"`
	Warnings []string `json:"warnings,omitempty"`
	Result   any      `json:"result"`
}

func (r *run) envelope(result any) envelope {
	return envelope{RunID: r.ID, Source: r.Table.Name, Warnings: r.Table.Warnings, Result: result}
}

// emit renders result as JSON or uses md for Markdown, then writes to --output
// or stdout.
func emit(cmd *cobra.Command, f *inputFlags, r *run, result any, md func() string) error {
	format, err := f.outputFormat()
	if err != nil {
		return err
	}
	var out []byte
	if format == "markdown" {
		out = []byte(md())
	} else {
		out, err = utils.PrettyJSON(r.envelope(result))
		if err != nil {
			return err
		}
	}
	return writeOut(cmd, f.output, out)
}

func writeOut(cmd *cobra.Command, path string, data []byte) error {
	if path != "" {
		if err := utils.SafeWriteFile(path, data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
		return nil
	}
	s := string(data)
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	fmt.Fprint(cmd.OutOrStdout(), s)
	return nil
}
