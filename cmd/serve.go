package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/metrics"
	"github.com/KaramelBytes/tabloom-cli/internal/server"
)

var (
	serveAddr    string
	serveDecimal string
	serveMaxBody int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the process, impute and EDA endpoints over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ServerAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		sep := cfg.DecimalSeparator
		if serveDecimal != "" {
			sep = serveDecimal
		}
		nopt, err := numberOptions(sep)
		if err != nil {
			return err
		}
		s := server.New(server.Config{
			Number:       nopt,
			EDA:          edaOptions(cfg),
			MaxBodyBytes: serveMaxBody,
			Logger:       logger,
			Metrics:      metrics.New(),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return s.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (config server_addr if omitted)")
	serveCmd.Flags().StringVar(&serveDecimal, "decimal", "", "decimal separator for numbers: '.'|'dot'|','|'comma'|'auto'")
	serveCmd.Flags().Int64Var(&serveMaxBody, "max-body", server.DefaultMaxBody, "maximum request body in bytes")
}
