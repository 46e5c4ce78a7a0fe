package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quotabot/quotabot/internal/daemon"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides api.host and api.port)")
	serveCmd.Flags().Bool("metrics", false, "expose Prometheus metrics at /metrics")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the weekly reset timer",
	Long: `Run the HTTP API and the weekly reset timer in the foreground until
interrupted. Only one process should write a JSON ledger file at a time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			if err := cfg.SetAddr(addr); err != nil {
				return err
			}
		}
		if on, _ := cmd.Flags().GetBool("metrics"); on {
			cfg.API.Metrics = true
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		d, err := daemon.New(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer d.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "quotabot listening on http://%s\n", cfg.Addr())
		return d.Run(ctx)
	},
}
