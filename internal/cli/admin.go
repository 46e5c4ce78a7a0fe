package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/quotabot/quotabot/internal/daemon"
	"github.com/quotabot/quotabot/internal/infra/snapshot"
)

// ─── Admin Commands ─────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(rolloverCmd)
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the whole ledger document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			doc, err := d.Service().State(ctx)
			if err != nil {
				return err
			}
			data, err := snapshot.Encode(doc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		})
	},
}

var rolloverCmd = &cobra.Command{
	Use:   "rollover",
	Short: "Start the new week now if the current one is over",
	Long: `Run the weekly rollover check immediately. Counters and sales are cleared
only when the configured week boundary has passed; goals are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().Rollover(ctx)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderRollover(w, out) })
		})
	},
}
