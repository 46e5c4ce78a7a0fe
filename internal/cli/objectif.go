package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/quotabot/quotabot/internal/daemon"
	"github.com/quotabot/quotabot/internal/domain"
)

// ─── Goal Commands ──────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(objectifCmd)
	objectifCmd.AddCommand(objectifSetCmd)
	objectifCmd.AddCommand(objectifViewCmd)
}

var objectifCmd = &cobra.Command{
	Use:     "objectif",
	Aliases: []string{"goal"},
	Short:   "Manage weekly item goals",
}

var objectifSetCmd = &cobra.Command{
	Use:   "set ITEM QUANTITY",
	Short: "Set the weekly goal for an item (0 stops tracking it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		goal, err := parseGoal(args[1])
		if err != nil {
			return err
		}
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().GoalSet(ctx, domain.ItemID(args[0]), goal)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) {
				renderGoals(w, []domain.GoalEntry{out})
			})
		})
	},
}

var objectifViewCmd = &cobra.Command{
	Use:   "view",
	Short: "List the weekly item goals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().GoalView(ctx)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderGoals(w, out) })
		})
	},
}

func parseGoal(s string) (int64, error) {
	if s == "0" {
		return 0, nil
	}
	n, err := parseQuantity(s)
	if errors.Is(err, domain.ErrInvalidQuantity) {
		return 0, domain.ErrNegativeGoal
	}
	return n, err
}
