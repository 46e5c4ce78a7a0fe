package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quotabot/quotabot/internal/daemon"
	"github.com/quotabot/quotabot/internal/domain"
)

// ─── Quota Commands ─────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(quotaCmd)
	quotaCmd.AddCommand(quotaAddCmd)
	quotaCmd.AddCommand(quotaRemoveCmd)
	quotaCmd.AddCommand(quotaViewCmd)
	quotaCmd.AddCommand(quotaLeaderboardCmd)

	quotaViewCmd.Flags().BoolP("all", "a", false, "Include goals already met")
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Record and view weekly item counts",
}

var quotaAddCmd = &cobra.Command{
	Use:   "add USER ITEM QUANTITY",
	Short: "Credit items to a member",
	Args:  cobra.ExactArgs(3),
	RunE:  func(cmd *cobra.Command, args []string) error { return runQuotaChange(cmd, args, true) },
}

var quotaRemoveCmd = &cobra.Command{
	Use:   "remove USER ITEM QUANTITY",
	Short: "Take items back from a member",
	Long:  `Take items back from a member. The count never drops below zero; removing from a counter that was never recorded fails.`,
	Args:  cobra.ExactArgs(3),
	RunE:  func(cmd *cobra.Command, args []string) error { return runQuotaChange(cmd, args, false) },
}

func runQuotaChange(cmd *cobra.Command, args []string, add bool) error {
	qty, err := parseQuantity(args[2])
	if err != nil {
		return err
	}
	user, item := domain.UserID(args[0]), domain.ItemID(args[1])

	return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
		svc := d.Service()
		if add {
			out, err := svc.QuotaAdd(ctx, user, item, qty)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderQuotaChange(w, out, true) })
		}
		out, err := svc.QuotaRemove(ctx, user, item, qty)
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderQuotaChange(w, out, false) })
	})
}

var quotaViewCmd = &cobra.Command{
	Use:   "view [USER]",
	Short: "Show a member's progress, most-behind first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showAll, _ := cmd.Flags().GetBool("all")
		user, err := userArg(args)
		if err != nil {
			return err
		}
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().QuotaView(ctx, user, showAll)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderQuotaReport(w, out) })
		})
	},
}

var quotaLeaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank members by quota completion",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().QuotaLeaderboard(ctx)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderQuotaLeaderboard(w, out) })
		})
	},
}

// ─── Argument Helpers ───────────────────────────────────────────────────────

func parseQuantity(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a whole number", s)
	}
	if n <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	return n, nil
}

// userArg returns the first argument, or the caller when there is none.
func userArg(args []string) (domain.UserID, error) {
	if len(args) > 0 && args[0] != "" {
		return domain.UserID(args[0]), nil
	}
	return caller()
}
