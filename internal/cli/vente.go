package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/quotabot/quotabot/internal/daemon"
	"github.com/quotabot/quotabot/internal/domain"
)

// ─── Sales Commands ─────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(venteCmd)
	venteCmd.AddCommand(venteAddCmd)
	venteCmd.AddCommand(venteMyCmd)
	venteCmd.AddCommand(venteViewCmd)
	venteCmd.AddCommand(venteRemoveCmd)
	venteCmd.AddCommand(venteObjectifCmd)
	venteCmd.AddCommand(venteLeaderboardCmd)
}

var venteCmd = &cobra.Command{
	Use:     "vente",
	Aliases: []string{"sales"},
	Short:   "Record and view weekly sales",
}

var venteAddCmd = &cobra.Command{
	Use:   "add AMOUNT [USER]",
	Short: "Record a sale (for yourself unless USER is given)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		user, err := userArg(args[1:])
		if err != nil {
			return err
		}
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().SalesAdd(ctx, user, amount)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderSales(w, out, true) })
		})
	},
}

var venteMyCmd = &cobra.Command{
	Use:   "my",
	Short: "Show your sales and the team's",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := caller()
		if err != nil {
			return err
		}
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().SalesMine(ctx, user)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderSales(w, out, true) })
		})
	},
}

var venteViewCmd = &cobra.Command{
	Use:   "view USER",
	Short: "Show a member's sales",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().SalesView(ctx, domain.UserID(args[0]))
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderSales(w, out, false) })
		})
	},
}

var venteRemoveCmd = &cobra.Command{
	Use:   "remove USER AMOUNT",
	Short: "Correct a member's sales down (never below zero)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().SalesRemove(ctx, domain.UserID(args[0]), amount)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderSales(w, out, false) })
		})
	},
}

var venteObjectifCmd = &cobra.Command{
	Use:   "objectif AMOUNT",
	Short: "Set the team's weekly sales goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("amount %q is not a number", args[0])
		}
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			goal, err := d.Service().SalesGoalSet(ctx, amount)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), map[string]any{"goal": goal}, func(w io.Writer) {
				fmt.Fprintf(w, "🎯 Objectif de vente: %s\n", money(goal))
			})
		})
	},
}

var venteLeaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank the week's top sellers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, d *daemon.Daemon) error {
			out, err := d.Service().SalesLeaderboard(ctx)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), out, func(w io.Writer) { renderSalesLeaderboard(w, out) })
		})
	},
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number", s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	return amount, nil
}
