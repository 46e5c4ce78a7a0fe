// Package cli implements the quotabot command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/quotabot/quotabot/internal/daemon"
	"github.com/quotabot/quotabot/internal/domain"
	"github.com/quotabot/quotabot/internal/infra/logging"
)

var (
	configPath string
	jsonOutput bool
	callerFlag string
)

var rootCmd = &cobra.Command{
	Use:   "quotabot",
	Short: "Weekly quota and sales ledger for team chat",
	Long: `quotabot tracks what each team member produced this week against
per-item goals, records their sales against a shared sales goal, and resets
both every week while keeping the goals.

Run 'quotabot serve' for the HTTP API and the weekly reset timer, or use the
commands below to work on the ledger directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logging.Init(cfg.Logging())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $QUOTABOT_HOME/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().StringVar(&callerFlag, "as", "", "member id of the caller (default $QUOTABOT_USER)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (daemon.Config, error) {
	path := configPath
	if path == "" {
		path = daemon.ConfigPath()
	}
	return daemon.LoadConfig(path)
}

// withLedger opens the ledger for one command and closes it afterwards.
func withLedger(cmd *cobra.Command, fn func(ctx context.Context, d *daemon.Daemon) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := daemon.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d)
}

// caller returns the member the command acts as.
func caller() (domain.UserID, error) {
	id := callerFlag
	if id == "" {
		id = os.Getenv("QUOTABOT_USER")
	}
	if id == "" {
		return "", fmt.Errorf("%w: pass --as or set QUOTABOT_USER", domain.ErrUnknownUser)
	}
	return domain.UserID(id), nil
}

// output prints v as JSON when --json is set, otherwise calls text.
func output(w io.Writer, v any, text func(w io.Writer)) error {
	if jsonOutput {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	text(w)
	return nil
}
