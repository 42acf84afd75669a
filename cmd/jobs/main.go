// Command jobs runs maintenance work from the command line or cron:
// schema migrations and the campaign/connection jobs the API also schedules.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/01moynul/collabhub-golang/internal/app"
	"github.com/01moynul/collabhub-golang/internal/config"
	"github.com/01moynul/collabhub-golang/internal/database"
	"github.com/01moynul/collabhub-golang/internal/jobs"
	"github.com/01moynul/collabhub-golang/internal/logger"
)

var (
	envFile string
	cfg     *config.Config
	logr    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "jobs",
	Short:         "CollabHub maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		cfg, _ = config.Load(files...)

		var err error
		logr, err = logger.New(cfg.LogLevel, cfg.IsProduction())
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.OpenDB(cfg.PrimaryDSN, logr)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := database.Migrate(db, logr)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
		return nil
	},
}

// jobCmd builds a subcommand that runs one job and prints its report as JSON.
func jobCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := app.Open(cfg, logr)
			if err != nil {
				return err
			}
			defer core.Close()

			report, err := core.Jobs.Run(cmd.Context(), name)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%s: %d item(s) failed", name, report.Failed)
			}
			return nil
		},
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default .env)")

	rootCmd.AddCommand(
		migrateCmd,
		jobCmd(jobs.ExpireCampaignsJob, "Complete campaigns past their end date"),
		jobCmd(jobs.CaptureSnapshotsJob, "Record growth snapshots for active campaigns"),
		jobCmd(jobs.RefreshConnectionsJob, "Refresh tokens and stats of connected platforms"),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
	if logr != nil {
		_ = logr.Sync()
	}
}
