package main

import (
	"os"

	"gorsync-backup/internal/services/runner"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var dryRunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Preview the changes a backup would apply",
	Long: `Run every target through rsync in no-op mode and print the itemized
changes. Nothing is transferred or deleted, no lock is taken and no
notification is sent.`,
	RunE: runDryRun,
}

func runDryRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := runner.New(log.Logger, *cfg).DryRun(ctx, os.Stdout); err != nil {
		log.Error().Err(err).Msg("dry run failed")
		return err
	}
	return nil
}
