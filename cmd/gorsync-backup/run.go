package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gorsync-backup/internal/services/runner"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the backup workflow",
	Long: `Execute the complete backup workflow:
1. Wake-on-LAN (if configured)
2. Preflight checks
3. Acquire the single-instance lock
4. Mirror every configured target to the remote host
5. Prune expired recycle bin snapshots
6. Send the outcome notification`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report, err := runner.New(log.Logger, *cfg).Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("backup failed")
		return err
	}

	log.Info().
		Int("targets", len(report.Results)).
		Dur("duration", report.Duration).
		Msg("backup completed successfully")
	return nil
}

// signalContext cancels on SIGINT/SIGTERM so the current subprocess is
// terminated with the run.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	return ctx, cancel
}
