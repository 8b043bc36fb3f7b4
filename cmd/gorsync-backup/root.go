package main

import (
	"fmt"
	"os"

	"gorsync-backup/internal/config"
	"gorsync-backup/internal/logging"
	"gorsync-backup/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "gorsync-backup",
	Short: "An rsync-over-SSH directory backup orchestrator",
	Long: `gorsync-backup mirrors local directories to a remote host via rsync
over SSH and layers the operational glue around it:
  - preflight checks (tools, targets, connectivity, disk space)
  - single-instance locking
  - a remote recycle bin with dated snapshots and aged pruning
  - an interactive restore workflow
  - ntfy and webhook notifications

Use as a one-shot command with an external scheduler (cron, systemd timer, etc.)`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (required)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (warnings and errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dryRunCmd)
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(validateCmd)
}

func logOptions() logging.Options {
	return logging.Options{Verbose: verbose, Quiet: quiet, JSON: jsonOutput}
}

func setupLogging() {
	log.Logger = logging.New(logOptions())
}

// loadConfig parses the configuration and switches logging to the persistent
// log file it names.
func loadConfig() (*models.Config, error) {
	if configFile == "" {
		return nil, models.NewCodedError(models.ExitFailure, fmt.Errorf("config file is required, use --config"))
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, models.NewCodedError(models.ExitFailure, fmt.Errorf("config file not found: %s", configFile))
	}

	parser := config.NewParser(log.Logger)
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return nil, models.NewCodedError(models.ExitFailure, err)
	}

	log.Logger = logging.WithFile(logOptions(), cfg.Log)
	log.Info().
		Str("config", configFile).
		Str("remote", cfg.Remote.Addr()).
		Int("targets", len(cfg.Backup.Targets)).
		Msg("configuration loaded")
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
