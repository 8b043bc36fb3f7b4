package main

import (
	"fmt"

	"gorsync-backup/internal/services/preflight"
	"gorsync-backup/internal/services/remote"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the preflight checks only",
	Long: `Run every preflight check (required commands, target directories,
local disk space, remote connectivity) and print a pass/fail line for
each. Nothing is transferred. The exit code matches the first failing
check.`,
	RunE: runPreflightOnly,
}

func runPreflightOnly(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	svc := preflight.New(log.Logger, remote.New(log.Logger))
	checks := svc.Run(ctx, *cfg)
	for _, check := range checks {
		if check.Passed() {
			fmt.Printf("PASS  %s\n", check.Name)
		} else {
			fmt.Printf("FAIL  %s: %v\n", check.Name, check.Err)
		}
	}

	if coded := preflight.FirstError(checks); coded != nil {
		return coded
	}
	fmt.Println("All preflight checks passed.")
	return nil
}
