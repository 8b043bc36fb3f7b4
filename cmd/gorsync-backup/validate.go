package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  `Validate the configuration file without executing any backup operations.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Remote: %s:%s (port %d)\n", cfg.Remote.Addr(), cfg.Remote.Root, cfg.Remote.Port)
	fmt.Printf("  Targets: %d\n", len(cfg.Backup.Targets))
	for _, target := range cfg.Backup.Targets {
		fmt.Printf("    %s -> %s\n", target.OriginalPath(), target.RemotePath(cfg.Remote.Root))
	}
	fmt.Printf("  Exclude patterns: %d\n", len(cfg.Backup.Exclude))
	fmt.Printf("  Log: %s (rotate at %d MB, keep %d days)\n", cfg.Log.Path, cfg.Log.MaxSizeMB, cfg.Log.MaxAgeDays)
	fmt.Printf("  Lock file: %s\n", cfg.LockFile)
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Recycle bin: %v\n", cfg.Recycle != nil)
	fmt.Printf("  Ntfy: %v\n", cfg.Notify.Ntfy != nil)
	fmt.Printf("  Webhook: %v\n", cfg.Notify.Webhook != nil)
	fmt.Printf("  Wake-on-LAN: %v\n", cfg.WOL != nil)
	fmt.Printf("  Checksum comparison: %v\n", cfg.Backup.Checksum)

	if cfg.Recycle != nil {
		fmt.Println()
		fmt.Println("Recycle Bin:")
		fmt.Printf("  Directory: %s%s\n", cfg.Remote.Root, cfg.Recycle.Dir)
		fmt.Printf("  Retention: %d day(s)\n", cfg.Recycle.RetentionDays)
	}

	if cfg.Notify.Ntfy != nil {
		fmt.Println()
		fmt.Println("Ntfy:")
		fmt.Printf("  URL: %s\n", cfg.Notify.Ntfy.URL)
		fmt.Printf("  Topic: %s\n", cfg.Notify.Ntfy.Topic)
		if cfg.Notify.Ntfy.Token != "" {
			fmt.Printf("  Token: (configured)\n")
		}
	}

	if cfg.WOL != nil {
		fmt.Println()
		fmt.Println("Wake-on-LAN:")
		fmt.Printf("  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Printf("  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		if cfg.WOL.PollURL != "" {
			fmt.Printf("  Poll URL: %s\n", cfg.WOL.PollURL)
		}
	}

	return nil
}
