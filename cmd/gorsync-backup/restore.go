package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gorsync-backup/internal/services/remote"
	"gorsync-backup/internal/services/restore"
	"gorsync-backup/internal/services/rsync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Interactively restore from the remote backup",
	Long: `Walk through restoring a backed-up directory, a single path within
one, or a file from the recycle bin. A dry-run preview of the changes is
always shown and must be confirmed before anything is written.`,
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	controller := restore.New(
		log.Logger,
		*cfg,
		rsync.New(log.Logger),
		remote.New(log.Logger),
		&terminalPrompter{in: bufio.NewReader(os.Stdin), out: os.Stdout},
		os.Stdout,
	)
	if err := controller.Run(ctx); err != nil {
		log.Error().Err(err).Msg("restore failed")
		return err
	}
	return nil
}

// terminalPrompter reads operator answers from the terminal.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *terminalPrompter) Select(label string, options []string) (int, error) {
	fmt.Fprintf(p.out, "%s:\n", label)
	for i, option := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, option)
	}

	for {
		fmt.Fprintf(p.out, "Choice [1-%d]: ", len(options))
		line, err := p.in.ReadString('\n')
		if err != nil {
			return 0, err
		}
		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && choice >= 1 && choice <= len(options) {
			return choice - 1, nil
		}
		fmt.Fprintln(p.out, "Not a valid choice.")
	}
}

func (p *terminalPrompter) Input(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
