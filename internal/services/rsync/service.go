// Package rsync invokes the system rsync binary and interprets its output.
package rsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
)

// Service defines the interface for rsync operations.
type Service interface {
	Backup(ctx context.Context, cfg models.Config, target models.BackupTarget, excludeFile, backupDir string) (*models.TransferResult, error)
	DryRun(ctx context.Context, cfg models.Config, target models.BackupTarget, excludeFile string) (*models.TransferResult, error)
	Check(ctx context.Context, cfg models.Config, target models.BackupTarget, excludeFile string) (*models.TransferResult, error)
	Restore(ctx context.Context, cfg models.Config, src, dst string, dryRun bool) (*models.TransferResult, error)
	MirrorEmpty(ctx context.Context, cfg models.Config, remotePath string) (*models.TransferResult, error)
	Exists(ctx context.Context, cfg models.Config, remotePath string) (bool, error)
}

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its combined output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Impl implements the Service interface.
type Impl struct {
	executor CommandExecutor
	logger   zerolog.Logger
}

// New creates a new rsync service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new rsync service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
	}
}

// run executes rsync with the given arguments and captures the raw result.
// The exit code is propagated unchanged.
func (s *Impl) run(ctx context.Context, args []string) *models.TransferResult {
	start := time.Now()

	s.logger.Debug().Strs("args", args).Msg("invoking rsync")

	output, err := s.executor.Execute(ctx, "rsync", args...)
	result := &models.TransferResult{
		Output:   output,
		Duration: time.Since(start),
	}

	if err != nil {
		// exec.ExitError and test fakes both expose ExitCode().
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		result.Err = fmt.Errorf("rsync exited with code %d: %w", result.ExitCode, err)
	}

	if len(result.Output) > 0 {
		s.logger.Debug().Str("output", string(result.Output)).Msg("rsync output")
	}
	s.logger.Debug().
		Int("exit_code", result.ExitCode).
		Dur("duration", result.Duration).
		Msg("rsync finished")

	return result
}

// Backup performs a real backup transfer for one target.
func (s *Impl) Backup(ctx context.Context, cfg models.Config, target models.BackupTarget, excludeFile, backupDir string) (*models.TransferResult, error) {
	s.logger.Info().Str("target", target.Name()).Msg("starting backup transfer")
	return s.run(ctx, BuildBackupArgs(cfg, target, excludeFile, backupDir)), nil
}

// DryRun previews the changes a backup transfer would apply.
func (s *Impl) DryRun(ctx context.Context, cfg models.Config, target models.BackupTarget, excludeFile string) (*models.TransferResult, error) {
	s.logger.Info().Str("target", target.Name()).Msg("starting dry run")
	return s.run(ctx, BuildDryRunArgs(cfg, target, excludeFile)), nil
}

// Check compares local and remote state without transferring data.
func (s *Impl) Check(ctx context.Context, cfg models.Config, target models.BackupTarget, excludeFile string) (*models.TransferResult, error) {
	s.logger.Info().
		Str("target", target.Name()).
		Bool("checksum", cfg.Backup.Checksum).
		Msg("starting integrity check")
	return s.run(ctx, BuildCheckArgs(cfg, target, excludeFile)), nil
}

// Restore transfers a remote source back to a local destination.
func (s *Impl) Restore(ctx context.Context, cfg models.Config, src, dst string, dryRun bool) (*models.TransferResult, error) {
	s.logger.Info().
		Str("src", src).
		Str("dst", dst).
		Bool("dry_run", dryRun).
		Msg("starting restore transfer")
	return s.run(ctx, BuildRestoreArgs(cfg, src, dst, dryRun)), nil
}

// MirrorEmpty empties a remote directory by mirroring a fresh empty local
// directory onto it.
func (s *Impl) MirrorEmpty(ctx context.Context, cfg models.Config, remotePath string) (*models.TransferResult, error) {
	dir, err := os.MkdirTemp("", "gorsync-empty-*")
	if err != nil {
		return nil, fmt.Errorf("creating empty directory: %w", err)
	}
	defer func() { _ = os.Remove(dir) }()

	return s.run(ctx, BuildMirrorArgs(cfg, dir+"/", remotePath)), nil
}

// Exists probes a remote path with a zero-length listing. A non-zero exit
// means the path is absent or unreadable, not an error.
func (s *Impl) Exists(ctx context.Context, cfg models.Config, remotePath string) (bool, error) {
	result := s.run(ctx, BuildListArgs(cfg, remotePath))
	return result.ExitCode == 0, nil
}
