// Package preflight validates the environment before any state-mutating
// action.
package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"gorsync-backup/internal/models"
	"gorsync-backup/internal/services/remote"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// requiredCommands must be resolvable in PATH before a run starts.
var requiredCommands = []string{"rsync", "ssh"}

// Check is the outcome of one preflight validation.
type Check struct {
	Name string
	Err  error
	Code int // exit code when this check fails
}

// Passed reports whether the check succeeded.
func (c Check) Passed() bool { return c.Err == nil }

// Service defines the interface for preflight validation.
type Service interface {
	Run(ctx context.Context, cfg models.Config) []Check
}

// Impl implements the preflight Service interface.
type Impl struct {
	remoteSvc remote.Service
	logger    zerolog.Logger
	lookPath  func(name string) (string, error)
	diskFree  func(path string) (uint64, error)
}

// New creates a new preflight service.
func New(logger zerolog.Logger, remoteSvc remote.Service) *Impl {
	return &Impl{
		remoteSvc: remoteSvc,
		logger:    logger,
		lookPath:  exec.LookPath,
		diskFree:  statfsFree,
	}
}

// NewWithProbes creates a preflight service with custom probes (for testing).
func NewWithProbes(
	logger zerolog.Logger,
	remoteSvc remote.Service,
	lookPath func(name string) (string, error),
	diskFree func(path string) (uint64, error),
) *Impl {
	return &Impl{
		remoteSvc: remoteSvc,
		logger:    logger,
		lookPath:  lookPath,
		diskFree:  diskFree,
	}
}

// statfsFree returns the bytes available to unprivileged users on the
// filesystem containing path.
func statfsFree(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil //nolint:unconvert // Bsize is int64 on some platforms
}

// Run executes every check and returns all outcomes, so interactive callers
// can print a full pass/fail table. Use FirstError for the fatal-on-first
// policy.
func (s *Impl) Run(ctx context.Context, cfg models.Config) []Check {
	var checks []Check

	for _, cmd := range requiredCommands {
		check := Check{Name: "command " + cmd, Code: models.ExitPrerequisite}
		if _, err := s.lookPath(cmd); err != nil {
			check.Err = fmt.Errorf("required command %q not found: %w", cmd, err)
		}
		checks = append(checks, check)
	}

	for _, target := range cfg.Backup.Targets {
		check := Check{Name: "target " + target.Source, Code: models.ExitBadTarget}
		check.Err = target.Validate()
		checks = append(checks, check)
	}

	checks = append(checks, s.checkDiskSpace(cfg))

	probe := Check{Name: "remote endpoint " + cfg.Remote.Host, Code: models.ExitConnectivity}
	probe.Err = s.remoteSvc.Probe(ctx, cfg.Remote)
	checks = append(checks, probe)

	for _, c := range checks {
		if c.Err != nil {
			s.logger.Error().Err(c.Err).Str("check", c.Name).Msg("preflight check failed")
		} else {
			s.logger.Debug().Str("check", c.Name).Msg("preflight check passed")
		}
	}

	return checks
}

func (s *Impl) checkDiskSpace(cfg models.Config) Check {
	check := Check{Name: "local disk space", Code: models.ExitDiskSpace}

	free, err := s.diskFree(filepath.Dir(cfg.Log.Path))
	if err != nil {
		check.Err = fmt.Errorf("checking disk space: %w", err)
		return check
	}

	minBytes := uint64(cfg.MinFreeMB) * 1024 * 1024
	if free < minBytes {
		check.Err = fmt.Errorf("insufficient local disk space: %d MB free, %d MB required",
			free/(1024*1024), cfg.MinFreeMB)
	}
	return check
}

// FirstError returns the first failing check as a CodedError, or nil when
// all checks passed.
func FirstError(checks []Check) *models.CodedError {
	for _, c := range checks {
		if c.Err != nil {
			return models.NewCodedError(c.Code, c.Err)
		}
	}
	return nil
}
