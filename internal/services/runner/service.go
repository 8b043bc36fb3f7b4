// Package runner orchestrates full backup passes and the non-mutating
// comparison modes built on the same per-target loop.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gorsync-backup/internal/config"
	"gorsync-backup/internal/models"
	"gorsync-backup/internal/services/notify"
	"gorsync-backup/internal/services/preflight"
	"gorsync-backup/internal/services/recycle"
	"gorsync-backup/internal/services/remote"
	"gorsync-backup/internal/services/rsync"
	"gorsync-backup/internal/services/wol"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// Locker serializes whole runs across processes. TryLock never blocks.
type Locker interface {
	TryLock() (bool, error)
	Unlock() error
}

// FlockLocker adapts gofrs/flock. The kernel drops the advisory lock when
// the process exits on any path, so a crashed run never wedges the next one.
type FlockLocker struct {
	fl *flock.Flock
}

// NewFlockLocker creates a locker on the given lock file path.
func NewFlockLocker(path string) *FlockLocker {
	return &FlockLocker{fl: flock.New(path)}
}

// TryLock attempts to acquire the lock without waiting.
func (l *FlockLocker) TryLock() (bool, error) { return l.fl.TryLock() }

// Unlock releases the lock.
func (l *FlockLocker) Unlock() error { return l.fl.Unlock() }

// Service defines the interface for the orchestration modes.
type Service interface {
	Run(ctx context.Context) (*models.BackupReport, error)
	DryRun(ctx context.Context, out io.Writer) error
	Check(ctx context.Context, out io.Writer, summaryOnly bool) error
}

// Impl implements the Service interface.
type Impl struct {
	cfg          models.Config
	rsyncSvc     rsync.Service
	preflightSvc preflight.Service
	recycleSvc   recycle.Service
	dispatcher   *notify.Dispatcher
	wolSvc       wol.Service
	locker       Locker
	logger       zerolog.Logger

	now          func() time.Time
	writeExclude func(patterns []string) (string, func(), error)
}

// New wires the coordinator with the live services.
func New(logger zerolog.Logger, cfg models.Config) *Impl {
	rsyncSvc := rsync.New(logger)
	remoteSvc := remote.New(logger)
	return &Impl{
		cfg:          cfg,
		rsyncSvc:     rsyncSvc,
		preflightSvc: preflight.New(logger, remoteSvc),
		recycleSvc:   recycle.New(logger, remoteSvc, rsyncSvc),
		dispatcher:   notify.NewDispatcher(cfg.Notify, logger),
		wolSvc:       wol.New(logger),
		locker:       NewFlockLocker(cfg.LockFile),
		logger:       logger,
		now:          time.Now,
		writeExclude: config.WriteExcludeFile,
	}
}

// NewWithServices wires the coordinator with custom collaborators (for testing).
func NewWithServices(
	logger zerolog.Logger,
	cfg models.Config,
	rsyncSvc rsync.Service,
	preflightSvc preflight.Service,
	recycleSvc recycle.Service,
	dispatcher *notify.Dispatcher,
	wolSvc wol.Service,
	locker Locker,
) *Impl {
	return &Impl{
		cfg:          cfg,
		rsyncSvc:     rsyncSvc,
		preflightSvc: preflightSvc,
		recycleSvc:   recycleSvc,
		dispatcher:   dispatcher,
		wolSvc:       wolSvc,
		locker:       locker,
		logger:       logger,
		now:          time.Now,
		writeExclude: config.WriteExcludeFile,
	}
}

// Run executes one full backup pass: wake, preflight, lock, the per-target
// transfer loop, recycle bin pruning, report and notification. A non-success
// aggregate outcome is returned as a CodedError alongside the report so the
// caller sees both.
func (s *Impl) Run(ctx context.Context) (report *models.BackupReport, err error) {
	defer func() {
		if cause := recover(); cause != nil {
			s.logger.Error().Interface("cause", cause).Msg("backup run crashed")
			s.dispatcher.Send(ctx, notify.BuildCrashMessage(cause))
			report = nil
			err = models.NewCodedError(models.ExitFailure, fmt.Errorf("backup run crashed: %v", cause))
		}
	}()

	if err := s.wake(ctx); err != nil {
		return nil, s.notifyFatal(ctx, err)
	}
	if err := s.runPreflight(ctx); err != nil {
		return nil, s.notifyFatal(ctx, err)
	}

	// Lock contention is benign and never notifies.
	locked, lockErr := s.locker.TryLock()
	if lockErr != nil {
		return nil, models.NewCodedError(models.ExitFailure, fmt.Errorf("acquiring lock: %w", lockErr))
	}
	if !locked {
		s.logger.Info().Str("lock_file", s.cfg.LockFile).Msg("another run holds the lock, exiting")
		return nil, models.NewCodedError(models.ExitLockHeld, errors.New("another backup run is in progress"))
	}
	defer func() { _ = s.locker.Unlock() }()

	report, err = s.backupAll(ctx)
	if err != nil {
		return nil, s.notifyFatal(ctx, err)
	}

	s.prune(ctx)

	s.dispatcher.Send(ctx, notify.BuildReportMessage(report))

	if code := report.ExitCode(); code != models.ExitSuccess {
		return report, models.NewCodedError(code, fmt.Errorf("backup finished with %s", report.Overall()))
	}
	return report, nil
}

// DryRun previews every target without mutating anything. Failures are
// reported inline only; no notification is sent and no lock is taken.
func (s *Impl) DryRun(ctx context.Context, out io.Writer) error {
	excludeFile, cleanup, err := s.writeExclude(s.cfg.Backup.Exclude)
	if err != nil {
		return models.NewCodedError(models.ExitFailure, err)
	}
	defer cleanup()

	failed := false
	for _, target := range s.cfg.Backup.Targets {
		result, err := s.rsyncSvc.DryRun(ctx, s.cfg, target, excludeFile)
		if err != nil {
			return models.NewCodedError(models.ExitFailure, err)
		}

		fmt.Fprintf(out, "== %s ==\n", target.Name())
		if _, err := out.Write(result.Output); err != nil {
			return err
		}

		if models.ClassifyExitCode(result.ExitCode) == models.ClassFailure {
			failed = true
			s.logger.Error().
				Str("target", target.Name()).
				Int("exit_code", result.ExitCode).
				Msg("dry run failed")
		}
	}
	if failed {
		return models.NewCodedError(models.ExitFailure, errors.New("dry run failed for one or more targets"))
	}
	return nil
}

// Check compares local and remote state per target. summaryOnly restricts
// the output to mismatch counts. The outcome is communicated via log,
// terminal and notification; the exit code is always zero, even when the
// comparison itself could not run.
func (s *Impl) Check(ctx context.Context, out io.Writer, summaryOnly bool) error {
	excludeFile, cleanup, err := s.writeExclude(s.cfg.Backup.Exclude)
	if err != nil {
		s.logger.Error().Err(err).Msg("integrity check could not start")
		fmt.Fprintf(out, "check failed: %v\n", err)
		return nil
	}
	defer cleanup()

	total := 0
	var body strings.Builder
	for _, target := range s.cfg.Backup.Targets {
		result, err := s.rsyncSvc.Check(ctx, s.cfg, target, excludeFile)
		if err != nil {
			s.logger.Error().Err(err).Str("target", target.Name()).Msg("integrity check invocation failed")
			fmt.Fprintf(out, "%s: check failed: %v\n", target.Name(), err)
			continue
		}

		mismatches := mismatchLines(result.Output)
		total += len(mismatches)
		fmt.Fprintf(out, "%s: %d mismatched files\n", target.Name(), len(mismatches))
		fmt.Fprintf(&body, "%s: %d mismatched files\n", target.Name(), len(mismatches))
		if !summaryOnly {
			for _, line := range mismatches {
				fmt.Fprintf(out, "  %s\n", line)
			}
		}

		s.logger.Info().
			Str("target", target.Name()).
			Int("mismatches", len(mismatches)).
			Msg("integrity check finished")
	}

	if !summaryOnly {
		status := models.NotifySuccess
		title := "Integrity check passed"
		if total > 0 {
			status = models.NotifyWarning
			title = fmt.Sprintf("Integrity check found %d mismatched files", total)
		}
		s.dispatcher.Send(ctx, models.NotifyMessage{
			Status:  status,
			Title:   title,
			Body:    body.String(),
			Started: s.now(),
		})
	}
	return nil
}

// wake powers on the remote host when Wake-on-LAN is configured.
func (s *Impl) wake(ctx context.Context) error {
	if s.cfg.WOL == nil {
		return nil
	}
	if err := s.wolSvc.Wake(ctx, *s.cfg.WOL); err != nil {
		return models.NewCodedError(models.ExitConnectivity, fmt.Errorf("waking backup host: %w", err))
	}
	return nil
}

// runPreflight converts the first failing check into its coded error.
func (s *Impl) runPreflight(ctx context.Context) error {
	checks := s.preflightSvc.Run(ctx, s.cfg)
	if coded := preflight.FirstError(checks); coded != nil {
		return coded
	}
	return nil
}

// backupAll runs the per-target transfer loop. One target's failure never
// prevents the remaining targets from being attempted.
func (s *Impl) backupAll(ctx context.Context) (*models.BackupReport, error) {
	report := &models.BackupReport{Started: s.now()}

	excludeFile, cleanup, err := s.writeExclude(s.cfg.Backup.Exclude)
	if err != nil {
		return nil, models.NewCodedError(models.ExitFailure, fmt.Errorf("writing exclude file: %w", err))
	}
	defer cleanup()

	backupDir := s.recycleSvc.SnapshotPath(s.cfg, report.Started)

	for _, target := range s.cfg.Backup.Targets {
		report.Append(s.backupOne(ctx, target, excludeFile, backupDir))
	}
	report.Duration = time.Since(report.Started)
	return report, nil
}

func (s *Impl) backupOne(ctx context.Context, target models.BackupTarget, excludeFile, backupDir string) models.RunResult {
	res := models.RunResult{Target: target.Name()}

	result, err := s.rsyncSvc.Backup(ctx, s.cfg, target, excludeFile, backupDir)
	if err != nil {
		res.ExitCode = -1
		res.Class = models.ClassFailure
		res.Err = err
		return res
	}

	res.ExitCode = result.ExitCode
	res.Class = models.ClassifyExitCode(result.ExitCode)
	res.Err = result.Err
	res.Stats = rsync.ParseStats(result.Output)

	event := s.logger.Info()
	if res.Class == models.ClassFailure {
		event = s.logger.Error()
	}
	event.
		Str("target", res.Target).
		Int("exit_code", res.ExitCode).
		Str("class", res.Class.String()).
		Dur("duration", result.Duration).
		Msg("target finished")

	if !res.Stats.Known {
		s.logger.Warn().Str("target", res.Target).Msg("no transfer statistics in rsync output")
	}
	return res
}

// prune cleans expired recycle bin snapshots. Failures are logged and never
// escalate to the run outcome.
func (s *Impl) prune(ctx context.Context) {
	pruned, err := s.recycleSvc.Prune(ctx, s.cfg, s.now())
	if err != nil {
		s.logger.Warn().Err(err).Msg("recycle bin pruning failed")
		return
	}
	if pruned > 0 {
		s.logger.Info().Int("snapshots", pruned).Msg("pruned expired recycle bin snapshots")
	}
}

// notifyFatal pushes a failure notification for a fatal pre-run error and
// passes the error through.
func (s *Impl) notifyFatal(ctx context.Context, err error) error {
	s.logger.Error().Err(err).Msg("backup run aborted")
	s.dispatcher.Send(ctx, models.NotifyMessage{
		Status:  models.NotifyFailure,
		Title:   "Backup aborted",
		Body:    err.Error(),
		Started: s.now(),
	})
	return err
}

// mismatchLines extracts the changed-file names from a filenames-only
// comparison pass, dropping directory entries and rsync's own chatter.
func mismatchLines(output []byte) []string {
	var files []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || line == "./":
			continue
		case strings.HasSuffix(line, "/"):
			continue
		case strings.HasPrefix(line, "sending ") || strings.HasPrefix(line, "sent "):
			continue
		case strings.HasPrefix(line, "total size"):
			continue
		}
		files = append(files, line)
	}
	return files
}
