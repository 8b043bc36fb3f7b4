// Package recycle manages the remote recycle bin: dated snapshot folders
// holding files that a backup run would otherwise delete permanently.
package recycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorsync-backup/internal/models"
	"gorsync-backup/internal/services/remote"
	"gorsync-backup/internal/services/rsync"

	"github.com/rs/zerolog"
)

// StampLayout names snapshot folders after the run start time. All targets
// of one run share a single snapshot folder.
const StampLayout = "2006-01-02_1504"

// dateLayout is the leading token parsed back out during pruning.
const dateLayout = "2006-01-02"

// Service defines the interface for recycle bin operations.
type Service interface {
	SnapshotPath(cfg models.Config, runStart time.Time) string
	Prune(ctx context.Context, cfg models.Config, now time.Time) (int, error)
}

// Impl implements the recycle Service interface.
type Impl struct {
	remoteSvc remote.Service
	rsyncSvc  rsync.Service
	logger    zerolog.Logger
}

// New creates a new recycle bin service.
func New(logger zerolog.Logger, remoteSvc remote.Service, rsyncSvc rsync.Service) *Impl {
	return &Impl{
		remoteSvc: remoteSvc,
		rsyncSvc:  rsyncSvc,
		logger:    logger,
	}
}

// SnapshotPath returns the remote snapshot directory for a run, of the form
// <root>/<recycleDir>/<date_time>/. Empty when the recycle bin is disabled.
func (s *Impl) SnapshotPath(cfg models.Config, runStart time.Time) string {
	if cfg.Recycle == nil {
		return ""
	}
	return cfg.Remote.Root + cfg.Recycle.Dir + runStart.Format(StampLayout) + "/"
}

// root returns the remote recycle bin base directory.
func root(cfg models.Config) string {
	return cfg.Remote.Root + cfg.Recycle.Dir
}

// Prune deletes snapshot folders whose leading date token is older than the
// retention period. Folders whose name carries no parseable date are never
// touched. A listing failure (e.g. the recycle root does not exist yet) is
// logged and not escalated. Returns the number of folders removed.
func (s *Impl) Prune(ctx context.Context, cfg models.Config, now time.Time) (int, error) {
	if cfg.Recycle == nil {
		return 0, nil
	}

	dirs, err := s.remoteSvc.ListDirs(ctx, cfg.Remote, root(cfg))
	if err != nil {
		s.logger.Warn().Err(err).Str("path", root(cfg)).Msg("recycle bin listing failed, skipping prune")
		return 0, nil
	}

	cutoff := now.AddDate(0, 0, -cfg.Recycle.RetentionDays)
	s.logger.Debug().
		Time("cutoff", cutoff).
		Int("folders", len(dirs)).
		Msg("pruning recycle bin")

	var (
		pruned int
		errs   []error
	)
	for _, name := range dirs {
		stamp, ok := parseDate(name)
		if !ok {
			s.logger.Debug().Str("folder", name).Msg("skipping undated recycle folder")
			continue
		}
		if !stamp.Before(cutoff) {
			continue
		}

		if err := s.removeSnapshot(ctx, cfg, name); err != nil {
			s.logger.Error().Err(err).Str("folder", name).Msg("failed to prune snapshot")
			errs = append(errs, err)
			continue
		}
		pruned++
		s.logger.Info().Str("folder", name).Msg("pruned expired snapshot")
	}

	return pruned, errors.Join(errs...)
}

// removeSnapshot empties a snapshot folder by mirroring an empty local
// directory onto it, then removes the now-empty directory. The transport
// offers no arbitrary remote deletion, hence the mirror step.
func (s *Impl) removeSnapshot(ctx context.Context, cfg models.Config, name string) error {
	snapshot := root(cfg) + name + "/"

	result, err := s.rsyncSvc.MirrorEmpty(ctx, cfg, snapshot)
	if err != nil {
		return err
	}
	if result.Err != nil {
		return fmt.Errorf("emptying %s: %w", snapshot, result.Err)
	}

	return s.remoteSvc.RemoveDir(ctx, cfg.Remote, root(cfg)+name)
}

// parseDate extracts the leading date token of a snapshot folder name.
func parseDate(name string) (time.Time, bool) {
	if len(name) < len(dateLayout) {
		return time.Time{}, false
	}
	stamp, err := time.Parse(dateLayout, name[:len(dateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return stamp, true
}
