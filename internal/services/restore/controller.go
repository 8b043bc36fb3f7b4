package restore

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"gorsync-backup/internal/models"
	"gorsync-backup/internal/services/remote"
	"gorsync-backup/internal/services/rsync"

	"github.com/rs/zerolog"
)

// Prompter abstracts the operator dialogue so the controller can be driven
// headlessly in tests.
type Prompter interface {
	// Select presents numbered options and returns the chosen index.
	Select(label string, options []string) (int, error)
	// Input reads a free-form line. An empty answer is valid.
	Input(label string) (string, error)
}

// Controller drives the restore state machine against the live services.
type Controller struct {
	cfg       models.Config
	rsyncSvc  rsync.Service
	remoteSvc remote.Service
	prompter  Prompter
	out       io.Writer
	logger    zerolog.Logger

	lookupUser func(username string) (*user.User, error)
	chownTree  func(path string, uid, gid int) error
}

// New creates a restore controller writing preview output to out.
func New(logger zerolog.Logger, cfg models.Config, rsyncSvc rsync.Service, remoteSvc remote.Service, prompter Prompter, out io.Writer) *Controller {
	return &Controller{
		cfg:        cfg,
		rsyncSvc:   rsyncSvc,
		remoteSvc:  remoteSvc,
		prompter:   prompter,
		out:        out,
		logger:     logger,
		lookupUser: user.Lookup,
		chownTree:  defaultChownTree,
	}
}

// Run walks the operator through the restore workflow. An operator abort is
// not an error; a failed transfer maps to the generic failure exit code.
func (c *Controller) Run(ctx context.Context) error {
	m := NewMachine()

	for !m.Terminal() {
		var err error
		switch m.State() {
		case StateSelectSource:
			err = c.selectSource(ctx, m)
		case StateSelectScope:
			err = c.selectScope(ctx, m)
		case StateSelectDestination:
			err = c.selectDestination(m)
		case StateDryRunPreview:
			err = c.preview(ctx, m)
		case StateConfirm:
			err = c.confirm(m)
		case StateExecute:
			err = c.execute(ctx, m)
		}
		if err != nil {
			return err
		}
	}

	switch m.State() {
	case StateAborted:
		c.logger.Info().Msg("restore aborted by operator")
		return nil
	case StateFailed:
		return models.NewCodedError(models.ExitFailure, fmt.Errorf("restore failed"))
	default:
		c.logger.Info().Str("destination", c.destination(m.Selection())).Msg("restore completed")
		return nil
	}
}

// selectSource offers the configured targets plus the recycle bin.
func (c *Controller) selectSource(ctx context.Context, m *Machine) error {
	options := make([]string, 0, len(c.cfg.Backup.Targets)+1)
	for _, t := range c.cfg.Backup.Targets {
		options = append(options, t.Name())
	}
	if c.cfg.Recycle != nil {
		options = append(options, "recycle bin")
	}

	idx, err := c.prompter.Select("Restore from", options)
	if err != nil {
		return err
	}

	if idx < len(c.cfg.Backup.Targets) {
		return m.Apply(LiveSourceChosen{Target: c.cfg.Backup.Targets[idx]})
	}
	return c.selectRecycleSource(ctx, m)
}

// selectRecycleSource browses the dated snapshot folders and asks for a path
// inside the chosen one. A path that fails the existence probe keeps the
// machine in source selection.
func (c *Controller) selectRecycleSource(ctx context.Context, m *Machine) error {
	binPath := c.cfg.Remote.Root + c.cfg.Recycle.Dir
	snapshots, err := c.remoteSvc.ListDirs(ctx, c.cfg.Remote, binPath)
	if err != nil {
		return fmt.Errorf("listing recycle bin: %w", err)
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(c.out, "The recycle bin is empty.")
		return nil
	}

	idx, err := c.prompter.Select("Snapshot", snapshots)
	if err != nil {
		return err
	}
	snapshot := strings.TrimSuffix(snapshots[idx], "/")

	rel, err := c.prompter.Input("Path within the snapshot")
	if err != nil {
		return err
	}
	rel = strings.TrimPrefix(strings.TrimSpace(rel), "/")

	exists, err := c.rsyncSvc.Exists(ctx, c.cfg, binPath+snapshot+"/"+rel)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Fprintf(c.out, "%q does not exist in snapshot %s.\n", rel, snapshot)
	}
	return m.Apply(RecycleSourceChosen{Snapshot: snapshot, Path: rel, Exists: exists})
}

// selectScope narrows a live-target restore to a sub-path. Non-empty answers
// are probed remotely and re-asked until one exists.
func (c *Controller) selectScope(ctx context.Context, m *Machine) error {
	target := m.Selection().Target
	for {
		sub, err := c.prompter.Input("Path within " + target.Name() + " (empty for the whole directory)")
		if err != nil {
			return err
		}
		sub = strings.TrimPrefix(strings.TrimSpace(sub), "/")
		if sub == "" {
			return m.Apply(ScopeChosen{})
		}

		exists, err := c.rsyncSvc.Exists(ctx, c.cfg, target.RemotePath(c.cfg.Remote.Root)+sub)
		if err != nil {
			return err
		}
		if exists {
			return m.Apply(ScopeChosen{SubPath: sub})
		}
		fmt.Fprintf(c.out, "%q does not exist in the backup of %s.\n", sub, target.Name())
	}
}

// selectDestination asks for the local destination, defaulting to the
// original location. Restoring over an existing directory is allowed but
// flagged.
func (c *Controller) selectDestination(m *Machine) error {
	def := c.defaultDestination(m.Selection())

	label := "Destination directory"
	if def != "" {
		label += " (empty for " + def + ")"
	}
	dst, err := c.prompter.Input(label)
	if err != nil {
		return err
	}
	dst = strings.TrimSpace(dst)
	if dst == "" {
		dst = def
	}
	if dst == "" {
		fmt.Fprintln(c.out, "A destination is required for this source.")
		return nil
	}
	if !strings.HasSuffix(dst, "/") {
		dst += "/"
	}

	if info, statErr := os.Stat(dst); statErr == nil && info.IsDir() {
		c.logger.Warn().Str("destination", dst).Msg("destination exists, contents may be overwritten")
		fmt.Fprintf(c.out, "Warning: %s already exists, matching files will be overwritten.\n", dst)
	}
	return m.Apply(DestinationChosen{Path: dst})
}

// preview runs the mandatory dry run and shows the itemized changes.
func (c *Controller) preview(ctx context.Context, m *Machine) error {
	sel := m.Selection()
	result, err := c.rsyncSvc.Restore(ctx, c.cfg, c.sourceSpec(sel), c.destination(sel), true)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "Changes the restore would apply:")
	if _, err := c.out.Write(result.Output); err != nil {
		return err
	}

	ok := models.ClassifyExitCode(result.ExitCode) != models.ClassFailure
	if !ok {
		c.logger.Error().Int("exit_code", result.ExitCode).Msg("restore preview failed")
	}
	return m.Apply(PreviewFinished{OK: ok})
}

// confirm asks until the operator answers exactly yes or no.
func (c *Controller) confirm(m *Machine) error {
	answer, err := c.prompter.Input("Proceed with the restore? (yes/no)")
	if err != nil {
		return err
	}
	return m.Apply(Answered{Text: answer})
}

// execute runs the real transfer and, as a convenience, hands ownership to
// the home-directory owner when restoring into /home.
func (c *Controller) execute(ctx context.Context, m *Machine) error {
	sel := m.Selection()
	dst := c.destination(sel)

	result, err := c.rsyncSvc.Restore(ctx, c.cfg, c.sourceSpec(sel), dst, false)
	if err != nil {
		return err
	}
	if _, err := c.out.Write(result.Output); err != nil {
		return err
	}

	ok := models.ClassifyExitCode(result.ExitCode) != models.ClassFailure
	if ok {
		c.maybeChown(dst)
	} else {
		c.logger.Error().Int("exit_code", result.ExitCode).Msg("restore transfer failed")
	}
	return m.Apply(ExecuteFinished{OK: ok})
}

// sourceSpec builds the remote rsync source for the current selection.
func (c *Controller) sourceSpec(sel Selection) string {
	if sel.FromRecycle {
		path := c.cfg.Remote.Root + c.cfg.Recycle.Dir + sel.Snapshot + "/" + sel.SubPath
		return rsync.RemoteSpec(c.cfg.Remote, path)
	}
	return rsync.RemoteSpec(c.cfg.Remote, sel.Target.RemotePath(c.cfg.Remote.Root)+sel.SubPath)
}

// destination returns the chosen destination, falling back to the default.
func (c *Controller) destination(sel Selection) string {
	if sel.Destination != "" {
		return sel.Destination
	}
	return c.defaultDestination(sel)
}

// defaultDestination reconstructs the original local location. For recycle
// bin restores the relative path is matched against the configured targets;
// a path belonging to no target has no default.
func (c *Controller) defaultDestination(sel Selection) string {
	if !sel.FromRecycle {
		return asDirectory(sel.Target.OriginalPath() + sel.SubPath)
	}
	for _, t := range c.cfg.Backup.Targets {
		rel := t.RelativePart()
		if strings.HasPrefix(sel.SubPath, rel) {
			return asDirectory(t.OriginalPath() + strings.TrimPrefix(sel.SubPath, rel))
		}
	}
	return ""
}

// asDirectory turns a path that may name a single file into the directory
// rsync should restore into.
func asDirectory(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return filepath.Dir(path) + "/"
}

// maybeChown hands restored files to the owner of the enclosing home
// directory. Failures only log; the restore itself already succeeded.
func (c *Controller) maybeChown(dst string) {
	rest, ok := strings.CutPrefix(dst, "/home/")
	if !ok {
		return
	}
	username, _, _ := strings.Cut(rest, "/")
	if username == "" {
		return
	}
	u, err := c.lookupUser(username)
	if err != nil {
		return
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return
	}
	if err := c.chownTree(strings.TrimSuffix(dst, "/"), uid, gid); err != nil {
		c.logger.Warn().Err(err).Str("user", username).Msg("could not adjust ownership of restored files")
		return
	}
	c.logger.Info().Str("user", username).Str("path", dst).Msg("restored files handed to home owner")
}

func defaultChownTree(path string, uid, gid int) error {
	return filepath.WalkDir(path, func(p string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return os.Chown(p, uid, gid)
	})
}
