package rsync

import (
	"fmt"
	"strings"

	"gorsync-backup/internal/models"
)

// SSHCommand assembles the remote-shell command passed to rsync via -e.
func SSHCommand(r models.RemoteConfig) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("ssh -p %d", r.Port))
	b.WriteString(" -o BatchMode=yes")
	if r.KeyPath != "" {
		b.WriteString(" -o IdentitiesOnly=yes")
		b.WriteString(" -i " + r.KeyPath)
	}
	return b.String()
}

// RemoteSpec builds the user@host:path form for a remote path.
func RemoteSpec(r models.RemoteConfig, path string) string {
	return r.Addr() + ":" + path
}

// baseArgs are shared by the mutating modes: archive semantics, resumable
// partial transfers, remote deletion of files absent locally, and parsable
// statistics.
func baseArgs(cfg models.Config) []string {
	args := []string{
		"--archive",
		"--compress",
		"--relative",
		"--delete",
		"--partial",
		"--stats",
		fmt.Sprintf("--timeout=%d", int(cfg.Backup.Timeout.Seconds())),
	}
	if cfg.Backup.BWLimitKBps > 0 {
		args = append(args, fmt.Sprintf("--bwlimit=%d", cfg.Backup.BWLimitKBps))
	}
	return args
}

// BuildBackupArgs maps (config, target) onto the argument vector for a real
// backup transfer. backupDir, when non-empty, redirects remote deletions
// into the recycle bin snapshot instead of purging them.
func BuildBackupArgs(cfg models.Config, target models.BackupTarget, excludeFile, backupDir string) []string {
	args := baseArgs(cfg)
	if excludeFile != "" {
		args = append(args, "--exclude-from="+excludeFile)
	}
	args = append(args, cfg.Backup.RsyncOptions...)
	if backupDir != "" {
		args = append(args, "--backup", "--backup-dir="+backupDir)
	}
	args = append(args,
		"-e", SSHCommand(cfg.Remote),
		target.Source,
		RemoteSpec(cfg.Remote, cfg.Remote.Root),
	)
	return args
}

// BuildDryRunArgs is the backup argument vector plus no-op and
// itemized-change reporting.
func BuildDryRunArgs(cfg models.Config, target models.BackupTarget, excludeFile string) []string {
	args := baseArgs(cfg)
	args = append(args, "--dry-run", "--itemize-changes")
	if excludeFile != "" {
		args = append(args, "--exclude-from="+excludeFile)
	}
	args = append(args, cfg.Backup.RsyncOptions...)
	args = append(args,
		"-e", SSHCommand(cfg.Remote),
		target.Source,
		RemoteSpec(cfg.Remote, cfg.Remote.Root),
	)
	return args
}

// BuildCheckArgs maps a target onto the integrity-check vector: a no-op
// comparison pass, content checksums when enabled, output restricted to
// filenames.
func BuildCheckArgs(cfg models.Config, target models.BackupTarget, excludeFile string) []string {
	args := []string{
		"--archive",
		"--relative",
		"--dry-run",
		"--out-format=%n",
		fmt.Sprintf("--timeout=%d", int(cfg.Backup.Timeout.Seconds())),
	}
	if cfg.Backup.Checksum {
		args = append(args, "--checksum")
	}
	if excludeFile != "" {
		args = append(args, "--exclude-from="+excludeFile)
	}
	args = append(args,
		"-e", SSHCommand(cfg.Remote),
		target.Source,
		RemoteSpec(cfg.Remote, cfg.Remote.Root),
	)
	return args
}

// BuildRestoreArgs maps a remote source and local destination onto the
// restore vector: archive semantics without deletion, verbose itemized
// output, optionally as a preview.
func BuildRestoreArgs(cfg models.Config, src, dst string, dryRun bool) []string {
	args := []string{
		"--archive",
		"--compress",
		"--verbose",
		"--itemize-changes",
		fmt.Sprintf("--timeout=%d", int(cfg.Backup.Timeout.Seconds())),
	}
	if dryRun {
		args = append(args, "--dry-run")
	}
	args = append(args, "-e", SSHCommand(cfg.Remote), src, dst)
	return args
}

// BuildMirrorArgs mirrors a local directory onto a remote path. Pruning
// uses it with an empty local directory, since the transport offers no
// arbitrary remote deletion.
func BuildMirrorArgs(cfg models.Config, localDir, remotePath string) []string {
	return []string{
		"--archive",
		"--delete",
		fmt.Sprintf("--timeout=%d", int(cfg.Backup.Timeout.Seconds())),
		"-e", SSHCommand(cfg.Remote),
		localDir,
		RemoteSpec(cfg.Remote, remotePath),
	}
}

// BuildListArgs builds a zero-length listing probe for a remote path.
func BuildListArgs(cfg models.Config, remotePath string) []string {
	return []string{
		"--list-only",
		fmt.Sprintf("--timeout=%d", int(cfg.Backup.Timeout.Seconds())),
		"-e", SSHCommand(cfg.Remote),
		RemoteSpec(cfg.Remote, remotePath),
	}
}
