package rsync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExitError mimics exec.ExitError's ExitCode method.
type fakeExitErr struct{ code int }

func (e fakeExitErr) Error() string { return "exit status" }
func (e fakeExitErr) ExitCode() int { return e.code }

func fakeExitError(code int) error { return fakeExitErr{code: code} }

// mockExecutor is a mock implementation of CommandExecutor for testing.
type mockExecutor struct {
	executeFunc func(ctx context.Context, name string, args ...string) ([]byte, error)
	captured    [][]string
}

func (m *mockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.captured = append(m.captured, append([]string{name}, args...))
	if m.executeFunc != nil {
		return m.executeFunc(ctx, name, args...)
	}
	return nil, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testConfig() models.Config {
	return models.Config{
		Remote: models.RemoteConfig{
			Host:    "nas.local",
			Port:    22,
			User:    "backup",
			KeyPath: "/root/.ssh/id_ed25519",
			Root:    "/volume1/backups/",
		},
		Backup: models.BackupSettings{
			Timeout: 5 * time.Minute,
		},
	}
}

func testTarget() models.BackupTarget {
	return models.BackupTarget{Source: "/srv/./www/"}
}

func TestBuildBackupArgs(t *testing.T) {
	cfg := testConfig()
	cfg.Backup.BWLimitKBps = 5000
	cfg.Backup.RsyncOptions = []string{"--protect-args"}

	args := BuildBackupArgs(cfg, testTarget(), "/tmp/exclude", "/volume1/backups/recycle/2025-08-26_0300/")

	assert.Contains(t, args, "--archive")
	assert.Contains(t, args, "--relative")
	assert.Contains(t, args, "--delete")
	assert.Contains(t, args, "--partial")
	assert.Contains(t, args, "--stats")
	assert.Contains(t, args, "--timeout=300")
	assert.Contains(t, args, "--bwlimit=5000")
	assert.Contains(t, args, "--exclude-from=/tmp/exclude")
	assert.Contains(t, args, "--protect-args")
	assert.Contains(t, args, "--backup")
	assert.Contains(t, args, "--backup-dir=/volume1/backups/recycle/2025-08-26_0300/")
	assert.NotContains(t, args, "--dry-run")
	// Source and destination come last.
	assert.Equal(t, "/srv/./www/", args[len(args)-2])
	assert.Equal(t, "backup@nas.local:/volume1/backups/", args[len(args)-1])
}

func TestBuildBackupArgs_NoRecycleBin(t *testing.T) {
	args := BuildBackupArgs(testConfig(), testTarget(), "", "")

	assert.NotContains(t, args, "--backup")
	for _, a := range args {
		assert.NotContains(t, a, "--backup-dir")
		assert.NotContains(t, a, "--exclude-from")
	}
}

func TestBuildDryRunArgs(t *testing.T) {
	args := BuildDryRunArgs(testConfig(), testTarget(), "")

	assert.Contains(t, args, "--dry-run")
	assert.Contains(t, args, "--itemize-changes")
	assert.Contains(t, args, "--delete")
}

func TestBuildCheckArgs(t *testing.T) {
	cfg := testConfig()
	cfg.Backup.Checksum = true

	args := BuildCheckArgs(cfg, testTarget(), "")

	assert.Contains(t, args, "--dry-run")
	assert.Contains(t, args, "--checksum")
	assert.Contains(t, args, "--out-format=%n")
	assert.NotContains(t, args, "--stats")
}

func TestBuildCheckArgs_SizeTimeHeuristics(t *testing.T) {
	args := BuildCheckArgs(testConfig(), testTarget(), "")

	assert.NotContains(t, args, "--checksum")
}

func TestBuildRestoreArgs(t *testing.T) {
	preview := BuildRestoreArgs(testConfig(), "backup@nas.local:/volume1/backups/www/", "/srv/www/", true)
	real := BuildRestoreArgs(testConfig(), "backup@nas.local:/volume1/backups/www/", "/srv/www/", false)

	assert.Contains(t, preview, "--dry-run")
	assert.NotContains(t, real, "--dry-run")
	// Identical options apart from the no-op flag.
	assert.Equal(t, len(preview), len(real)+1)
	assert.NotContains(t, real, "--delete")
	assert.Contains(t, real, "--itemize-changes")
}

func TestSSHCommand(t *testing.T) {
	cmd := SSHCommand(testConfig().Remote)

	assert.Contains(t, cmd, "ssh -p 22")
	assert.Contains(t, cmd, "-o BatchMode=yes")
	assert.Contains(t, cmd, "-i /root/.ssh/id_ed25519")
}

func TestSSHCommand_NoKey(t *testing.T) {
	r := testConfig().Remote
	r.KeyPath = ""

	cmd := SSHCommand(r)

	assert.NotContains(t, cmd, "-i ")
	assert.NotContains(t, cmd, "IdentitiesOnly")
}

func TestBackup_PropagatesExitCode(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("rsync warning: some files vanished"), fakeExitError(24)
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	result, err := svc.Backup(context.Background(), testConfig(), testTarget(), "", "")

	require.NoError(t, err)
	assert.Equal(t, 24, result.ExitCode)
	assert.Error(t, result.Err)
	assert.Contains(t, string(result.Output), "vanished")
}

func TestBackup_Success(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("Total_transferred_size: 1048576\n"), nil
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	result, err := svc.Backup(context.Background(), testConfig(), testTarget(), "", "")

	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.NoError(t, result.Err)
	require.Len(t, executor.captured, 1)
	assert.Equal(t, "rsync", executor.captured[0][0])
}

func TestBackup_MirrorsOutputToLog(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return []byte("sending incremental file list\nwww/index.html\n"), nil
		},
	}

	var sink bytes.Buffer
	svc := NewWithExecutor(zerolog.New(&sink).Level(zerolog.DebugLevel), executor)
	_, err := svc.Backup(context.Background(), testConfig(), testTarget(), "", "")

	require.NoError(t, err)
	assert.Contains(t, sink.String(), "sending incremental file list")
	assert.Contains(t, sink.String(), "www/index.html")
}

func TestExists(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, fakeExitError(23)
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	exists, err := svc.Exists(context.Background(), testConfig(), "/volume1/backups/recycle/missing")

	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExists_Found(t *testing.T) {
	executor := &mockExecutor{}

	svc := NewWithExecutor(testLogger(), executor)
	exists, err := svc.Exists(context.Background(), testConfig(), "/volume1/backups/www")

	require.NoError(t, err)
	assert.True(t, exists)
	require.Len(t, executor.captured, 1)
	assert.Contains(t, executor.captured[0], "--list-only")
}

func TestRun_StartFailure(t *testing.T) {
	executor := &mockExecutor{
		executeFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return nil, errors.New("exec: rsync: executable file not found")
		},
	}

	svc := NewWithExecutor(testLogger(), executor)
	result, err := svc.DryRun(context.Background(), testConfig(), testTarget(), "")

	require.NoError(t, err)
	assert.Equal(t, -1, result.ExitCode)
	assert.Error(t, result.Err)
}
