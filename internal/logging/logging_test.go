package logging

import (
	"os"
	"path/filepath"
	"testing"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelSelection(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, New(Options{}).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, New(Options{Verbose: true}).GetLevel())
	assert.Equal(t, zerolog.WarnLevel, New(Options{Quiet: true}).GetLevel())
}

func TestWithFileWritesToConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.log")
	logger := WithFile(Options{JSON: true}, models.LogConfig{
		Path:       path,
		MaxSizeMB:  1,
		MaxAgeDays: 1,
	})

	logger.Info().Str("target", "www").Msg("target finished")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "target finished")
	assert.Contains(t, string(content), `"target":"www"`)
}

func TestWithFileRecordsDebugDetailAtAnyConsoleLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.log")
	logger := WithFile(Options{Quiet: true, JSON: true}, models.LogConfig{
		Path:       path,
		MaxSizeMB:  1,
		MaxAgeDays: 1,
	})

	logger.Debug().Str("output", "sending incremental file list").Msg("rsync output")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "sending incremental file list")
}
