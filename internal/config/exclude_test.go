package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteExcludeFile_PreservesOrder(t *testing.T) {
	path, cleanup, err := WriteExcludeFile([]string{"*.tmp", ".cache/", "node_modules/"})
	require.NoError(t, err)
	defer cleanup()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "*.tmp\n.cache/\nnode_modules/\n", string(content))
}

func TestWriteExcludeFile_Empty(t *testing.T) {
	path, cleanup, err := WriteExcludeFile(nil)
	require.NoError(t, err)
	defer cleanup()

	assert.Empty(t, path)
}

func TestWriteExcludeFile_CleanupRemovesFile(t *testing.T) {
	path, cleanup, err := WriteExcludeFile([]string{"a"})
	require.NoError(t, err)

	cleanup()
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
