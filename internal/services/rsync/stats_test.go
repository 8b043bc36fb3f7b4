package rsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStats_TaggedFormat(t *testing.T) {
	output := []byte(`
Number_of_files: 420
Number_of_created_files: 12
Number_of_deleted_files: 3
Number_of_regular_files_transferred: 40
Total_transferred_size: 1048576
`)

	stats := ParseStats(output)

	assert.True(t, stats.Known)
	assert.Equal(t, int64(1048576), stats.BytesTransferred)
	assert.Equal(t, int64(12), stats.FilesCreated)
	assert.Equal(t, int64(28), stats.FilesUpdated) // transferred - created
	assert.Equal(t, int64(3), stats.FilesDeleted)
}

func TestParseStats_LegacyFormat(t *testing.T) {
	output := []byte(`
Number of files: 12,345 (reg: 10,000, dir: 2,345)
Number of created files: 1,200
Number of deleted files: 15
Number of regular files transferred: 1,500
Total file size: 9,876,543 bytes
Total transferred file size: 1,234,567 bytes
`)

	stats := ParseStats(output)

	assert.True(t, stats.Known)
	assert.Equal(t, int64(1234567), stats.BytesTransferred)
	assert.Equal(t, int64(1200), stats.FilesCreated)
	assert.Equal(t, int64(300), stats.FilesUpdated)
	assert.Equal(t, int64(15), stats.FilesDeleted)
}

func TestParseStats_UpdatedFlooredAtZero(t *testing.T) {
	output := []byte(`
Number_of_created_files: 10
Number_of_regular_files_transferred: 4
Total_transferred_size: 100
`)

	stats := ParseStats(output)

	assert.True(t, stats.Known)
	assert.Equal(t, int64(0), stats.FilesUpdated)
}

func TestParseStats_UnknownSentinel(t *testing.T) {
	output := []byte("sending incremental file list\nsome/file\n")

	stats := ParseStats(output)

	assert.False(t, stats.Known)
	assert.Zero(t, stats.BytesTransferred)
}

func TestParseStats_EmptyOutput(t *testing.T) {
	assert.False(t, ParseStats(nil).Known)
}
