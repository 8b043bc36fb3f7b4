package rsync

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"gorsync-backup/internal/models"
)

// Counter prefixes in the machine-tagged stats format.
const (
	tagCreated     = "Number_of_created_files:"
	tagDeleted     = "Number_of_deleted_files:"
	tagTransferred = "Number_of_regular_files_transferred:"
	tagBytes       = "Total_transferred_size:"
)

// Counter prefixes in the legacy human-readable format, where numbers carry
// thousands separators.
const (
	legacyCreated     = "Number of created files:"
	legacyDeleted     = "Number of deleted files:"
	legacyTransferred = "Number of regular files transferred:"
	legacyBytes       = "Total transferred file size:"
)

// ParseStats extracts transfer counters from raw rsync output, tolerating
// both the machine-tagged and the legacy human-readable stats formats.
// When no recognizable counter is found, the result is the unknown sentinel
// (Known=false) rather than all-zero stats, so "nothing changed" stays
// distinguishable from "could not parse output".
func ParseStats(output []byte) models.TransferStats {
	var (
		stats       models.TransferStats
		transferred int64
	)

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		for _, probe := range []struct {
			prefix string
			dest   *int64
		}{
			{tagCreated, &stats.FilesCreated},
			{tagDeleted, &stats.FilesDeleted},
			{tagTransferred, &transferred},
			{tagBytes, &stats.BytesTransferred},
			{legacyCreated, &stats.FilesCreated},
			{legacyDeleted, &stats.FilesDeleted},
			{legacyTransferred, &transferred},
			{legacyBytes, &stats.BytesTransferred},
		} {
			rest, ok := strings.CutPrefix(line, probe.prefix)
			if !ok {
				continue
			}
			if n, ok := parseCounter(rest); ok {
				*probe.dest = n
				stats.Known = true
			}
			break
		}
	}

	if !stats.Known {
		return models.TransferStats{}
	}

	// "Files updated" is derived, floored at zero.
	stats.FilesUpdated = transferred - stats.FilesCreated
	if stats.FilesUpdated < 0 {
		stats.FilesUpdated = 0
	}

	return stats
}

// parseCounter reads the first numeric token after a counter prefix,
// stripping thousands separators. Trailing units ("bytes") are ignored.
func parseCounter(s string) (int64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(fields[0], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
