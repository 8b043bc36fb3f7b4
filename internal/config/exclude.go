package config

import (
	"fmt"
	"os"
	"strings"
)

// WriteExcludeFile materializes the exclusion patterns into a temporary
// file consumable by rsync's --exclude-from. Pattern order is preserved
// for determinism. The caller must invoke cleanup when done; an empty
// pattern list yields no file and a no-op cleanup.
func WriteExcludeFile(patterns []string) (path string, cleanup func(), err error) {
	if len(patterns) == 0 {
		return "", func() {}, nil
	}

	f, err := os.CreateTemp("", "gorsync-exclude-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating exclude file: %w", err)
	}

	content := strings.Join(patterns, "\n") + "\n"
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", nil, fmt.Errorf("writing exclude file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", nil, fmt.Errorf("closing exclude file: %w", err)
	}

	return f.Name(), func() { _ = os.Remove(f.Name()) }, nil
}
