package models

import (
	"fmt"
	"os"
	"strings"
)

// Anchor is the path segment separating the discarded part of a source
// path from the part that is recreated on the remote side. rsync itself
// honors the same convention when --relative is in effect.
const Anchor = "/./"

// BackupTarget is a local source directory with an embedded anchor marker,
// e.g. "/srv/./www/". Everything after the anchor is mirrored under the
// remote root.
type BackupTarget struct {
	Source string
}

// Validate checks the structural invariants of the target path: it must
// contain the anchor marker, end with a path separator, and exist as a
// readable directory.
func (t BackupTarget) Validate() error {
	if !strings.Contains(t.Source, Anchor) {
		return fmt.Errorf("target %q is missing the %q anchor marker", t.Source, Anchor)
	}
	if !strings.HasSuffix(t.Source, "/") {
		return fmt.Errorf("target %q must end with a path separator", t.Source)
	}
	info, err := os.Stat(t.OriginalPath())
	if err != nil {
		return fmt.Errorf("target %q: %w", t.Source, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target %q is not a directory", t.Source)
	}
	return nil
}

// RelativePart returns the path portion after the anchor, i.e. the layout
// recreated under the remote root.
func (t BackupTarget) RelativePart() string {
	_, rel, ok := strings.Cut(t.Source, Anchor)
	if !ok {
		return ""
	}
	return rel
}

// OriginalPath reconstructs the plain local path with the anchor collapsed:
// "/a/./b/" becomes "/a/b/".
func (t BackupTarget) OriginalPath() string {
	return strings.Replace(t.Source, Anchor, "/", 1)
}

// RemotePath returns the directory under the remote root that this target
// is mirrored to. root is expected to end with "/".
func (t BackupTarget) RemotePath(root string) string {
	return root + t.RelativePart()
}

// Name is a short identifier used in logs and reports.
func (t BackupTarget) Name() string {
	return strings.TrimSuffix(t.RelativePart(), "/")
}
