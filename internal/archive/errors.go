package archive

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for archives that are neither tar.gz nor zip.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// IllegalPathError reports an archive member that would land outside the
// extraction directory.
type IllegalPathError struct {
	Name   string
	Target string // symlink target, if the member is a link
}

func (e *IllegalPathError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("illegal symlink %s -> %s", e.Name, e.Target)
	}
	return fmt.Sprintf("illegal file path: %s", e.Name)
}

// InvalidStructureError means an extracted archive has neither a single
// release directory nor a bare install layout.
type InvalidStructureError struct {
	Found string
}

func (e *InvalidStructureError) Error() string {
	if e.Found == "" {
		return "invalid archive structure: archive is empty"
	}
	return fmt.Sprintf("invalid archive structure: unexpected entry %q", e.Found)
}

// SymlinkPermissionError is returned when the OS refuses to create a
// symlink, typically Windows without Developer Mode.
type SymlinkPermissionError struct {
	Path   string
	Target string
	Err    error
}

func (e *SymlinkPermissionError) Error() string {
	return fmt.Sprintf("permission denied creating symlink %s -> %s (on Windows, enable Developer Mode or run as Administrator): %v", e.Path, e.Target, e.Err)
}

func (e *SymlinkPermissionError) Unwrap() error {
	return e.Err
}
