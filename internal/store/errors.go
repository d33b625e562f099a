package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

var (
	// ErrNothingToRemove is returned by RemoveAll on an empty install root.
	ErrNothingToRemove = errors.New("nothing to remove: no WasmEdge versions are installed")
	// ErrNoVersionsInstalled is returned when an operation needs an
	// installed version and there is none.
	ErrNoVersionsInstalled = errors.New("no WasmEdge versions are installed")
)

// VersionNotFoundError reports a version with no directory under versions/.
type VersionNotFoundError struct {
	Version string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %s is not installed", e.Version)
}

// InsufficientPermissionsError is returned when the install root cannot be
// written. Remediation holds a ready-to-print suggestion.
type InsufficientPermissionsError struct {
	Path        string
	Remediation string
	Err         error
}

func (e *InsufficientPermissionsError) Error() string {
	msg := fmt.Sprintf("insufficient permissions to write to %s", e.Path)
	if e.Remediation != "" {
		msg += "\n" + e.Remediation
	}
	return msg
}

func (e *InsufficientPermissionsError) Unwrap() error {
	return e.Err
}

// SystemDir is the conventional system-wide install root for this OS.
func SystemDir() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files\WasmEdge`
	}
	return "/usr/local"
}

func remediation(path string) string {
	home := filepath.Join("$HOME", ".wasmedge")
	if runtime.GOOS == "windows" {
		return fmt.Sprintf("Re-run as Administrator to install into %s, or choose a directory you own such as %s (default %s).",
			path, home, SystemDir())
	}
	return fmt.Sprintf("Re-run with sudo to install into %s, or pass a directory you own such as %s (system-wide installs usually use %s).",
		path, home, SystemDir())
}
