package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ShellType represents a supported shell
type ShellType string

const (
	// ShellPosix is any POSIX sh reading ~/.profile
	ShellPosix ShellType = "sh"
	// ShellBash represents the Bash shell
	ShellBash ShellType = "bash"
	// ShellZsh represents the Z shell
	ShellZsh ShellType = "zsh"
	// ShellFish represents the Fish shell
	ShellFish ShellType = "fish"
	// ShellNushell represents Nushell
	ShellNushell ShellType = "nushell"
	// ShellUnknown represents an unknown or unsupported shell
	ShellUnknown ShellType = "unknown"
)

// String returns the string representation of the shell type
func (s ShellType) String() string {
	return string(s)
}

// IsValid returns true if the shell type is supported
func (s ShellType) IsValid() bool {
	switch s {
	case ShellPosix, ShellBash, ShellZsh, ShellFish, ShellNushell:
		return true
	default:
		return false
	}
}

// SupportedShells returns every supported shell in configuration order.
func SupportedShells() []ShellType {
	return []ShellType{ShellPosix, ShellBash, ShellZsh, ShellFish, ShellNushell}
}

// Env is the slice of the user environment shell integration depends on.
type Env struct {
	// Home is the user's home directory. Required.
	Home string
	// ConfigDir is the platform config dir (~/.config, ~/Library/Application Support).
	ConfigDir string
	// ZDotDir is $ZDOTDIR, if set.
	ZDotDir string
	// Shell is $SHELL.
	Shell string
	// Path is $PATH.
	Path string
	// GOOS selects Windows registry handling. Defaults to runtime.GOOS.
	GOOS string
}

// EnvFromOS captures Env from the running process.
func EnvFromOS() (Env, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Env{}, fmt.Errorf("get home directory: %w", err)
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(home, ".config")
	}
	return Env{
		Home:      home,
		ConfigDir: configDir,
		ZDotDir:   os.Getenv("ZDOTDIR"),
		Shell:     os.Getenv("SHELL"),
		Path:      os.Getenv("PATH"),
		GOOS:      runtime.GOOS,
	}, nil
}

func (e Env) goos() string {
	if e.GOOS == "" {
		return runtime.GOOS
	}
	return e.GOOS
}

func (e Env) configDir() string {
	if e.ConfigDir == "" {
		return filepath.Join(e.Home, ".config")
	}
	return e.ConfigDir
}

// loginShellIs reports whether $SHELL names binary.
func (e Env) loginShellIs(binary string) bool {
	return e.Shell != "" && strings.EqualFold(filepath.Base(e.Shell), binary)
}

// commandInPath reports whether a regular file named name exists on Path.
func (e Env) commandInPath(name string) bool {
	for _, dir := range filepath.SplitList(e.Path) {
		if dir == "" {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, name))
		if err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// UnsupportedShellError represents an unsupported shell error
type UnsupportedShellError struct {
	Shell string
}

func (e *UnsupportedShellError) Error() string {
	return fmt.Sprintf("unsupported shell: %s (supported: sh, bash, zsh, fish, nushell)", e.Shell)
}

// RCFileError represents an error with shell rc file operations
type RCFileError struct {
	Path    string
	Message string
	Cause   error
}

func (e *RCFileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rc file error (%s): %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("rc file error (%s): %s", e.Path, e.Message)
}

func (e *RCFileError) Unwrap() error {
	return e.Cause
}
