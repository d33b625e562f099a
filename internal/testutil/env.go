// Package testutil provides helpers for testing wasmedgeup in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env is an isolated user environment rooted in a temp dir.
type Env struct {
	Home      string
	ConfigDir string
	TmpDir    string
}

// InstallRoot is the default install root inside Home.
func (e Env) InstallRoot() string {
	return filepath.Join(e.Home, ".wasmedge")
}

// SetupTestEnv points HOME, the XDG config dir and TMPDIR at fresh temp
// directories and clears the shell variables, so a test can never touch
// the real install root or startup files.
//
// The cleanup function is automatically handled by t.TempDir() and
// t.Setenv(), so callers don't need to manually clean up.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := Env{
		Home:      filepath.Join(tmpDir, "home"),
		ConfigDir: filepath.Join(tmpDir, "config"),
		TmpDir:    filepath.Join(tmpDir, "tmp"),
	}

	for _, dir := range []string{env.Home, env.ConfigDir, env.TmpDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("USERPROFILE", env.Home)
	t.Setenv("XDG_CONFIG_HOME", env.ConfigDir)
	t.Setenv("TMPDIR", env.TmpDir)
	t.Setenv("SHELL", "")
	t.Setenv("ZDOTDIR", "")

	return env
}
