package shell

import (
	"fmt"
	"os"
	"path/filepath"
)

// IsPresent reports whether the shell should be configured at all.
func (s ShellType) IsPresent(env Env) bool {
	switch s {
	case ShellPosix:
		return true
	case ShellBash:
		return isFile(filepath.Join(env.Home, ".bashrc"))
	case ShellZsh:
		return env.loginShellIs("zsh") || env.commandInPath("zsh")
	case ShellFish:
		return env.loginShellIs("fish") || env.commandInPath("fish")
	case ShellNushell:
		return env.loginShellIs("nu") || env.commandInPath("nu")
	default:
		return false
	}
}

// RCPaths lists every startup file the shell may read, most specific first.
// Deconfigure cleans all of them.
func (s ShellType) RCPaths(env Env) []string {
	switch s {
	case ShellPosix:
		return []string{filepath.Join(env.Home, ".profile")}
	case ShellBash:
		return []string{filepath.Join(env.Home, ".bashrc")}
	case ShellZsh:
		home := filepath.Join(env.Home, ".zshenv")
		if env.ZDotDir != "" && isDir(env.ZDotDir) {
			if zdot := filepath.Join(env.ZDotDir, ".zshenv"); zdot != home {
				return []string{zdot, home}
			}
		}
		return []string{home}
	case ShellFish:
		return []string{filepath.Join(env.Home, ".config", "fish", "config.fish")}
	case ShellNushell:
		return []string{
			filepath.Join(env.configDir(), "nushell", "config.nu"),
			filepath.Join(env.configDir(), "nu", "config.nu"),
		}
	default:
		return nil
	}
}

// EffectiveRCFile picks the one startup file Configure edits. ok is false
// when the shell has nothing suitable to edit.
//
// sh edits ~/.profile only if it exists. zsh prefers an existing .zshenv
// and otherwise creates the first candidate. nushell needs an existing
// config.nu. bash and fish always use their single path.
func (s ShellType) EffectiveRCFile(env Env) (path string, ok bool) {
	paths := s.RCPaths(env)
	if len(paths) == 0 {
		return "", false
	}

	switch s {
	case ShellPosix:
		return paths[0], isFile(paths[0])
	case ShellZsh:
		for _, p := range paths {
			if isFile(p) {
				return p, true
			}
		}
		return paths[0], true
	case ShellNushell:
		for _, p := range paths {
			if isFile(p) {
				return p, true
			}
		}
		return "", false
	default:
		return paths[0], true
	}
}

// ScriptName is the environment script's file name inside the install root.
func (s ShellType) ScriptName() string {
	switch s {
	case ShellFish:
		return "env.fish"
	case ShellNushell:
		return "env.nu"
	default:
		return "env"
	}
}

// SourceLine is the startup-file line that loads scriptPath.
func (s ShellType) SourceLine(scriptPath string) string {
	switch s {
	case ShellPosix:
		return fmt.Sprintf(`if [ -f "%s" ]; then . "%s"; fi # WasmEdge env`, scriptPath, scriptPath)
	case ShellFish:
		return fmt.Sprintf("source %s", scriptPath)
	case ShellNushell:
		return fmt.Sprintf(`source-env "%s"`, scriptPath)
	default:
		return fmt.Sprintf(`source "%s"`, scriptPath)
	}
}

// ValidateShell validates that a shell type is supported
func ValidateShell(shell ShellType) error {
	if !shell.IsValid() {
		return &UnsupportedShellError{Shell: shell.String()}
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
