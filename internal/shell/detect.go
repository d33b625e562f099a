package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// DetectionResult contains the result of shell detection
type DetectionResult struct {
	// Shell is the detected shell type
	Shell ShellType
	// Method describes how the shell was detected
	Method string
	// ShellPath is the filesystem path or process name of the shell
	ShellPath string
}

// DetectShell finds the shell the user is typing into. The parent process
// wins over $SHELL because it reflects a shell started from the login
// shell; $SHELL is the fallback.
func DetectShell(ctx context.Context, env Env) *DetectionResult {
	if shellType, name := detectFromParentProcess(ctx); shellType.IsValid() {
		return &DetectionResult{Shell: shellType, Method: "parent process", ShellPath: name}
	}

	if env.Shell != "" {
		if shellType := parseShellFromPath(env.Shell); shellType.IsValid() {
			return &DetectionResult{Shell: shellType, Method: "$SHELL environment variable", ShellPath: env.Shell}
		}
	}

	return &DetectionResult{Shell: ShellUnknown, Method: "detection failed"}
}

// parseShellFromPath extracts the shell type from a shell binary path
// Examples:
//   - /bin/bash -> bash
//   - /usr/bin/zsh -> zsh
//   - /usr/local/bin/nu -> nushell
//   - -zsh (login shell argv[0]) -> zsh
func parseShellFromPath(shellPath string) ShellType {
	baseName := strings.ToLower(filepath.Base(shellPath))
	baseName = strings.TrimPrefix(baseName, "-")
	baseName = strings.TrimSuffix(baseName, ".exe")

	switch baseName {
	case "sh", "dash", "ash", "ksh":
		return ShellPosix
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	case "nu", "nushell":
		return ShellNushell
	default:
		return ShellUnknown
	}
}

func detectFromParentProcess(ctx context.Context) (ShellType, string) {
	parent, err := process.NewProcessWithContext(ctx, int32(os.Getppid()))
	if err != nil {
		return ShellUnknown, ""
	}
	name, err := parent.NameWithContext(ctx)
	if err != nil {
		return ShellUnknown, ""
	}
	return parseShellFromPath(name), name
}
