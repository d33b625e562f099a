package shell

import (
	"fmt"
	"path/filepath"

	"github.com/wasmedge/wasmedgeup/internal/logging"
)

// Config holds configuration for shell integration
type Config struct {
	Env Env
	// Shells defaults to SupportedShells.
	Shells []ShellType
	Logger logging.Logger
}

// Integration configures and deconfigures shells for an install root.
type Integration struct {
	env    Env
	shells []ShellType
	path   pathEditor
	logger logging.Logger
}

// pathEditor edits the persistent per-user Path on Windows.
type pathEditor interface {
	Add(dir string) (bool, error)
	Remove(dir string) (bool, error)
}

// NewIntegration creates a shell integration.
func NewIntegration(config Config) (*Integration, error) {
	if config.Env.Home == "" {
		return nil, fmt.Errorf("Env.Home is required")
	}
	shells := config.Shells
	if len(shells) == 0 {
		shells = SupportedShells()
	}
	for _, s := range shells {
		if err := ValidateShell(s); err != nil {
			return nil, err
		}
	}

	return &Integration{
		env:    config.Env,
		shells: shells,
		path:   registryPath{},
		logger: logging.OrNop(config.Logger),
	}, nil
}

// ConfigureResult lists what Configure wrote.
type ConfigureResult struct {
	// Scripts are the environment scripts written into the root.
	Scripts []string
	// Updated are the startup files that gained a source line.
	Updated []string
	// PathUpdated is true when the Windows user Path gained the bin dir.
	PathUpdated bool
}

// Configure writes environment scripts into root and hooks them into every
// present shell. Running it again changes nothing.
func (i *Integration) Configure(root string) (*ConfigureResult, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	result := &ConfigureResult{}

	if i.env.goos() == "windows" {
		changed, err := i.path.Add(filepath.Join(root, "bin"))
		if err != nil {
			return nil, fmt.Errorf("update user Path: %w", err)
		}
		result.PathUpdated = changed
		return result, nil
	}

	written := make(map[string]string)
	for _, s := range i.shells {
		if !s.IsPresent(i.env) {
			i.logger.Debug("shell not present", "shell", s)
			continue
		}
		rc, ok := s.EffectiveRCFile(i.env)
		if !ok {
			i.logger.Debug("no startup file to edit", "shell", s)
			continue
		}

		script, done := written[s.ScriptName()]
		if !done {
			if script, err = writeScript(root, s); err != nil {
				return result, err
			}
			written[s.ScriptName()] = script
			result.Scripts = append(result.Scripts, script)
		}

		changed, err := AppendLine(rc, s.SourceLine(script))
		if err != nil {
			return result, err
		}
		if changed {
			i.logger.Debug("startup file updated", "shell", s, "path", rc)
			result.Updated = append(result.Updated, rc)
		}
	}
	return result, nil
}

// Deconfigure removes every source line for root from every known startup
// file, present shell or not. Missing files are skipped.
func (i *Integration) Deconfigure(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	if i.env.goos() == "windows" {
		if _, err := i.path.Remove(filepath.Join(root, "bin")); err != nil {
			return fmt.Errorf("update user Path: %w", err)
		}
		return nil
	}

	var errs []error
	for _, s := range SupportedShells() {
		line := s.SourceLine(filepath.Join(root, s.ScriptName()))
		for _, rc := range s.RCPaths(i.env) {
			changed, err := RemoveLine(rc, line)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if changed {
				i.logger.Debug("startup file cleaned", "shell", s, "path", rc)
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("deconfigure shells: %w", errs[0])
	}
	return nil
}

// SourceHint is the command a user runs to load root into the current
// session of shell.
func (i *Integration) SourceHint(root string, shell ShellType) string {
	if !shell.IsValid() {
		shell = ShellPosix
	}
	script := filepath.Join(root, shell.ScriptName())
	switch shell {
	case ShellPosix:
		return fmt.Sprintf(`. "%s"`, script)
	default:
		return shell.SourceLine(script)
	}
}
