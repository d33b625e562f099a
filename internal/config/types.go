package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wasmedge/wasmedgeup/internal/asset"
	"github.com/wasmedge/wasmedgeup/internal/binary"
	"github.com/wasmedge/wasmedgeup/internal/plugin"
	"github.com/wasmedge/wasmedgeup/internal/release"
)

// Config is the effective wasmedgeup configuration.
type Config struct {
	// InstallDir is the install root. Empty means $HOME/.wasmedge.
	InstallDir string `yaml:"install_dir"`
	// TmpDir is the parent of the staging base. Empty means the OS temp dir.
	TmpDir string `yaml:"tmp_dir"`

	ReleaseBaseURL  string `yaml:"release_base_url"`
	APIBaseURL      string `yaml:"api_base_url"`
	ReleasesPageURL string `yaml:"releases_page_url"`
	// ReleasesSource is SourceAPI or SourcePage.
	ReleasesSource string `yaml:"releases_source"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Retries        int           `yaml:"retries"`
	VerifyChecksum bool          `yaml:"verify_checksum"`

	LogLevel string `yaml:"log_level"`
	// Plugins are installed alongside every runtime install, as name[@version].
	Plugins []string `yaml:"plugins,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ReleaseBaseURL:  asset.DefaultReleaseBaseURL,
		APIBaseURL:      release.DefaultAPIBaseURL,
		ReleasesPageURL: release.DefaultReleasesPageURL,
		ReleasesSource:  SourceAPI,
		ConnectTimeout:  binary.DefaultConnectTimeout,
		RequestTimeout:  binary.DefaultRequestTimeout,
		Retries:         binary.DefaultRetries,
		VerifyChecksum:  true,
		LogLevel:        "warn",
	}
}

// ResolvedInstallDir returns InstallDir with ~ expanded, or $HOME/.wasmedge.
func (c *Config) ResolvedInstallDir() (string, error) {
	if c.InstallDir != "" {
		return expandHome(c.InstallDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".wasmedge"), nil
}

// ResolvedTmpDir returns TmpDir with ~ expanded, or the OS temp dir.
func (c *Config) ResolvedTmpDir() (string, error) {
	if c.TmpDir != "" {
		return expandHome(c.TmpDir)
	}
	return os.TempDir(), nil
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	for field, raw := range map[string]string{
		luaFieldReleaseBaseURL: c.ReleaseBaseURL,
		luaFieldAPIBaseURL:     c.APIBaseURL,
		luaFieldReleasesPage:   c.ReleasesPageURL,
	} {
		if err := validateURL(raw); err != nil {
			return &ValidationError{Field: field, Message: err.Error()}
		}
	}

	if c.ReleasesSource != SourceAPI && c.ReleasesSource != SourcePage {
		return &ValidationError{
			Field:   luaFieldReleasesSource,
			Message: fmt.Sprintf("must be %q or %q (got %q)", SourceAPI, SourcePage, c.ReleasesSource),
		}
	}

	if c.ConnectTimeout <= 0 {
		return &ValidationError{Field: luaFieldConnectTimeout, Message: "must be positive"}
	}
	if c.RequestTimeout <= 0 {
		return &ValidationError{Field: luaFieldRequestTimeout, Message: "must be positive"}
	}
	if c.Retries < 0 || c.Retries > maxRetries {
		return &ValidationError{
			Field:   luaFieldRetries,
			Message: fmt.Sprintf("must be between 0 and %d (got %d)", maxRetries, c.Retries),
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{
			Field:   luaFieldLogLevel,
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", c.LogLevel),
		}
	}

	if len(c.Plugins) > MaxPlugins {
		return &ValidationError{
			Field:   luaFieldPlugins,
			Message: fmt.Sprintf("too many plugins (%d), maximum is %d", len(c.Plugins), MaxPlugins),
		}
	}
	for i, p := range c.Plugins {
		if _, err := plugin.ParseSpec(p); err != nil {
			return &ValidationError{Field: fmt.Sprintf("%s[%d]", luaFieldPlugins, i), Message: err.Error()}
		}
	}

	for field, dir := range map[string]string{luaFieldInstallDir: c.InstallDir, luaFieldTmpDir: c.TmpDir} {
		if dir == "" {
			continue
		}
		if err := validateDir(dir); err != nil {
			return &ValidationError{Field: field, Message: err.Error()}
		}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "invalid " + e.Field + ": " + e.Message
	}
	return "invalid config: " + e.Message
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL must use https:// or http:// scheme (got: %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %s", raw)
	}
	return nil
}

// validateDir accepts absolute paths and ~/ paths.
func validateDir(dir string) error {
	if strings.HasPrefix(dir, "~/") || dir == "~" {
		return nil
	}
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("path must be absolute or start with ~/: %s", dir)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return filepath.Clean(path), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
