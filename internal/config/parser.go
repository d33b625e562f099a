package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/wasmedge/wasmedgeup/internal/platform"
)

// Parser executes config files against a fixed platform descriptor.
type Parser struct {
	platform *platform.Descriptor
}

// NewParser creates a parser. desc may be nil, in which case no platform
// table is available to the config.
func NewParser(desc *platform.Descriptor) *Parser {
	return &Parser{platform: desc}
}

// DefaultPath returns $XDG_CONFIG_HOME/wasmedgeup/config.lua, falling back
// to ~/.config/wasmedgeup/config.lua.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wasmedgeup", "config.lua"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "wasmedgeup", "config.lua"), nil
}

// LoadFile parses the config at path. A missing file yields Default and
// found=false unless required is set.
func (p *Parser) LoadFile(ctx context.Context, path string, required bool) (cfg *Config, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return Default(), false, nil
		}
		return nil, false, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err = p.Parse(ctx, f, filepath.Base(path))
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

// Parse reads a config from r. name is used in error messages.
func (p *Parser) Parse(ctx context.Context, r io.Reader, name string) (*Config, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%s exceeds %d bytes", name, MaxConfigSize),
		}
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.platform != nil {
		if err := platform.InjectPlatformTable(L, p.platform); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ParseError{Message: "config evaluation timed out", Detail: ctxErr.Error()}
		}
		return nil, &ParseError{Message: "Lua error", Detail: err.Error()}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig overlays the global wasmedgeup table onto Default.
func extractConfig(L *lua.LState) (*Config, error) {
	global := L.GetGlobal(luaGlobal)
	if global.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: fmt.Sprintf("missing or invalid '%s' table", luaGlobal),
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}
	table := global.(*lua.LTable)
	cfg := Default()

	var errs []error
	str := func(field string, dst *string) {
		switch v := table.RawGetString(field); v.Type() {
		case lua.LTNil:
		case lua.LTString:
			*dst = strings.TrimSpace(v.String())
		default:
			errs = append(errs, typeError(field, "string", v))
		}
	}
	seconds := func(field string, dst *time.Duration) {
		switch v := table.RawGetString(field); v.Type() {
		case lua.LTNil:
		case lua.LTNumber:
			*dst = time.Duration(float64(lua.LVAsNumber(v)) * float64(time.Second))
		default:
			errs = append(errs, typeError(field, "number", v))
		}
	}

	str(luaFieldInstallDir, &cfg.InstallDir)
	str(luaFieldTmpDir, &cfg.TmpDir)
	str(luaFieldReleaseBaseURL, &cfg.ReleaseBaseURL)
	str(luaFieldAPIBaseURL, &cfg.APIBaseURL)
	str(luaFieldReleasesPage, &cfg.ReleasesPageURL)
	str(luaFieldReleasesSource, &cfg.ReleasesSource)
	str(luaFieldLogLevel, &cfg.LogLevel)
	seconds(luaFieldConnectTimeout, &cfg.ConnectTimeout)
	seconds(luaFieldRequestTimeout, &cfg.RequestTimeout)

	switch v := table.RawGetString(luaFieldRetries); v.Type() {
	case lua.LTNil:
	case lua.LTNumber:
		n := float64(lua.LVAsNumber(v))
		if n != float64(int(n)) {
			errs = append(errs, &ValidationError{Field: luaFieldRetries, Message: "must be an integer"})
		}
		cfg.Retries = int(n)
	default:
		errs = append(errs, typeError(luaFieldRetries, "number", v))
	}

	switch v := table.RawGetString(luaFieldVerifyChecksum); v.Type() {
	case lua.LTNil:
	case lua.LTBool:
		cfg.VerifyChecksum = bool(v.(lua.LBool))
	default:
		errs = append(errs, typeError(luaFieldVerifyChecksum, "boolean", v))
	}

	switch v := table.RawGetString(luaFieldPlugins); v.Type() {
	case lua.LTNil:
	case lua.LTTable:
		cfg.Plugins = extractPlugins(v.(*lua.LTable))
	default:
		errs = append(errs, typeError(luaFieldPlugins, "table", v))
	}

	if len(errs) > 0 {
		return nil, &ParseError{Message: "config validation failed", Detail: errors.Join(errs...).Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{Message: "config validation failed", Detail: err.Error()}
	}
	return cfg, nil
}

// extractPlugins collects the array part of a plugins table in order. nil
// holes from platform.when conditionals are skipped.
func extractPlugins(table *lua.LTable) []string {
	var plugins []string
	for i := 1; i <= table.MaxN(); i++ {
		v := table.RawGetInt(i)
		if v.Type() != lua.LTString {
			continue
		}
		plugins = append(plugins, v.String())
	}
	return plugins
}

func typeError(field, want string, got lua.LValue) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf("expected %s, got %s", want, got.Type())}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
