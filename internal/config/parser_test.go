package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wasmedge/wasmedgeup/internal/platform"
)

var linuxGlibc = &platform.Descriptor{OS: platform.OSLinux, Arch: platform.ArchX86_64, Libc: platform.LibcGlibc}

func TestParser_ParseString_Minimal(t *testing.T) {
	cfg, err := NewParser(nil).ParseString(context.Background(), `wasmedgeup = {}`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty table should yield defaults (-want +got):\n%s", diff)
	}
}

func TestParser_ParseString_Full(t *testing.T) {
	luaCode := `
		wasmedgeup = {
			install_dir       = "/opt/wasmedge",
			tmp_dir           = "~/tmp",
			release_base_url  = "https://mirror.example.com/releases/download",
			api_base_url      = "https://ghe.example.com/api/v3",
			releases_page_url = "https://mirror.example.com/releases",
			releases_source   = "page",
			connect_timeout   = 2.5,
			request_timeout   = 300,
			retries           = 0,
			verify_checksum   = false,
			log_level         = "debug",
			plugins = {
				"wasi_logging",
				"wasi_nn-ggml@0.14.1",
			},
		}
	`

	cfg, err := NewParser(nil).ParseString(context.Background(), luaCode)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	want := &Config{
		InstallDir:      "/opt/wasmedge",
		TmpDir:          "~/tmp",
		ReleaseBaseURL:  "https://mirror.example.com/releases/download",
		APIBaseURL:      "https://ghe.example.com/api/v3",
		ReleasesPageURL: "https://mirror.example.com/releases",
		ReleasesSource:  SourcePage,
		ConnectTimeout:  2500 * time.Millisecond,
		RequestTimeout:  300 * time.Second,
		Retries:         0,
		VerifyChecksum:  false,
		LogLevel:        "debug",
		Plugins:         []string{"wasi_logging", "wasi_nn-ggml@0.14.1"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParser_PlatformConditionals(t *testing.T) {
	luaCode := `
		wasmedgeup = {
			plugins = {
				"wasi_logging",
				platform.when(platform.is_macos, "wasi_nn-burn"),
				platform.when(platform.is_linux, "wasi_nn-ggml"),
				platform.is_windows and "wasmedge_image" or nil,
			},
			install_dir = platform.is_linux and "/opt/wasmedge" or nil,
		}
	`

	tests := []struct {
		name        string
		desc        *platform.Descriptor
		wantPlugins []string
		wantDir     string
	}{
		{
			name:        "linux",
			desc:        linuxGlibc,
			wantPlugins: []string{"wasi_logging", "wasi_nn-ggml"},
			wantDir:     "/opt/wasmedge",
		},
		{
			name:        "darwin",
			desc:        &platform.Descriptor{OS: platform.OSDarwin, Arch: platform.ArchAarch64},
			wantPlugins: []string{"wasi_logging", "wasi_nn-burn"},
		},
		{
			name:        "windows",
			desc:        &platform.Descriptor{OS: platform.OSWindows, Arch: platform.ArchX86_64},
			wantPlugins: []string{"wasi_logging", "wasmedge_image"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewParser(tt.desc).ParseString(context.Background(), luaCode)
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantPlugins, cfg.Plugins); diff != "" {
				t.Errorf("plugins mismatch (-want +got):\n%s", diff)
			}
			if cfg.InstallDir != tt.wantDir {
				t.Errorf("InstallDir = %q, want %q", cfg.InstallDir, tt.wantDir)
			}
		})
	}
}

func TestParser_PlatformTableReadOnly(t *testing.T) {
	_, err := NewParser(linuxGlibc).ParseString(context.Background(), `platform.os = "Windows"; wasmedgeup = {}`)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !strings.Contains(parseErr.Detail, "read-only") {
		t.Errorf("Detail = %q, want read-only error", parseErr.Detail)
	}
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantInErr  string
		wantDetail string
	}{
		{
			name:      "syntax_error",
			code:      `wasmedgeup = {`,
			wantInErr: "Lua error",
		},
		{
			name:       "missing_table",
			code:       `other = {}`,
			wantInErr:  "missing or invalid 'wasmedgeup' table",
			wantDetail: "expected table, got nil",
		},
		{
			name:       "table_is_string",
			code:       `wasmedgeup = "yes"`,
			wantDetail: "expected table, got string",
		},
		{
			name:       "wrong_field_type",
			code:       `wasmedgeup = { request_timeout = "slow" }`,
			wantDetail: "invalid request_timeout: expected number, got string",
		},
		{
			name:       "two_wrong_fields",
			code:       `wasmedgeup = { verify_checksum = "no", plugins = "wasi_logging" }`,
			wantDetail: "invalid plugins: expected table",
		},
		{
			name:       "fractional_retries",
			code:       `wasmedgeup = { retries = 1.5 }`,
			wantDetail: "invalid retries: must be an integer",
		},
		{
			name:       "unknown_source",
			code:       `wasmedgeup = { releases_source = "ftp" }`,
			wantDetail: "invalid releases_source",
		},
		{
			name:       "bad_url_scheme",
			code:       `wasmedgeup = { release_base_url = "file:///srv/releases" }`,
			wantDetail: "invalid release_base_url",
		},
		{
			name:       "relative_install_dir",
			code:       `wasmedgeup = { install_dir = "wasmedge" }`,
			wantDetail: "invalid install_dir",
		},
		{
			name:       "bad_plugin_spec",
			code:       `wasmedgeup = { plugins = { "wasi_nn@not-a-version" } }`,
			wantDetail: "invalid plugins[0]",
		},
		{
			name:       "negative_timeout",
			code:       `wasmedgeup = { connect_timeout = -1 }`,
			wantDetail: "invalid connect_timeout: must be positive",
		},
		{
			name:      "sandboxed_os",
			code:      `wasmedgeup = { install_dir = os.getenv("HOME") }`,
			wantInErr: "Lua error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(linuxGlibc).ParseString(context.Background(), tt.code)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if tt.wantInErr != "" && !strings.Contains(err.Error(), tt.wantInErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantInErr)
			}
			if tt.wantDetail != "" && !strings.Contains(parseErr.Detail, tt.wantDetail) {
				t.Errorf("Detail = %q, want substring %q", parseErr.Detail, tt.wantDetail)
			}
		})
	}
}

func TestParser_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewParser(nil).ParseString(ctx, `while true do end`)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Message != "config evaluation timed out" {
		t.Errorf("Message = %q", parseErr.Message)
	}
}

func TestParser_LoadFile(t *testing.T) {
	dir := t.TempDir()
	parser := NewParser(linuxGlibc)

	t.Run("missing_optional", func(t *testing.T) {
		cfg, found, err := parser.LoadFile(context.Background(), filepath.Join(dir, "absent.lua"), false)
		if err != nil || found {
			t.Fatalf("LoadFile() = %v, %v", found, err)
		}
		if diff := cmp.Diff(Default(), cfg); diff != "" {
			t.Errorf("missing file should yield defaults (-want +got):\n%s", diff)
		}
	})

	t.Run("missing_required", func(t *testing.T) {
		if _, _, err := parser.LoadFile(context.Background(), filepath.Join(dir, "absent.lua"), true); err == nil {
			t.Error("expected error for missing required file")
		}
	})

	t.Run("present", func(t *testing.T) {
		path := filepath.Join(dir, "config.lua")
		if err := os.WriteFile(path, []byte(`wasmedgeup = { retries = 5 }`), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, found, err := parser.LoadFile(context.Background(), path, true)
		if err != nil || !found {
			t.Fatalf("LoadFile() = %v, %v", found, err)
		}
		if cfg.Retries != 5 {
			t.Errorf("Retries = %d, want 5", cfg.Retries)
		}
	})

	t.Run("too_large", func(t *testing.T) {
		path := filepath.Join(dir, "huge.lua")
		body := "wasmedgeup = {}\n--" + strings.Repeat("x", MaxConfigSize)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		_, _, err := parser.LoadFile(context.Background(), path, true)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) || parseErr.Message != "config file too large" {
			t.Errorf("expected size ParseError, got %v", err)
		}
	})
}

func TestDefaultPath(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		got, err := DefaultPath()
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join("/xdg", "wasmedgeup", "config.lua"); got != want {
			t.Errorf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", home)
		got, err := DefaultPath()
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join(home, ".config", "wasmedgeup", "config.lua"); got != want {
			t.Errorf("DefaultPath() = %q, want %q", got, want)
		}
	})
}

func TestFormatError(t *testing.T) {
	err := &ParseError{Message: "Lua error", Detail: "<string>:1: boom\nstack traceback:\n\t[G]: ?"}

	if got := FormatError(err, false); got != "Lua error: <string>:1: boom" {
		t.Errorf("FormatError(quiet) = %q", got)
	}
	if got := FormatError(err, true); !strings.Contains(got, "stack traceback") {
		t.Errorf("FormatError(verbose) = %q, want full detail", got)
	}
	if got := FormatError(errors.New("plain"), false); got != "plain" {
		t.Errorf("FormatError(plain) = %q", got)
	}
}
