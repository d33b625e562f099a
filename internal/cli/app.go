package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wasmedge/wasmedgeup/internal/binary"
	"github.com/wasmedge/wasmedgeup/internal/config"
	"github.com/wasmedge/wasmedgeup/internal/logging"
	"github.com/wasmedge/wasmedgeup/internal/platform"
	"github.com/wasmedge/wasmedgeup/internal/plugin"
	"github.com/wasmedge/wasmedgeup/internal/release"
	"github.com/wasmedge/wasmedgeup/internal/shell"
	"github.com/wasmedge/wasmedgeup/internal/store"
	"github.com/wasmedge/wasmedgeup/internal/toolchain"
)

// app is the object graph shared by every command of one invocation.
type app struct {
	cfg      *config.Config
	platform *platform.Descriptor
	logger   *slog.Logger
	root     string
	staging  string

	env       shell.Env
	shell     *shell.Integration
	toolchain *toolchain.Manager
	plugins   *plugin.Manager
}

func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()

	desc, err := detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}

	cfg, err := loadConfig(ctx, desc)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cmd.ErrOrStderr(), logLevel(cfg))
	logger.Debug("platform detected", "os", desc.OS, "arch", desc.Arch, "libc", desc.Libc, "os_version", desc.OSVersion)

	root, err := cfg.ResolvedInstallDir()
	if err != nil {
		return nil, err
	}
	tmp, err := cfg.ResolvedTmpDir()
	if err != nil {
		return nil, err
	}
	staging := filepath.Join(tmp, "wasmedgeup")

	env, err := shellEnv()
	if err != nil {
		return nil, err
	}
	integration, err := shell.NewIntegration(shell.Config{Env: env, Logger: logger})
	if err != nil {
		return nil, err
	}

	st := store.New(root, store.WithDeconfigurer(integration), store.WithLogger(logger))

	dl := binary.NewDownloader(binary.Options{
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
		Retries:        retries(cfg.Retries),
		Logger:         logger,
	})
	github := &release.GitHubSource{Client: dl.Client(), BaseURL: cfg.APIBaseURL, UserAgent: dl.UserAgent()}

	plugins, err := plugin.NewManager(plugin.Config{
		Store:          st,
		Platform:       desc,
		Downloader:     dl,
		Assets:         github,
		ReleaseBaseURL: cfg.ReleaseBaseURL,
		StagingDir:     staging,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	tc, err := toolchain.NewManager(toolchain.Config{
		Store:          st,
		Resolver:       release.NewResolver(releaseSource(cfg, dl, github)),
		Platform:       desc,
		Fetcher:        dl,
		Plugins:        plugins,
		ReleaseBaseURL: cfg.ReleaseBaseURL,
		StagingDir:     staging,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		platform:  desc,
		logger:    logger,
		root:      root,
		staging:   staging,
		env:       env,
		shell:     integration,
		toolchain: tc,
		plugins:   plugins,
	}, nil
}

// loadConfig reads the config file and applies the global flags on top.
// An explicit --config must exist; the default location is optional.
func loadConfig(ctx context.Context, desc *platform.Descriptor) (*config.Config, error) {
	path, required := configPath, configPath != ""
	if !required {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, _, err := config.NewParser(desc).LoadFile(ctx, path, required)
	if err != nil {
		return nil, err
	}

	if installPath != "" {
		abs, err := filepath.Abs(installPath)
		if err != nil {
			return nil, fmt.Errorf("resolve --path: %w", err)
		}
		cfg.InstallDir = abs
	}
	if tmpDir != "" {
		abs, err := filepath.Abs(tmpDir)
		if err != nil {
			return nil, fmt.Errorf("resolve --tmpdir: %w", err)
		}
		cfg.TmpDir = abs
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func logLevel(cfg *config.Config) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	default:
		return logging.ParseLevel(cfg.LogLevel)
	}
}

// retries maps the configured count to binary.Options, where zero means
// the default and a negative value disables retries.
func retries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

func releaseSource(cfg *config.Config, dl *binary.Downloader, github *release.GitHubSource) release.Source {
	if cfg.ReleasesSource == config.SourcePage {
		return &release.PageSource{Client: dl.Client(), URL: cfg.ReleasesPageURL, UserAgent: dl.UserAgent()}
	}
	return github
}

// configureShell hooks the install root into the user's shells and prints
// how to load it into the current session.
func (a *app) configureShell(cmd *cobra.Command) error {
	res, err := a.shell.Configure(a.root)
	if err != nil {
		return fmt.Errorf("configure shell: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, rc := range res.Updated {
		fmt.Fprintf(out, "%s %s\n", faintStyle.Render("updated"), rc)
	}
	if res.PathUpdated {
		fmt.Fprintf(out, "%s user Path now includes %s\n", faintStyle.Render("updated"), filepath.Join(a.root, "bin"))
		return nil
	}
	if len(res.Updated) > 0 {
		detected := shell.DetectShell(cmd.Context(), a.env)
		fmt.Fprintf(out, "Restart your shell or run: %s\n", highlightStyle.Render(a.shell.SourceHint(a.root, detected.Shell)))
	}
	return nil
}
