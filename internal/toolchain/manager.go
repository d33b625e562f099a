// Package toolchain runs the wasmedgeup operations end to end: resolve a
// version, name its archive, fetch and verify it, install it into the
// store, add plugins and switch the current version.
//
// Every mutating operation holds the install root's lock for its whole
// duration and tags its log lines with a fresh operation ID.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wasmedge/wasmedgeup/internal/archive"
	"github.com/wasmedge/wasmedgeup/internal/asset"
	"github.com/wasmedge/wasmedgeup/internal/binary"
	"github.com/wasmedge/wasmedgeup/internal/lock"
	"github.com/wasmedge/wasmedgeup/internal/logging"
	"github.com/wasmedge/wasmedgeup/internal/platform"
	"github.com/wasmedge/wasmedgeup/internal/plugin"
	"github.com/wasmedge/wasmedgeup/internal/release"
	"github.com/wasmedge/wasmedgeup/internal/store"
)

// VersionResolver resolves version tokens and lists remote releases.
type VersionResolver interface {
	Resolve(ctx context.Context, token string) (semver.Version, error)
	List(ctx context.Context, opts release.ListOptions) ([]semver.Version, error)
}

// Fetcher downloads archives and checksum manifests.
type Fetcher interface {
	DownloadToFile(ctx context.Context, url, dest string, progress binary.ProgressFunc) error
	FetchChecksum(ctx context.Context, manifestURL, version, asset string) (string, error)
}

// PluginInstaller adds and removes plugins of an installed runtime.
type PluginInstaller interface {
	Install(ctx context.Context, spec plugin.Spec, runtime semver.Version) (plugin.InstallResult, error)
	Remove(names []string, runtime semver.Version) (plugin.RemoveResult, error)
}

// Manager orchestrates runtime installation and version switching
type Manager struct {
	store          *store.Store
	resolver       VersionResolver
	platform       *platform.Descriptor
	fetcher        Fetcher
	plugins        PluginInstaller
	releaseBaseURL string
	stagingDir     string
	lockDir        string
	logger         logging.Logger
}

// Config holds configuration for the toolchain manager
type Config struct {
	Store    *store.Store
	Resolver VersionResolver
	Platform *platform.Descriptor
	Fetcher  Fetcher
	// Plugins is required only when installs request plugins.
	Plugins PluginInstaller
	// ReleaseBaseURL defaults to asset.DefaultReleaseBaseURL.
	ReleaseBaseURL string
	// StagingDir is the staging base, by default <tmp>/wasmedgeup. Each
	// runtime install uses <StagingDir>/<version>.
	StagingDir string
	// LockDir defaults to <StagingDir>/locks.
	LockDir string
	Logger  logging.Logger
}

// NewManager creates a new toolchain manager
func NewManager(config Config) (*Manager, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("Store is required")
	}
	if config.Resolver == nil {
		return nil, fmt.Errorf("Resolver is required")
	}
	if config.Platform == nil {
		return nil, fmt.Errorf("Platform is required")
	}
	if config.Fetcher == nil {
		return nil, fmt.Errorf("Fetcher is required")
	}

	stagingDir := config.StagingDir
	if stagingDir == "" {
		stagingDir = filepath.Join(os.TempDir(), "wasmedgeup")
	}
	lockDir := config.LockDir
	if lockDir == "" {
		lockDir = filepath.Join(stagingDir, "locks")
	}
	base := config.ReleaseBaseURL
	if base == "" {
		base = asset.DefaultReleaseBaseURL
	}

	return &Manager{
		store:          config.Store,
		resolver:       config.Resolver,
		platform:       config.Platform,
		fetcher:        config.Fetcher,
		plugins:        config.Plugins,
		releaseBaseURL: base,
		stagingDir:     stagingDir,
		lockDir:        lockDir,
		logger:         logging.OrNop(config.Logger),
	}, nil
}

// Store returns the managed store.
func (m *Manager) Store() *store.Store {
	return m.store
}

// InstallOptions configures Install.
type InstallOptions struct {
	// Version is "latest" or an explicit version.
	Version string
	Plugins []plugin.Spec
	// SkipVerify disables checksum verification. A warning is logged.
	SkipVerify bool
	// NoUse leaves the current version unchanged.
	NoUse    bool
	Progress binary.ProgressFunc
}

// InstallResult describes a completed install.
type InstallResult struct {
	Version semver.Version
	Asset   asset.Asset
	Plugins []plugin.InstallResult
	// Current is true when the installed version was made current.
	Current bool
}

// Install downloads, verifies and installs a runtime version, then its
// plugins, then makes it current unless NoUse is set. A failure before the
// final switch leaves the previous current version in place, and a root
// created by a failed first install is deleted again. The staging
// directory is removed on success and kept on failure.
func (m *Manager) Install(ctx context.Context, opts InstallOptions) (_ *InstallResult, err error) {
	log, done, err := m.begin(ctx, "install")
	if err != nil {
		return nil, err
	}
	defer done()

	rootExisted := m.store.Exists()
	installed := false
	defer func() {
		if err == nil || rootExisted || installed {
			return
		}
		if rmErr := m.store.Discard(); rmErr != nil {
			log.Warn("failed to remove install root after failed install", "root", m.store.Root(), "error", rmErr)
		}
	}()

	if len(opts.Plugins) > 0 && m.plugins == nil {
		return nil, fmt.Errorf("plugin installation is not configured")
	}

	token := opts.Version
	if token == "" {
		token = release.LatestToken
	}
	v, err := m.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	log = logging.With(log, "version", v.String())

	if err := m.store.CheckWritable(); err != nil {
		return nil, err
	}

	a := asset.For(v, m.platform)
	staging := filepath.Join(m.stagingDir, v.String())
	if err := os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	archivePath := filepath.Join(staging, a.ArchiveName)
	if err := m.fetch(ctx, log, v, a, archivePath, opts); err != nil {
		return nil, err
	}

	extractDir := filepath.Join(staging, "extract")
	if err := archive.Extract(archivePath, extractDir); err != nil {
		return nil, fmt.Errorf("extract %s: %w", a.ArchiveName, err)
	}
	source, err := archive.SourceRoot(extractDir, asset.RuntimePrefix, a.InstallName)
	if err != nil {
		return nil, err
	}
	if err := m.store.Install(v, source); err != nil {
		return nil, err
	}
	installed = true

	result := &InstallResult{Version: v, Asset: a}
	for _, spec := range opts.Plugins {
		res, err := m.plugins.Install(ctx, spec, v)
		if err != nil {
			return result, fmt.Errorf("install plugin %s: %w", spec, err)
		}
		result.Plugins = append(result.Plugins, res)
	}

	if !opts.NoUse {
		if err := m.store.Use(v); err != nil {
			return result, err
		}
		result.Current = true
	}

	if err := os.RemoveAll(staging); err != nil {
		log.Debug("failed to clean staging dir", "path", staging, "error", err)
	}
	log.Info("installed WasmEdge", "archive", a.ArchiveName, "current", result.Current)
	return result, nil
}

// fetch downloads the archive and, unless skipped, the checksum in
// parallel, then verifies the archive. An archive download failure is
// reported ahead of any manifest failure.
func (m *Manager) fetch(ctx context.Context, log logging.Logger, v semver.Version, a asset.Asset, archivePath string, opts InstallOptions) error {
	archiveURL := asset.RuntimeURL(m.releaseBaseURL, v, m.platform)
	var (
		expected    string
		downloadErr error
		checksumErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		log.Debug("downloading runtime archive", "url", archiveURL)
		if err := m.fetcher.DownloadToFile(ctx, archiveURL, archivePath, opts.Progress); err != nil {
			downloadErr = fmt.Errorf("download %s: %w", a.ArchiveName, err)
		}
		return nil
	})
	if !opts.SkipVerify {
		g.Go(func() error {
			expected, checksumErr = m.fetcher.FetchChecksum(ctx, asset.ChecksumURL(m.releaseBaseURL, v), v.String(), a.ArchiveName)
			return nil
		})
	}
	g.Wait()
	if downloadErr != nil {
		return downloadErr
	}
	if checksumErr != nil {
		return checksumErr
	}

	if opts.SkipVerify {
		log.Warn("checksum verification skipped", "archive", a.ArchiveName)
		return nil
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	if err := binary.VerifyFile(f, expected); err != nil {
		return err
	}
	log.Debug("checksum verified", "archive", a.ArchiveName, "sha256", expected)
	return nil
}

// Use makes an installed version current. "latest" selects the newest
// installed version.
func (m *Manager) Use(ctx context.Context, token string) (semver.Version, error) {
	log, done, err := m.begin(ctx, "use")
	if err != nil {
		return semver.Version{}, err
	}
	defer done()

	v, err := m.installedVersion(token)
	if err != nil {
		return semver.Version{}, err
	}
	if err := m.store.Use(v); err != nil {
		return semver.Version{}, err
	}
	log.Debug("use complete", "version", v.String())
	return v, nil
}

// Remove deletes one installed version.
func (m *Manager) Remove(ctx context.Context, token string) (store.RemoveResult, error) {
	log, done, err := m.begin(ctx, "remove")
	if err != nil {
		return store.RemoveResult{}, err
	}
	defer done()

	v, err := m.installedVersion(token)
	if err != nil {
		return store.RemoveResult{}, err
	}
	res, err := m.store.Remove(v)
	if err != nil {
		return res, err
	}
	log.Debug("remove complete", "version", v.String(), "root_removed", res.RootRemoved)
	return res, nil
}

// RemoveAll deletes the whole install root.
func (m *Manager) RemoveAll(ctx context.Context) error {
	_, done, err := m.begin(ctx, "remove-all")
	if err != nil {
		return err
	}
	defer done()

	return m.store.RemoveAll()
}

// InstallPlugins installs plugins into an installed runtime. An empty
// token selects the newest installed version.
func (m *Manager) InstallPlugins(ctx context.Context, token string, specs []plugin.Spec) ([]plugin.InstallResult, error) {
	if len(specs) == 0 {
		return nil, plugin.ErrNoPluginsSpecified
	}
	if m.plugins == nil {
		return nil, fmt.Errorf("plugin installation is not configured")
	}
	log, done, err := m.begin(ctx, "plugin-install")
	if err != nil {
		return nil, err
	}
	defer done()

	v, err := m.PluginRuntime(token)
	if err != nil {
		return nil, err
	}
	if err := m.store.CheckVersionWritable(v); err != nil {
		return nil, err
	}

	var results []plugin.InstallResult
	for _, spec := range specs {
		res, err := m.plugins.Install(ctx, spec, v)
		if err != nil {
			return results, fmt.Errorf("install plugin %s: %w", spec, err)
		}
		results = append(results, res)
	}
	log.Debug("plugin install complete", "runtime", v.String(), "count", len(results))
	return results, nil
}

// RemovePlugins deletes plugins from an installed runtime. An empty token
// selects the newest installed version.
func (m *Manager) RemovePlugins(ctx context.Context, token string, names []string) (plugin.RemoveResult, error) {
	if m.plugins == nil {
		return plugin.RemoveResult{}, fmt.Errorf("plugin installation is not configured")
	}
	_, done, err := m.begin(ctx, "plugin-remove")
	if err != nil {
		return plugin.RemoveResult{}, err
	}
	defer done()

	v, err := m.PluginRuntime(token)
	if err != nil {
		return plugin.RemoveResult{}, err
	}
	return m.plugins.Remove(names, v)
}

// Installed lists installed versions, newest first, and the current one.
func (m *Manager) Installed() (versions []semver.Version, current *semver.Version, err error) {
	versions, err = m.store.ListInstalled()
	if err != nil {
		return nil, nil, err
	}
	cur, ok, err := m.store.Current()
	if err != nil {
		return nil, nil, err
	}
	if ok {
		current = &cur
	}
	return versions, current, nil
}

// ListRemote lists upstream releases.
func (m *Manager) ListRemote(ctx context.Context, opts release.ListOptions) ([]semver.Version, error) {
	return m.resolver.List(ctx, opts)
}

// begin tags the operation's logs with a new ID and takes the root lock.
func (m *Manager) begin(ctx context.Context, op string) (logging.Logger, func(), error) {
	id := uuid.NewString()
	log := logging.With(m.logger, "op", op, "op_id", id)

	l, err := lock.Acquire(ctx, m.lockDir, m.store.Root(), id)
	if err != nil {
		return nil, nil, err
	}
	return log, func() {
		if err := l.Release(); err != nil {
			log.Warn("failed to release lock", "path", l.Path(), "error", err)
		}
	}, nil
}

// PluginRuntime resolves the runtime a plugin operation targets. An empty
// token means the newest installed version, not the current one.
func (m *Manager) PluginRuntime(token string) (semver.Version, error) {
	if strings.TrimSpace(token) == "" {
		token = release.LatestToken
	}
	return m.installedVersion(token)
}

func (m *Manager) installedVersion(token string) (semver.Version, error) {
	if strings.EqualFold(strings.TrimSpace(token), release.LatestToken) {
		v, ok, err := m.store.LatestInstalled()
		if err != nil {
			return semver.Version{}, err
		}
		if !ok {
			return semver.Version{}, store.ErrNoVersionsInstalled
		}
		return v, nil
	}
	return release.ParseVersion(token)
}
