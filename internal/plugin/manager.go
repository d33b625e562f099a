package plugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/blang/semver"

	"github.com/wasmedge/wasmedgeup/internal/archive"
	"github.com/wasmedge/wasmedgeup/internal/asset"
	"github.com/wasmedge/wasmedgeup/internal/binary"
	"github.com/wasmedge/wasmedgeup/internal/logging"
	"github.com/wasmedge/wasmedgeup/internal/platform"
	"github.com/wasmedge/wasmedgeup/internal/release"
	"github.com/wasmedge/wasmedgeup/internal/store"
)

const macMetadataDir = "__MACOSX"

// Downloader fetches a URL into a file.
type Downloader interface {
	DownloadToFile(ctx context.Context, url, dest string, progress binary.ProgressFunc) error
}

// AssetLister lists the asset names of a release tag.
type AssetLister interface {
	ReleaseAssets(ctx context.Context, tag string) ([]string, error)
}

// Manager installs and removes plugins inside a Store.
type Manager struct {
	store          *store.Store
	platform       *platform.Descriptor
	downloader     Downloader
	assets         AssetLister
	releaseBaseURL string
	stagingDir     string
	logger         logging.Logger
}

// Config holds configuration for the plugin manager
type Config struct {
	Store      *store.Store
	Platform   *platform.Descriptor
	Downloader Downloader
	// Assets is only needed by Available.
	Assets AssetLister
	// ReleaseBaseURL defaults to asset.DefaultReleaseBaseURL.
	ReleaseBaseURL string
	// StagingDir is the wasmedgeup staging base, e.g. <tmp>/wasmedgeup.
	// Plugin work happens under its plugins/ subdirectory.
	StagingDir string
	Logger     logging.Logger
}

// NewManager creates a new plugin manager
func NewManager(config Config) (*Manager, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("Store is required")
	}
	if config.Platform == nil {
		return nil, fmt.Errorf("Platform is required")
	}
	if config.Downloader == nil {
		return nil, fmt.Errorf("Downloader is required")
	}
	stagingDir := config.StagingDir
	if stagingDir == "" {
		stagingDir = filepath.Join(os.TempDir(), "wasmedgeup")
	}
	base := config.ReleaseBaseURL
	if base == "" {
		base = asset.DefaultReleaseBaseURL
	}

	return &Manager{
		store:          config.Store,
		platform:       config.Platform,
		downloader:     config.Downloader,
		assets:         config.Assets,
		releaseBaseURL: base,
		stagingDir:     stagingDir,
		logger:         logging.OrNop(config.Logger),
	}, nil
}

// InstallResult describes one plugin installation.
type InstallResult struct {
	Name    string
	Version string
	Key     string
	URL     string
	// Copied holds the destination path of every installed library. It is
	// empty when the archive held no matching library.
	Copied []string
}

// Install downloads the plugin archive for spec and copies its libraries
// into versions/<runtime>/plugin/. Finding no library is not an error: a
// warning lists the archive members instead.
func (m *Manager) Install(ctx context.Context, spec Spec, runtime semver.Version) (InstallResult, error) {
	result := InstallResult{Name: spec.Name}

	if err := m.store.CheckVersionWritable(runtime); err != nil {
		return result, err
	}

	pluginVersion := runtime
	if spec.Version != "" {
		v, err := release.ParseVersion(spec.Version)
		if err != nil {
			return result, err
		}
		pluginVersion = v
	}
	result.Version = pluginVersion.String()

	key, err := asset.PluginPlatformKey(runtime, m.platform)
	if err != nil {
		return result, err
	}
	result.Key = key
	result.URL = asset.PluginURL(m.releaseBaseURL, spec.Name, pluginVersion, key, m.platform)

	staging := filepath.Join(m.stagingDir, "plugins", spec.Name+"-"+pluginVersion.String())
	if err := os.RemoveAll(staging); err != nil {
		return result, fmt.Errorf("clear plugin staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return result, fmt.Errorf("create plugin staging dir: %w", err)
	}

	archivePath := filepath.Join(staging, asset.PluginArchiveName(spec.Name, pluginVersion, key, m.platform))
	m.logger.Debug("downloading plugin", "plugin", spec.Name, "version", result.Version, "url", result.URL)
	if err := m.downloader.DownloadToFile(ctx, result.URL, archivePath, nil); err != nil {
		return result, fmt.Errorf("download plugin %s: %w", spec, err)
	}

	extractDir := filepath.Join(staging, "extract")
	if err := archive.Extract(archivePath, extractDir); err != nil {
		return result, fmt.Errorf("extract plugin %s: %w", spec, err)
	}

	libs, err := m.findLibraries(extractDir)
	if err != nil {
		return result, err
	}

	if len(libs) == 0 {
		entries, listErr := archive.ListEntries(archivePath)
		if listErr != nil {
			m.logger.Debug("listing plugin archive failed", "path", archivePath, "error", listErr)
		}
		m.logger.Warn("no plugin library found in archive; nothing was installed",
			"plugin", spec.Name, "archive", filepath.Base(archivePath), "entries", entries)
		os.RemoveAll(staging)
		return result, nil
	}

	dest := m.store.PluginDir(runtime)
	for _, lib := range libs {
		target := filepath.Join(dest, filepath.Base(lib))
		if err := archive.CopyFile(lib, target); err != nil {
			return result, fmt.Errorf("install plugin library %s: %w", filepath.Base(lib), err)
		}
		result.Copied = append(result.Copied, target)
		m.logger.Debug("copied plugin library", "from", lib, "to", target)
	}

	if err := os.RemoveAll(staging); err != nil {
		m.logger.Debug("failed to clean plugin staging dir", "path", staging, "error", err)
	}
	m.logger.Info("installed plugin", "plugin", spec.Name, "version", result.Version, "runtime", runtime.String())
	return result, nil
}

// findLibraries walks root for files named like plugin libraries,
// skipping macOS archive metadata.
func (m *Manager) findLibraries(root string) ([]string, error) {
	prefix, ext := asset.PluginLibrary(m.platform)

	var libs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == macMetadataDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := libraryName(d.Name(), prefix, ext); ok {
			libs = append(libs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan plugin archive: %w", err)
	}
	return libs, nil
}

// Installed returns the plugin names present in versions/<runtime>/plugin.
func (m *Manager) Installed(runtime semver.Version) ([]string, error) {
	if !m.store.HasVersion(runtime) {
		return nil, &store.VersionNotFoundError{Version: runtime.String()}
	}

	entries, err := os.ReadDir(m.store.PluginDir(runtime))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plugin dir: %w", err)
	}

	prefix, ext := asset.PluginLibrary(m.platform)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := libraryName(e.Name(), prefix, ext); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
