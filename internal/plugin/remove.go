package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/blang/semver"

	"github.com/wasmedge/wasmedgeup/internal/asset"
	"github.com/wasmedge/wasmedgeup/internal/store"
)

// RemoveResult describes a Remove call.
type RemoveResult struct {
	// Removed holds the deleted file paths.
	Removed []string
	// Missing holds requested names with no matching file.
	Missing []string
}

// Remove deletes the libraries of the named plugins from
// versions/<runtime>/plugin and the root-level plugin directory. Unknown
// names do not fail the call; they are reported together in one warning
// and in RemoveResult.Missing.
func (m *Manager) Remove(names []string, runtime semver.Version) (RemoveResult, error) {
	var result RemoveResult

	if len(names) == 0 {
		return result, ErrNoPluginsSpecified
	}
	if !m.store.HasVersion(runtime) {
		return result, &store.VersionNotFoundError{Version: runtime.String()}
	}

	dirs := []string{
		m.store.PluginDir(runtime),
		filepath.Join(m.store.Root(), store.PluginDirName),
	}
	index, err := m.indexLibraries(dirs)
	if err != nil {
		return result, err
	}

	removed := make(map[string]bool)
	for _, name := range names {
		files, ok := index[name]
		if !ok {
			files, ok = index[normalizeName(name)]
		}
		if !ok {
			result.Missing = append(result.Missing, name)
			continue
		}

		for _, f := range files {
			real := resolvedPath(f)
			if removed[real] {
				continue
			}
			err := os.Remove(f)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return result, fmt.Errorf("remove plugin %s: %w", name, err)
			}
			removed[real] = true
			if err == nil {
				result.Removed = append(result.Removed, f)
				m.logger.Info("removed plugin library", "plugin", name, "path", f)
			}
		}
	}

	if len(result.Missing) > 0 {
		m.logger.Warn("requested plugins not found", "missing", result.Missing, "runtime", runtime.String())
	}
	return result, nil
}

// indexLibraries maps raw and normalized plugin names to library paths.
func (m *Manager) indexLibraries(dirs []string) (map[string][]string, error) {
	prefix, ext := asset.PluginLibrary(m.platform)
	index := make(map[string][]string)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read plugin dir %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			raw, ok := libraryName(e.Name(), prefix, ext)
			if !ok {
				continue
			}
			path := filepath.Join(dir, e.Name())
			index[raw] = append(index[raw], path)
			if norm := normalizeName(raw); norm != raw {
				index[norm] = append(index[norm], path)
			}
		}
	}

	for k := range index {
		sort.Strings(index[k])
	}
	return index, nil
}

// resolvedPath follows links so the root-level plugin directory and the
// version directory it points at are recognised as the same file.
func resolvedPath(path string) string {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return path
}
