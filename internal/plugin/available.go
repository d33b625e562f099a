package plugin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blang/semver"

	"github.com/wasmedge/wasmedgeup/internal/asset"
)

// Available is a plugin archive published for a runtime release.
type Available struct {
	Name    string
	Version string
	Key     string
}

// Available lists the plugins published with runtime's release that can
// be loaded on this platform, including fallback platform keys.
func (m *Manager) Available(ctx context.Context, runtime semver.Version) ([]Available, error) {
	if m.assets == nil {
		return nil, fmt.Errorf("no release asset source configured")
	}

	key, err := asset.PluginPlatformKey(runtime, m.platform)
	if err != nil {
		return nil, err
	}
	keys := asset.PluginKeyFallbacks(key, runtime.String())
	rank := make(map[string]int, len(keys))
	for i, k := range keys {
		rank[k] = i
	}

	tag := runtime.String()
	names, err := m.assets.ReleaseAssets(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("list release assets for %s: %w", tag, err)
	}

	seen := make(map[Available]bool)
	var out []Available
	for _, name := range names {
		plugin, assetKey, ok := parseAssetName(name, tag)
		if !ok {
			continue
		}
		if _, ok := rank[assetKey]; !ok {
			continue
		}
		a := Available{Name: plugin, Version: tag, Key: assetKey}
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return rank[out[i].Key] < rank[out[j].Key]
	})
	return out, nil
}

// parseAssetName splits WasmEdge-plugin-<name>-<tag>-<key>.<ext>.
func parseAssetName(name, tag string) (plugin, key string, ok bool) {
	rest, found := strings.CutPrefix(name, "WasmEdge-plugin-")
	if !found {
		return "", "", false
	}
	plugin, withExt, found := strings.Cut(rest, "-"+tag+"-")
	if !found || plugin == "" {
		return "", "", false
	}
	switch {
	case strings.HasSuffix(withExt, ".tar.gz"):
		key = strings.TrimSuffix(withExt, ".tar.gz")
	case strings.HasSuffix(withExt, ".zip"):
		key = strings.TrimSuffix(withExt, ".zip")
	default:
		return "", "", false
	}
	return plugin, key, key != ""
}
