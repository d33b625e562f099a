package asset

import (
	"strings"

	"github.com/blang/semver"
)

const (
	ubuntu2004Prefix    = "ubuntu20_04_"
	ubuntu2204Prefix    = "ubuntu22_04_"
	manylinux2014Prefix = "manylinux2014_"
	manylinux228Prefix  = "manylinux_2_28_"
)

// PluginKeyFallbacks returns key followed by the platform keys whose plugin
// archives are also loadable on the same host. Ubuntu builds fall back to
// the manylinux baseline of their runtime generation, and manylinux2014
// hosts can use manylinux_2_28 plugins from 0.15 on.
func PluginKeyFallbacks(key, runtime string) []string {
	out := []string{key}
	ge015 := runtimeAtLeast015(runtime)

	switch {
	case strings.HasPrefix(key, ubuntu2004Prefix):
		if ge015 {
			out = append(out, manylinux228Prefix+strings.TrimPrefix(key, ubuntu2004Prefix))
		} else {
			out = append(out, manylinux2014Prefix+strings.TrimPrefix(key, ubuntu2004Prefix))
		}
	case strings.HasPrefix(key, ubuntu2204Prefix):
		out = append(out, manylinux228Prefix+strings.TrimPrefix(key, ubuntu2204Prefix))
	case strings.HasPrefix(key, manylinux2014Prefix) && ge015:
		out = append(out, manylinux228Prefix+strings.TrimPrefix(key, manylinux2014Prefix))
	}

	return out
}

// runtimeAtLeast015 treats versions it cannot parse as current.
func runtimeAtLeast015(runtime string) bool {
	v, err := semver.Parse(strings.TrimPrefix(strings.TrimSpace(runtime), "v"))
	if err != nil {
		return true
	}
	return v.Major > 0 || v.Minor >= 15
}
