// Package asset computes WasmEdge download names from a version and a
// platform descriptor.
//
// Every function here is pure: the same version and descriptor always
// produce the same name. Upstream changed its naming several times, so the
// rules encode historical boundaries (Ubuntu aarch64 assets from 0.13.5,
// manylinux_2_28 from 0.15.0).
package asset

import (
	"fmt"
	"strings"

	"github.com/blang/semver"

	"github.com/wasmedge/wasmedgeup/internal/platform"
)

const (
	// DefaultReleaseBaseURL hosts runtime and plugin archives.
	DefaultReleaseBaseURL = "https://github.com/WasmEdge/WasmEdge/releases/download"
	// RuntimePrefix starts every runtime archive and its top-level directory.
	RuntimePrefix = "WasmEdge"
	// ChecksumManifestName is the per-release checksum file.
	ChecksumManifestName = "SHA256SUM"

	pluginArchivePrefix = "WasmEdge-plugin-"
)

var (
	// ubuntuAarch64Since is the first release with a dedicated Ubuntu aarch64 archive.
	ubuntuAarch64Since = semver.Version{Major: 0, Minor: 13, Patch: 5}
	// manylinux228Since is the plugin-key cutover; pre-releases of 0.15.0
	// already use manylinux_2_28.
	manylinux228Since = semver.Version{Major: 0, Minor: 15, Patch: 0, Pre: []semver.PRVersion{{VersionStr: "rc"}, {VersionNum: 0, IsNum: true}}}
)

// Asset describes the runtime archive for one version and platform.
type Asset struct {
	Version     semver.Version
	ArchiveName string
	InstallName string
}

// UnsupportedPlatformError reports a platform with no naming rule.
type UnsupportedPlatformError struct {
	OS   platform.OSKind
	Arch platform.Arch
	Libc platform.Libc
}

func (e *UnsupportedPlatformError) Error() string {
	if e.OS == platform.OSLinux && e.Libc != platform.LibcGlibc {
		return fmt.Sprintf("unsupported platform: %s/%s with %s libc", e.OS, e.Arch, e.Libc)
	}
	return fmt.Sprintf("unsupported platform: %s/%s", e.OS, e.Arch)
}

// For returns the runtime Asset for v on d.
func For(v semver.Version, d *platform.Descriptor) Asset {
	return Asset{
		Version:     v,
		ArchiveName: ArchiveName(v, d),
		InstallName: InstallName(v, d),
	}
}

// ArchiveName returns the exact file name of the runtime archive.
func ArchiveName(v semver.Version, d *platform.Descriptor) string {
	return fmt.Sprintf("%s-%s-%s", RuntimePrefix, v, archiveSuffix(v, d))
}

func archiveSuffix(v semver.Version, d *platform.Descriptor) string {
	switch d.OS {
	case platform.OSWindows:
		return "windows.zip"
	case platform.OSDarwin:
		return "darwin_" + darwinArch(d.Arch) + ".tar.gz"
	}

	if d.OS == platform.OSUbuntu {
		if d.Arch == platform.ArchX86_64 {
			return "ubuntu20.04_x86_64.tar.gz"
		}
		if d.Arch == platform.ArchAarch64 && v.GTE(ubuntuAarch64Since) {
			return "ubuntu20.04_aarch64.tar.gz"
		}
	}

	if v.Major == 0 && v.Minor <= 14 {
		return "manylinux2014_" + string(d.Arch) + ".tar.gz"
	}
	return "manylinux_2_28_" + string(d.Arch) + ".tar.gz"
}

// InstallName returns the top-level directory name runtime archives usually
// unpack to. It is a layout hint, not a requirement.
func InstallName(v semver.Version, d *platform.Descriptor) string {
	osName := "Linux"
	switch d.OS {
	case platform.OSDarwin:
		osName = "Darwin"
	case platform.OSWindows:
		osName = "Windows"
	}
	return fmt.Sprintf("%s-%s-%s", RuntimePrefix, v, osName)
}

// PluginPlatformKey returns the platform component of plugin archive names.
func PluginPlatformKey(v semver.Version, d *platform.Descriptor) (string, error) {
	unsupported := &UnsupportedPlatformError{OS: d.OS, Arch: d.Arch, Libc: d.Libc}

	switch d.OS {
	case platform.OSWindows:
		if d.Arch != platform.ArchX86_64 {
			return "", unsupported
		}
		return "windows_x86_64", nil

	case platform.OSDarwin:
		if major := d.OSMajor(); major != "" {
			return fmt.Sprintf("darwin_%s-%s", major, darwinArch(d.Arch)), nil
		}
		return "darwin_" + darwinArch(d.Arch), nil

	case platform.OSUbuntu:
		if d.Arch == platform.ArchX86_64 {
			return "ubuntu20_04_x86_64", nil
		}
		if d.Arch == platform.ArchAarch64 && v.GTE(ubuntuAarch64Since) {
			return "ubuntu20_04_aarch64", nil
		}
		return manylinuxKey(v, d.Arch), nil

	case platform.OSLinux:
		if d.Libc != platform.LibcGlibc {
			return "", unsupported
		}
		return manylinuxKey(v, d.Arch), nil
	}

	return "", unsupported
}

func manylinuxKey(v semver.Version, arch platform.Arch) string {
	if v.LT(manylinux228Since) {
		return "manylinux2014_" + string(arch)
	}
	return "manylinux_2_28_" + string(arch)
}

func darwinArch(arch platform.Arch) string {
	if arch == platform.ArchAarch64 {
		return "arm64"
	}
	return "x86_64"
}

// archiveExt is the plugin and runtime archive extension for d.
func archiveExt(d *platform.Descriptor) string {
	if d.OS == platform.OSWindows {
		return "zip"
	}
	return "tar.gz"
}

// RuntimeURL returns <base>/<v>/<archive_name>.
func RuntimeURL(base string, v semver.Version, d *platform.Descriptor) string {
	return fmt.Sprintf("%s/%s/%s", trimBase(base), v, ArchiveName(v, d))
}

// ChecksumURL returns the checksum manifest URL for release v.
func ChecksumURL(base string, v semver.Version) string {
	return fmt.Sprintf("%s/%s/%s", trimBase(base), v, ChecksumManifestName)
}

// PluginArchiveName returns WasmEdge-plugin-<name>-<v>-<key>.<ext>.
func PluginArchiveName(name string, v semver.Version, key string, d *platform.Descriptor) string {
	return fmt.Sprintf("%s%s-%s-%s.%s", pluginArchivePrefix, name, v, key, archiveExt(d))
}

// PluginURL returns <base>/<v>/<plugin archive name>.
func PluginURL(base, name string, v semver.Version, key string, d *platform.Descriptor) string {
	return fmt.Sprintf("%s/%s/%s", trimBase(base), v, PluginArchiveName(name, v, key, d))
}

// PluginLibrary returns the file name prefix and extension of plugin shared
// libraries on d.
func PluginLibrary(d *platform.Descriptor) (prefix, ext string) {
	switch d.OS {
	case platform.OSWindows:
		return "wasmedgePlugin", ".dll"
	case platform.OSDarwin:
		return "libwasmedgePlugin", ".dylib"
	default:
		return "libwasmedgePlugin", ".so"
	}
}

func trimBase(base string) string {
	if base == "" {
		return DefaultReleaseBaseURL
	}
	return strings.TrimRight(base, "/")
}
