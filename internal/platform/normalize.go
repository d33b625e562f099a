package platform

import (
	"fmt"
	"strconv"
	"strings"
)

// normalizeArch converts GOARCH and uname-style values to an Arch.
func normalizeArch(arch string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64", "x64":
		return ArchX86_64, nil
	case "arm64", "aarch64":
		return ArchAarch64, nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s (supported: x86_64, aarch64)", arch)
	}
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// linuxKind decides between the generic Linux and the Ubuntu asset lines.
// Ubuntu releases older than 20.04 use the generic manylinux assets.
func linuxKind(distro, version string) OSKind {
	if normalizePlatform(distro) != "ubuntu" {
		return OSLinux
	}

	majorStr, minorStr, _ := strings.Cut(strings.TrimSpace(version), ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return OSLinux
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		minor = 0
	}

	if major > 20 || (major == 20 && minor >= 4) {
		return OSUbuntu
	}
	return OSLinux
}

// classifyLibc maps the banner printed by `ldd --version` to a Libc.
func classifyLibc(banner string) Libc {
	s := strings.ToLower(banner)
	switch {
	case strings.Contains(s, "musl"):
		return LibcMusl
	case strings.Contains(s, "glibc"), strings.Contains(s, "gnu libc"), strings.Contains(s, "gnu c library"):
		return LibcGlibc
	default:
		return LibcUnknown
	}
}
