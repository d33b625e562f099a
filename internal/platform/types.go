// Package platform describes the host a WasmEdge distribution is installed on.
//
// A Descriptor is produced once per invocation by a Detector and then
// treated as a pure input: asset naming, plugin platform keys and the Lua
// configuration all read from it and never probe the host themselves.
package platform

import (
	"context"
	"strings"
)

// OSKind is the operating system family used for asset selection.
type OSKind string

const (
	OSLinux   OSKind = "Linux"
	OSUbuntu  OSKind = "Ubuntu" // Ubuntu 20.04 or newer
	OSDarwin  OSKind = "Darwin"
	OSWindows OSKind = "Windows"
)

// Arch is a normalized CPU architecture.
type Arch string

const (
	ArchX86_64  Arch = "x86_64"
	ArchAarch64 Arch = "aarch64"
)

// Libc is the C library flavor of a Linux host.
type Libc string

const (
	LibcGlibc   Libc = "glibc"
	LibcMusl    Libc = "musl"
	LibcUnknown Libc = "unknown"
)

// Descriptor contains platform detection information.
type Descriptor struct {
	OS   OSKind `yaml:"os"`
	Arch Arch   `yaml:"arch"`
	Libc Libc   `yaml:"libc"`
	// OSVersion is the distro version on Linux ("22.04") and the kernel
	// release on Darwin ("23.4.0"). Empty when unknown.
	OSVersion string `yaml:"os_version,omitempty"`
	// Distro is the Linux distribution ID, informational only.
	Distro string `yaml:"distro,omitempty"`
}

// IsLinux returns true for any Linux flavor, Ubuntu included.
func (d *Descriptor) IsLinux() bool {
	return d.OS == OSLinux || d.OS == OSUbuntu
}

// IsDarwin returns true if the platform is macOS.
func (d *Descriptor) IsDarwin() bool {
	return d.OS == OSDarwin
}

// IsWindows returns true if the platform is Windows.
func (d *Descriptor) IsWindows() bool {
	return d.OS == OSWindows
}

// IsX86_64 returns true if the architecture is x86_64.
func (d *Descriptor) IsX86_64() bool {
	return d.Arch == ArchX86_64
}

// IsAarch64 returns true if the architecture is aarch64.
func (d *Descriptor) IsAarch64() bool {
	return d.Arch == ArchAarch64
}

// OSMajor returns the leading numeric component of OSVersion, or "" when
// there is none.
func (d *Descriptor) OSMajor() string {
	major, _, _ := strings.Cut(strings.TrimSpace(d.OSVersion), ".")
	if major == "" {
		return ""
	}
	for _, r := range major {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return major
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Descriptor, error)
}

// Static is a Detector that always returns the same descriptor.
type Static Descriptor

// Detect returns a copy of the static descriptor.
func (s Static) Detect(ctx context.Context) (*Descriptor, error) {
	d := Descriptor(s)
	return &d, nil
}
