package platform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct {
	// fsRoot prefixes the paths probed for libc loaders. Empty means "/".
	fsRoot string
	// lddBanner runs `ldd --version`; replaced in tests.
	lddBanner func(ctx context.Context) string
}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{lddBanner: runLdd}
}

// Detect performs platform detection and returns a Descriptor.
//
// OS and architecture come from runtime.GOOS and runtime.GOARCH. On Linux,
// gopsutil supplies the distribution and version; a failed distribution
// probe degrades to a generic Linux descriptor rather than an error. On
// Darwin the kernel release is recorded as OSVersion, since plugin
// platform keys are derived from its major component.
func (d *RealDetector) Detect(ctx context.Context) (*Descriptor, error) {
	return d.detect(ctx, runtime.GOOS, runtime.GOARCH)
}

func (d *RealDetector) detect(ctx context.Context, goos, goarch string) (*Descriptor, error) {
	arch, err := normalizeArch(goarch)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}

	desc := &Descriptor{Arch: arch, Libc: LibcUnknown}

	switch goos {
	case "linux":
		desc.OS = OSLinux
		desc.Libc = d.detectLibc(ctx)

		distro, _, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return desc, nil
		}
		desc.Distro = normalizePlatform(distro)
		desc.OSVersion = normalizePlatform(version)
		desc.OS = linuxKind(desc.Distro, desc.OSVersion)
		if desc.OS == OSUbuntu {
			desc.Libc = LibcGlibc
		}

	case "darwin":
		desc.OS = OSDarwin
		if kernel, err := host.KernelVersionWithContext(ctx); err == nil {
			desc.OSVersion = normalizePlatform(kernel)
		} else if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}

	case "windows":
		desc.OS = OSWindows
		if _, _, version, err := host.PlatformInformationWithContext(ctx); err == nil {
			desc.OSVersion = normalizePlatform(version)
		}

	default:
		return nil, fmt.Errorf("platform detection failed: unsupported operating system: %s", goos)
	}

	return desc, nil
}

// detectLibc looks for the musl or glibc dynamic loader, then falls back to
// the `ldd --version` banner.
func (d *RealDetector) detectLibc(ctx context.Context) Libc {
	root := d.fsRoot
	if root == "" {
		root = "/"
	}

	for _, pattern := range []string{"lib/ld-musl-*.so.1", "usr/lib/ld-musl-*.so.1"} {
		if matches, _ := filepath.Glob(filepath.Join(root, pattern)); len(matches) > 0 {
			return LibcMusl
		}
	}
	for _, pattern := range []string{"lib*/ld-linux*.so.*", "lib/*-linux-gnu/libc.so.6", "usr/lib*/libc.so.6"} {
		if matches, _ := filepath.Glob(filepath.Join(root, pattern)); len(matches) > 0 {
			return LibcGlibc
		}
	}

	if d.lddBanner == nil {
		return LibcUnknown
	}
	return classifyLibc(d.lddBanner(ctx))
}

func runLdd(ctx context.Context) string {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "ldd", "--version")
	cmd.Stdout = &out
	// musl's ldd prints its banner to stderr and exits non-zero.
	cmd.Stderr = &out
	_ = cmd.Run()
	return out.String()
}
