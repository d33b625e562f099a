// Package plugin installs, removes and lists WasmEdge plugins for an
// installed runtime version.
//
// Plugins are shared libraries dropped into versions/<runtime>/plugin/.
// Their archives are published per runtime release under a platform key
// (see asset.PluginPlatformKey), and their file names follow a fixed
// convention: libwasmedgePlugin<Name>.so on Linux, .dylib on macOS and
// wasmedgePlugin<Name>.dll on Windows.
package plugin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wasmedge/wasmedgeup/internal/release"
)

var (
	// ErrNoPluginsSpecified is returned when an operation gets no plugin names.
	ErrNoPluginsSpecified = errors.New("no plugins specified")
)

// Spec is a requested plugin: a name and an optional version. An empty
// Version means "same as the runtime".
type Spec struct {
	Name    string
	Version string
}

func (s Spec) String() string {
	if s.Version == "" {
		return s.Name
	}
	return s.Name + "@" + s.Version
}

// InvalidSpecError reports a malformed name[@version] argument.
type InvalidSpecError struct {
	Input  string
	Reason string
	Err    error
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid plugin %q: %s", e.Input, e.Reason)
}

func (e *InvalidSpecError) Unwrap() error {
	return e.Err
}

// ParseSpec parses "name" or "name@version".
func ParseSpec(s string) (Spec, error) {
	name, version, hasVersion := strings.Cut(strings.TrimSpace(s), "@")
	if name == "" {
		return Spec{}, &InvalidSpecError{Input: s, Reason: "missing plugin name"}
	}
	if strings.ContainsAny(name, `/\ `) {
		return Spec{}, &InvalidSpecError{Input: s, Reason: "name must not contain path separators or spaces"}
	}
	if !hasVersion {
		return Spec{Name: name}, nil
	}

	v, err := release.ParseVersion(version)
	if err != nil {
		return Spec{}, &InvalidSpecError{Input: s, Reason: "bad version", Err: err}
	}
	return Spec{Name: name, Version: v.String()}, nil
}

// ParseSpecs parses every argument, stopping at the first error.
func ParseSpecs(args []string) ([]Spec, error) {
	specs := make([]Spec, 0, len(args))
	for _, a := range args {
		s, err := ParseSpec(a)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// SameName reports whether a and b name the same plugin, ignoring case and
// punctuation.
func SameName(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}

// normalizeName keeps ASCII letters and digits, lowercased, so that
// "wasi_nn-ggml", "WASI-NN_GGML" and "wasinnggml" all match.
func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// libraryName extracts <Name> from a plugin library file name, or returns
// false if fileName does not follow the convention.
func libraryName(fileName, prefix, ext string) (string, bool) {
	if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, ext) {
		return "", false
	}
	core := strings.TrimSuffix(strings.TrimPrefix(fileName, prefix), ext)
	if core == "" {
		return "", false
	}
	return core, true
}
