// Package release resolves WasmEdge release versions.
//
// Versions are github.com/blang/semver values. A Resolver turns a user
// token ("latest" or an explicit version) into a concrete version and lists
// releases from a Source, which is either the GitHub REST API or the HTML
// release pages of the upstream repository.
package release

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/blang/semver"
)

// LatestToken selects the newest stable release.
const LatestToken = "latest"

// ErrNoReleasesFound is returned when a releases source yields nothing
// usable for the request.
var ErrNoReleasesFound = errors.New("no releases found")

// InvalidVersionError reports an input that is not a semantic version.
type InvalidVersionError struct {
	Input string
	Cause error
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Input, e.Cause)
}

func (e *InvalidVersionError) Unwrap() error {
	return e.Cause
}

// ParseVersion parses a semantic version, accepting an optional leading "v".
func ParseVersion(s string) (semver.Version, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "v"), "V")

	v, err := semver.Parse(trimmed)
	if err != nil {
		return semver.Version{}, &InvalidVersionError{Input: s, Cause: err}
	}
	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error. Intended for
// constants.
func MustParseVersion(s string) semver.Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsStable reports whether v has no pre-release component.
func IsStable(v semver.Version) bool {
	return len(v.Pre) == 0
}

// FilterStable returns the stable versions of vs, preserving order.
func FilterStable(vs []semver.Version) []semver.Version {
	out := make([]semver.Version, 0, len(vs))
	for _, v := range vs {
		if IsStable(v) {
			out = append(out, v)
		}
	}
	return out
}

// SortDescending sorts vs newest first.
func SortDescending(vs []semver.Version) {
	sort.Sort(sort.Reverse(semver.Versions(vs)))
}
