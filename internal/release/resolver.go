package release

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blang/semver"
)

// DefaultListLimit is the number of releases listed when no limit is given.
const DefaultListLimit = 10

// ListOptions configures Resolver.List.
type ListOptions struct {
	// All includes pre-releases.
	All bool
	// Limit caps the result. Zero means DefaultListLimit.
	Limit int
}

// Resolver turns version tokens into concrete versions.
type Resolver struct {
	source Source
}

// NewResolver creates a resolver backed by source.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the newest stable release for "latest", and parses any
// other token as an explicit version.
func (r *Resolver) Resolve(ctx context.Context, token string) (semver.Version, error) {
	if !strings.EqualFold(strings.TrimSpace(token), LatestToken) {
		return ParseVersion(token)
	}

	versions, err := r.List(ctx, ListOptions{Limit: 1})
	if err != nil {
		return semver.Version{}, fmt.Errorf("resolve latest: %w", err)
	}
	return versions[0], nil
}

// List returns up to opts.Limit releases, newest first. Releases sharing a
// publish time (or with none) are ordered by version, descending.
func (r *Resolver) List(ctx context.Context, opts ListOptions) ([]semver.Version, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	releases, err := r.source.Releases(ctx, Query{StableOnly: !opts.All, Max: limit})
	if err != nil {
		return nil, err
	}
	if !opts.All {
		releases = filterStableReleases(releases)
	}
	if len(releases) == 0 {
		return nil, ErrNoReleasesFound
	}

	SortReleases(releases)

	if len(releases) > limit {
		releases = releases[:limit]
	}
	out := make([]semver.Version, len(releases))
	for i, rel := range releases {
		out[i] = rel.Version
	}
	return out, nil
}

// SortReleases orders releases newest-published first, breaking ties by
// descending version.
func SortReleases(releases []Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		a, b := releases[i], releases[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.Version.GT(b.Version)
	})
}

func filterStableReleases(releases []Release) []Release {
	out := releases[:0:0]
	for _, rel := range releases {
		if IsStable(rel.Version) {
			out = append(out, rel)
		}
	}
	return out
}
