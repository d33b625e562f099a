package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blang/semver"
)

const (
	// DefaultAPIBaseURL is the GitHub REST API root.
	DefaultAPIBaseURL = "https://api.github.com"
	// DefaultRepository is the upstream project whose releases are listed.
	DefaultRepository = "WasmEdge/WasmEdge"

	apiPageSize = 100
	maxPages    = 20
)

// Release is a published upstream release.
type Release struct {
	Version semver.Version
	// PublishedAt is zero when the source does not know it.
	PublishedAt time.Time
}

// Query narrows what a Source returns.
type Query struct {
	// StableOnly drops pre-releases.
	StableOnly bool
	// Max stops paging once at least Max matching releases were collected.
	// Zero or negative means no limit.
	Max int
}

func (q Query) matches(v semver.Version) bool {
	return !q.StableOnly || IsStable(v)
}

func (q Query) satisfied(n int) bool {
	return q.Max > 0 && n >= q.Max
}

// Source produces upstream releases.
type Source interface {
	Releases(ctx context.Context, q Query) ([]Release, error)
}

// HTTPDoer is the subset of *http.Client used by sources.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestError reports a failed request to a releases source.
type RequestError struct {
	Resource   string
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s (%s): %v", e.Resource, e.URL, e.Err)
	}
	return fmt.Sprintf("request %s (%s): unexpected status code %d", e.Resource, e.URL, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

type githubRelease struct {
	TagName     string        `json:"tag_name"`
	Draft       bool          `json:"draft"`
	Prerelease  bool          `json:"prerelease"`
	PublishedAt time.Time     `json:"published_at"`
	Assets      []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name string `json:"name"`
}

// GitHubSource lists releases through the GitHub REST API.
type GitHubSource struct {
	Client     HTTPDoer
	BaseURL    string
	Repository string
	UserAgent  string
}

// Releases pages through the releases endpoint. Drafts and tags that are
// not semantic versions are skipped.
func (s *GitHubSource) Releases(ctx context.Context, q Query) ([]Release, error) {
	base, repo := s.endpoint()

	var out []Release
	for page := 1; page <= maxPages; page++ {
		endpoint := fmt.Sprintf("%s/repos/%s/releases?per_page=%d&page=%d", base, repo, apiPageSize, page)

		batch, done, err := s.fetchPage(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		for _, r := range batch {
			if r.Draft {
				continue
			}
			v, err := ParseVersion(r.TagName)
			if err != nil || !q.matches(v) {
				continue
			}
			out = append(out, Release{Version: v, PublishedAt: r.PublishedAt})
		}
		if done || q.satisfied(len(out)) {
			break
		}
	}

	return out, nil
}

// ReleaseAssets returns the asset file names attached to the release tagged
// tag. An unknown tag is a RequestError with StatusCode 404.
func (s *GitHubSource) ReleaseAssets(ctx context.Context, tag string) ([]string, error) {
	base, repo := s.endpoint()
	endpoint := fmt.Sprintf("%s/repos/%s/releases/tags/%s", base, repo, url.PathEscape(tag))

	resp, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, &RequestError{Resource: "release " + tag, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{Resource: "release " + tag, URL: endpoint, StatusCode: resp.StatusCode}
	}

	var rel githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode release %s: %w", tag, err)
	}

	names := make([]string, 0, len(rel.Assets))
	for _, a := range rel.Assets {
		names = append(names, a.Name)
	}
	return names, nil
}

func (s *GitHubSource) endpoint() (base, repo string) {
	base = strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = DefaultAPIBaseURL
	}
	repo = s.Repository
	if repo == "" {
		repo = DefaultRepository
	}
	return base, repo
}

func (s *GitHubSource) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	return s.Client.Do(req)
}

func (s *GitHubSource) fetchPage(ctx context.Context, endpoint string) ([]githubRelease, bool, error) {
	resp, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, false, &RequestError{Resource: "releases", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, &RequestError{Resource: "releases", URL: endpoint, StatusCode: resp.StatusCode}
	}

	var batch []githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, false, fmt.Errorf("decode releases page: %w", err)
	}

	return batch, len(batch) < apiPageSize, nil
}

// pageURL appends the page query parameter to a listing URL.
func pageURL(listing string, page int) (string, error) {
	u, err := url.Parse(listing)
	if err != nil {
		return "", fmt.Errorf("parse releases URL: %w", err)
	}
	values := u.Query()
	values.Set("page", fmt.Sprint(page))
	u.RawQuery = values.Encode()
	return u.String(), nil
}
