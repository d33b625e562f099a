package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"golang.org/x/net/html"
)

// DefaultReleasesPageURL is the human-facing release listing.
const DefaultReleasesPageURL = "https://github.com/WasmEdge/WasmEdge/releases"

var releaseTagPattern = regexp.MustCompile(`releases/tag/([0-9]+\.[0-9]+\.[0-9]+(?:-[A-Za-z]+\.[0-9]+)?)$`)

// PageSource scrapes the HTML release listing. It needs no API token but
// carries no publish times, so ordering relies on version comparison.
type PageSource struct {
	Client    HTTPDoer
	URL       string
	UserAgent string
}

// Releases walks ?page=1, 2, ... until a 404, a page without new tags, or
// until the query is satisfied.
func (s *PageSource) Releases(ctx context.Context, q Query) ([]Release, error) {
	listing := s.URL
	if listing == "" {
		listing = DefaultReleasesPageURL
	}

	seen := make(map[string]bool)
	var out []Release

	for page := 1; page <= maxPages; page++ {
		endpoint, err := pageURL(listing, page)
		if err != nil {
			return nil, err
		}

		tags, found, err := s.fetchTags(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}

		fresh := 0
		for _, tag := range tags {
			if seen[tag] {
				continue
			}
			seen[tag] = true
			fresh++

			v, err := ParseVersion(tag)
			if err != nil || !q.matches(v) {
				continue
			}
			out = append(out, Release{Version: v})
		}
		if fresh == 0 || q.satisfied(len(out)) {
			break
		}
	}

	return out, nil
}

func (s *PageSource) fetchTags(ctx context.Context, endpoint string) ([]string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, false, &RequestError{Resource: "releases", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, &RequestError{Resource: "releases", URL: endpoint, StatusCode: resp.StatusCode}
	}

	tags, err := scrapeReleaseTags(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("parse releases page: %w", err)
	}
	return tags, true, nil
}

// scrapeReleaseTags returns release tags linked from anchors, in document
// order and without duplicates.
func scrapeReleaseTags(r io.Reader) ([]string, error) {
	var tags []string
	seen := make(map[string]bool)

	tokenizer := html.NewTokenizer(r)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != io.EOF {
				return nil, err
			}
			return tags, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := tokenizer.TagAttr()
				if string(key) == "href" {
					if m := releaseTagPattern.FindStringSubmatch(string(val)); m != nil && !seen[m[1]] {
						seen[m[1]] = true
						tags = append(tags, m[1])
					}
				}
				if !more {
					break
				}
			}
		}
	}
}
