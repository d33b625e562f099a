package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// apiRepoPath is where the GitHub API view of the server lives.
const apiRepoPath = "/api/repos/WasmEdge/WasmEdge/releases"

// ReleaseServer mimics the release download host: files live under
// /download/<tag>/<name> and each tag may carry a SHA256SUM manifest.
// The same files are listed through a GitHub-style releases API rooted at
// APIBaseURL.
type ReleaseServer struct {
	*httptest.Server

	mu        sync.Mutex
	files     map[string][]byte
	manifests map[string]string
	requests  []string
}

// NewReleaseServer starts a server that is closed when the test ends.
func NewReleaseServer(t *testing.T) *ReleaseServer {
	t.Helper()
	rs := &ReleaseServer{files: map[string][]byte{}, manifests: map[string]string{}}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(rs.Close)
	return rs
}

// BaseURL is the release download base, without a trailing slash.
func (rs *ReleaseServer) BaseURL() string {
	return rs.URL + "/download"
}

// APIBaseURL is the root to use in place of https://api.github.com.
func (rs *ReleaseServer) APIBaseURL() string {
	return rs.URL + "/api"
}

// AddFile publishes body as tag/name and returns its SHA-256 digest. When
// listed is true the digest is also added to the tag's manifest.
func (rs *ReleaseServer) AddFile(tag, name string, body []byte, listed bool) string {
	sum := sha256.Sum256(body)
	digest := hex.EncodeToString(sum[:])

	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.files[tag+"/"+name] = body
	if listed {
		rs.manifests[tag] += fmt.Sprintf("%s  %s\n", digest, name)
	}
	return digest
}

// SetManifest replaces the tag's manifest verbatim.
func (rs *ReleaseServer) SetManifest(tag, manifest string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.manifests[tag] = manifest
}

// Requests returns the request paths served so far.
func (rs *ReleaseServer) Requests() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.requests...)
}

func (rs *ReleaseServer) serve(w http.ResponseWriter, r *http.Request) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.requests = append(rs.requests, r.URL.Path)

	if rest, ok := strings.CutPrefix(r.URL.Path, apiRepoPath); ok {
		rs.serveAPI(w, r, rest)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/download/")
	if tag, ok := strings.CutSuffix(path, "/SHA256SUM"); ok {
		manifest, found := rs.manifests[tag]
		if !found {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, manifest)
		return
	}

	body, ok := rs.files[path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.Write(body)
}

type apiAsset struct {
	Name string `json:"name"`
}

type apiRelease struct {
	TagName    string     `json:"tag_name"`
	Prerelease bool       `json:"prerelease"`
	Assets     []apiAsset `json:"assets"`
}

// serveAPI answers the release list (single page) and per-tag lookups.
// Callers hold rs.mu.
func (rs *ReleaseServer) serveAPI(w http.ResponseWriter, r *http.Request, rest string) {
	releases := map[string]*apiRelease{}
	for key := range rs.files {
		tag, name, _ := strings.Cut(key, "/")
		rel, ok := releases[tag]
		if !ok {
			rel = &apiRelease{TagName: tag, Prerelease: strings.Contains(tag, "-")}
			releases[tag] = rel
		}
		rel.Assets = append(rel.Assets, apiAsset{Name: name})
	}
	for _, rel := range releases {
		sort.Slice(rel.Assets, func(i, j int) bool { return rel.Assets[i].Name < rel.Assets[j].Name })
	}

	w.Header().Set("Content-Type", "application/json")
	if tag, ok := strings.CutPrefix(rest, "/tags/"); ok {
		rel, found := releases[tag]
		if !found {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(rel)
		return
	}
	if page := r.URL.Query().Get("page"); page != "" && page != "1" {
		fmt.Fprint(w, "[]")
		return
	}

	list := make([]*apiRelease, 0, len(releases))
	for _, rel := range releases {
		list = append(list, rel)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].TagName > list[j].TagName })
	json.NewEncoder(w).Encode(list)
}
