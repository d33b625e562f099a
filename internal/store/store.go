// Package store owns a WasmEdge install root: the versions/ tree and the
// four top-level links (bin, lib, include, plugin) that select the current
// version.
//
// Layout:
//
//	<root>/versions/<semver>/{bin,lib,include,plugin}/...
//	<root>/{bin,lib,include,plugin} -> versions/<semver>/<name>
//
// The current version is read from where the bin link points; no separate
// marker file is kept.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/blang/semver"

	"github.com/wasmedge/wasmedgeup/internal/archive"
	"github.com/wasmedge/wasmedgeup/internal/logging"
)

const (
	// VersionsDir holds one directory per installed version.
	VersionsDir = "versions"
	// PluginDirName is the per-version plugin directory.
	PluginDirName = "plugin"

	writeTestMarker = ".wasmedgeup_write_test"
)

// LinkNames are the top-level names switched by Use.
var LinkNames = []string{"bin", "lib", "include", PluginDirName}

// Deconfigurer removes shell integration for a root that is going away.
type Deconfigurer interface {
	Deconfigure(root string) error
}

// Option configures a Store.
type Option func(*Store)

// WithDeconfigurer sets the collaborator called after the root is removed.
func WithDeconfigurer(d Deconfigurer) Option {
	return func(s *Store) { s.deconfigurer = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// Store manages one install root.
type Store struct {
	root         string
	deconfigurer Deconfigurer
	logger       logging.Logger
}

// New returns a Store for root. The root need not exist.
func New(root string, opts ...Option) *Store {
	s := &Store{root: filepath.Clean(root), logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the install root.
func (s *Store) Root() string {
	return s.root
}

// Exists reports whether the install root exists.
func (s *Store) Exists() bool {
	_, err := os.Lstat(s.root)
	return err == nil
}

// Discard deletes the root without touching shell integration. It is for
// a root that a failed first install created and nothing was configured
// for.
func (s *Store) Discard() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("remove install root: %w", err)
	}
	s.logger.Debug("discarded install root", "root", s.root)
	return nil
}

// VersionDir returns <root>/versions/<v>.
func (s *Store) VersionDir(v semver.Version) string {
	return filepath.Join(s.root, VersionsDir, v.String())
}

// PluginDir returns <root>/versions/<v>/plugin.
func (s *Store) PluginDir(v semver.Version) string {
	return filepath.Join(s.VersionDir(v), PluginDirName)
}

// HasVersion reports whether versions/<v> exists.
func (s *Store) HasVersion(v semver.Version) bool {
	info, err := os.Stat(s.VersionDir(v))
	return err == nil && info.IsDir()
}

// CheckWritable creates the root if needed and probes it with a marker
// file. Any failure is reported as InsufficientPermissionsError.
func (s *Store) CheckWritable() error {
	return checkWritable(s.root)
}

// CheckVersionWritable probes versions/<v>, which must already exist.
func (s *Store) CheckVersionWritable(v semver.Version) error {
	if !s.HasVersion(v) {
		return &VersionNotFoundError{Version: v.String()}
	}
	return checkWritable(s.VersionDir(v))
}

func checkWritable(dir string) error {
	fail := func(err error) error {
		return &InsufficientPermissionsError{Path: dir, Remediation: remediation(dir), Err: err}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(err)
	}
	marker := filepath.Join(dir, writeTestMarker)
	f, err := os.OpenFile(marker, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fail(err)
	}
	f.Close()
	if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fail(err)
	}
	return nil
}

// Install copies sourceRoot into versions/<v>. The new version is not made
// current. Files left by an earlier failed attempt are overwritten.
func (s *Store) Install(v semver.Version, sourceRoot string) error {
	if err := s.CheckWritable(); err != nil {
		return err
	}

	dir := s.VersionDir(v)
	for _, name := range LinkNames {
		if err := os.MkdirAll(filepath.Join(dir, name), 0755); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}

	if err := archive.CopyTree(sourceRoot, dir); err != nil {
		return fmt.Errorf("install %s: %w", v, err)
	}

	s.logger.Debug("installed version tree", "version", v.String(), "dir", dir)
	return nil
}

// ListInstalled returns the installed versions, newest first. Directory
// names that are not semantic versions are ignored.
func (s *Store) ListInstalled() ([]semver.Version, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, VersionsDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read versions: %w", err)
	}

	var versions []semver.Version
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := semver.Parse(e.Name())
		if err != nil {
			s.logger.Debug("ignoring non-version directory", "name", e.Name())
			continue
		}
		versions = append(versions, v)
	}

	sort.Sort(sort.Reverse(semver.Versions(versions)))
	return versions, nil
}

// LatestInstalled returns the highest installed version.
func (s *Store) LatestInstalled() (semver.Version, bool, error) {
	versions, err := s.ListInstalled()
	if err != nil || len(versions) == 0 {
		return semver.Version{}, false, err
	}
	return versions[0], true, nil
}
