package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/blang/semver"
	"github.com/google/go-cmp/cmp"

	"github.com/wasmedge/wasmedgeup/internal/archive"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on Windows")
	}
}

// makeSource builds an extracted-archive source root for version v.
func makeSource(t *testing.T, v string) string {
	t.Helper()
	src := t.TempDir()
	files := map[string]string{
		"bin/wasmedge":                v,
		"lib64/libwasmedge.so.0.1.0":  "lib-" + v,
		"include/wasmedge/wasmedge.h": "header-" + v,
	}
	for name, content := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0755); err != nil {
			t.Fatal(err)
		}
	}
	return src
}

func installVersions(t *testing.T, s *Store, versions ...string) {
	t.Helper()
	for _, v := range versions {
		if err := s.Install(semver.MustParse(v), makeSource(t, v)); err != nil {
			t.Fatalf("Install(%s): %v", v, err)
		}
	}
}

// assertCurrent checks that every top-level link resolves under versions/v.
func assertCurrent(t *testing.T, s *Store, v string) {
	t.Helper()
	want, err := filepath.EvalSymlinks(filepath.Join(s.Root(), VersionsDir, v))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range LinkNames {
		resolved, err := filepath.EvalSymlinks(filepath.Join(s.Root(), name))
		if err != nil {
			t.Errorf("%s does not resolve: %v", name, err)
			continue
		}
		if resolved != filepath.Join(want, name) {
			t.Errorf("%s resolves to %s, want under %s", name, resolved, want)
		}
		target, err := os.Readlink(filepath.Join(s.Root(), name))
		if err != nil {
			t.Errorf("%s is not a link: %v", name, err)
			continue
		}
		if filepath.IsAbs(target) {
			t.Errorf("%s link target %q should be relative", name, target)
		}
	}

	cur, ok, err := s.Current()
	if err != nil || !ok {
		t.Fatalf("Current() = %v, %v, %v", cur, ok, err)
	}
	if cur.String() != v {
		t.Errorf("Current() = %s, want %s", cur, v)
	}
}

// snapshotTree lists every path under root with link targets and sizes.
func snapshotTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		entry := rel
		if d.Type()&fs.ModeSymlink != 0 {
			link, _ := os.Readlink(path)
			entry += " -> " + link
		}
		out = append(out, entry)
		return nil
	})
	sort.Strings(out)
	return out
}

func TestInstallLeavesVersionNotCurrent(t *testing.T) {
	skipOnWindows(t)
	s := New(filepath.Join(t.TempDir(), ".wasmedge"))
	installVersions(t, s, "0.14.1")

	for _, sub := range []string{"bin/wasmedge", "lib/libwasmedge.so.0.1.0", "include/wasmedge/wasmedge.h"} {
		if _, err := os.Stat(filepath.Join(s.VersionDir(semver.MustParse("0.14.1")), sub)); err != nil {
			t.Errorf("missing %s: %v", sub, err)
		}
	}
	if _, err := os.Stat(s.PluginDir(semver.MustParse("0.14.1"))); err != nil {
		t.Errorf("plugin dir not created: %v", err)
	}
	if _, ok, _ := s.Current(); ok {
		t.Error("install must not change the current version")
	}
	if _, err := os.Lstat(filepath.Join(s.Root(), "bin")); !os.IsNotExist(err) {
		t.Error("install must not create top-level links")
	}
}

func TestInstallOverwritesPartialTree(t *testing.T) {
	s := New(t.TempDir())
	v := semver.MustParse("0.14.1")
	stale := filepath.Join(s.VersionDir(v), "bin", "wasmedge")
	if err := os.MkdirAll(filepath.Dir(stale), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}

	installVersions(t, s, "0.14.1")

	got, _ := os.ReadFile(stale)
	if string(got) != "0.14.1" {
		t.Errorf("bin/wasmedge = %q, want overwritten content", got)
	}
}

func TestUse(t *testing.T) {
	skipOnWindows(t)
	s := New(t.TempDir())
	installVersions(t, s, "0.13.5", "0.14.1")

	if err := s.Use(semver.MustParse("0.13.5")); err != nil {
		t.Fatalf("Use: %v", err)
	}
	assertCurrent(t, s, "0.13.5")

	if err := s.Use(semver.MustParse("0.14.1")); err != nil {
		t.Fatalf("Use: %v", err)
	}
	assertCurrent(t, s, "0.14.1")

	for _, name := range LinkNames {
		if _, err := os.Lstat(filepath.Join(s.Root(), name+stagedLinkSuffix)); !os.IsNotExist(err) {
			t.Errorf("staged link for %s left behind", name)
		}
	}
}

func TestUseReplacesStaleEntries(t *testing.T) {
	skipOnWindows(t)
	s := New(t.TempDir())
	installVersions(t, s, "0.14.1")

	// A real directory from a manual install and a stray file.
	if err := os.MkdirAll(filepath.Join(s.Root(), "include", "old"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Root(), "lib"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := s.Use(semver.MustParse("0.14.1")); err != nil {
		t.Fatalf("Use: %v", err)
	}
	assertCurrent(t, s, "0.14.1")
}

func TestUseDoesNotRecurseThroughLinks(t *testing.T) {
	skipOnWindows(t)
	s := New(t.TempDir())
	installVersions(t, s, "0.13.5", "0.14.1")

	if err := s.Use(semver.MustParse("0.13.5")); err != nil {
		t.Fatal(err)
	}
	if err := s.Use(semver.MustParse("0.14.1")); err != nil {
		t.Fatal(err)
	}

	// The previously current version must be intact.
	if _, err := os.Stat(filepath.Join(s.VersionDir(semver.MustParse("0.13.5")), "bin", "wasmedge")); err != nil {
		t.Errorf("switching away deleted the old version's files: %v", err)
	}
}

func TestUseVersionNotFound(t *testing.T) {
	s := New(t.TempDir())
	err := s.Use(semver.MustParse("1.0.0"))
	var notFound *VersionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected VersionNotFoundError, got %v", err)
	}
	if notFound.Version != "1.0.0" {
		t.Errorf("Version = %q", notFound.Version)
	}
}

func TestRollbackRestoresPreviousLinks(t *testing.T) {
	skipOnWindows(t)
	s := New(t.TempDir())
	installVersions(t, s, "0.13.5", "0.14.1")
	if err := s.Use(semver.MustParse("0.13.5")); err != nil {
		t.Fatal(err)
	}

	pairs := []linkPair{}
	prev := []previous{}
	for _, name := range LinkNames[:2] {
		live := filepath.Join(s.Root(), name)
		prev = append(prev, snapshot(live))
		pairs = append(pairs, linkPair{name: name, live: live, target: filepath.Join(VersionsDir, "0.14.1", name)})
	}
	// Simulate a switch that committed two names before failing.
	for _, p := range pairs {
		if err := stageLink(p.live+stagedLinkSuffix, p.target); err != nil {
			t.Fatal(err)
		}
		if err := commitLink(p.live+stagedLinkSuffix, p.live); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.rollback(pairs, prev, len(pairs)); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	assertCurrent(t, s, "0.13.5")
}

func TestRollbackAfterStaleEntryLeavesNoLinks(t *testing.T) {
	skipOnWindows(t)
	s := New(t.TempDir())
	installVersions(t, s, "0.13.5", "0.14.1")
	if err := s.Use(semver.MustParse("0.13.5")); err != nil {
		t.Fatal(err)
	}
	// lib is a real directory left by a manual install.
	lib := filepath.Join(s.Root(), "lib")
	if err := os.Remove(lib); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(lib, "old"), 0755); err != nil {
		t.Fatal(err)
	}

	var pairs []linkPair
	var prev []previous
	for _, name := range LinkNames {
		live := filepath.Join(s.Root(), name)
		prev = append(prev, snapshot(live))
		pairs = append(pairs, linkPair{name: name, live: live, target: filepath.Join(VersionsDir, "0.14.1", name)})
	}
	// Commit bin and lib, then fail before include.
	for _, p := range pairs[:2] {
		if err := stageLink(p.live+stagedLinkSuffix, p.target); err != nil {
			t.Fatal(err)
		}
		if err := commitLink(p.live+stagedLinkSuffix, p.live); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.rollback(pairs, prev, 2); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	for _, name := range LinkNames {
		if _, err := os.Lstat(filepath.Join(s.Root(), name)); !os.IsNotExist(err) {
			t.Errorf("%s should be absent after rollback: %v", name, err)
		}
	}
	if _, ok, err := s.Current(); err != nil || ok {
		t.Errorf("Current() = %v, %v; want no current version", ok, err)
	}
}

func TestUseReportsSymlinkPermission(t *testing.T) {
	skipOnWindows(t)
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	s := New(t.TempDir())
	installVersions(t, s, "0.14.1")

	if err := os.Chmod(s.Root(), 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(s.Root(), 0755) })

	err := s.Use(semver.MustParse("0.14.1"))
	var symErr *archive.SymlinkPermissionError
	if !errors.As(err, &symErr) {
		t.Fatalf("expected SymlinkPermissionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Developer Mode") {
		t.Errorf("error should carry the Windows hint: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(s.Root(), "bin")); !os.IsNotExist(err) {
		t.Errorf("bin link should not exist: %v", err)
	}
}

func TestDiscard(t *testing.T) {
	root := filepath.Join(t.TempDir(), ".wasmedge")
	deconf := &recordingDeconfigurer{}
	s := New(root, WithDeconfigurer(deconf))
	if s.Exists() {
		t.Fatal("root should not exist yet")
	}
	if err := s.CheckWritable(); err != nil {
		t.Fatal(err)
	}
	if !s.Exists() {
		t.Fatal("CheckWritable should create the root")
	}
	if err := s.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if s.Exists() {
		t.Error("root should be gone")
	}
	if len(deconf.roots) != 0 {
		t.Errorf("Discard must not deconfigure the shell, got %v", deconf.roots)
	}
}

func TestCurrent(t *testing.T) {
	skipOnWindows(t)

	t.Run("no_links", func(t *testing.T) {
		_, ok, err := New(t.TempDir()).Current()
		if err != nil || ok {
			t.Errorf("Current() = %v, %v", ok, err)
		}
	})

	t.Run("bin_is_real_directory", func(t *testing.T) {
		root := t.TempDir()
		os.Mkdir(filepath.Join(root, "bin"), 0755)
		_, ok, err := New(root).Current()
		if err != nil || ok {
			t.Errorf("Current() = %v, %v", ok, err)
		}
	})

	t.Run("absolute_target", func(t *testing.T) {
		root := t.TempDir()
		if err := os.Symlink(filepath.Join(root, "versions", "0.14.1", "bin"), filepath.Join(root, "bin")); err != nil {
			t.Fatal(err)
		}
		v, ok, err := New(root).Current()
		if err != nil || !ok || v.String() != "0.14.1" {
			t.Errorf("Current() = %v, %v, %v", v, ok, err)
		}
	})
}

func TestVersionFromTarget(t *testing.T) {
	tests := []struct {
		target string
		want   string
		ok     bool
	}{
		{"versions/0.14.1/bin", "0.14.1", true},
		{"/home/u/.wasmedge/versions/0.15.0-rc.1/bin", "0.15.0-rc.1", true},
		{"versions/latest/bin", "", false},
		{"/usr/bin", "", false},
	}
	for _, tt := range tests {
		v, ok := versionFromTarget(tt.target)
		if ok != tt.ok || (ok && v.String() != tt.want) {
			t.Errorf("versionFromTarget(%q) = %v, %v", tt.target, v, ok)
		}
	}
}

type recordingDeconfigurer struct {
	roots []string
}

func (r *recordingDeconfigurer) Deconfigure(root string) error {
	r.roots = append(r.roots, root)
	return nil
}

func TestRemoveFallsBackToNextLatest(t *testing.T) {
	skipOnWindows(t)
	s := New(t.TempDir())
	installVersions(t, s, "0.13.5", "0.14.0", "0.14.1")
	if err := s.Use(semver.MustParse("0.14.1")); err != nil {
		t.Fatal(err)
	}

	res, err := s.Remove(semver.MustParse("0.14.1"))
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if res.NewCurrent == nil || res.NewCurrent.String() != "0.14.0" {
		t.Errorf("NewCurrent = %v, want 0.14.0", res.NewCurrent)
	}
	if res.RootRemoved {
		t.Error("root should remain")
	}
	assertCurrent(t, s, "0.14.0")
}

func TestRemoveNonCurrentKeepsLinks(t *testing.T) {
	skipOnWindows(t)
	s := New(t.TempDir())
	installVersions(t, s, "0.13.5", "0.14.1")
	if err := s.Use(semver.MustParse("0.14.1")); err != nil {
		t.Fatal(err)
	}

	res, err := s.Remove(semver.MustParse("0.13.5"))
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if res.NewCurrent != nil {
		t.Errorf("NewCurrent = %v, want nil", res.NewCurrent)
	}
	assertCurrent(t, s, "0.14.1")
}

func TestRemoveLastVersionRemovesRoot(t *testing.T) {
	skipOnWindows(t)
	root := filepath.Join(t.TempDir(), ".wasmedge")
	deconf := &recordingDeconfigurer{}
	s := New(root, WithDeconfigurer(deconf))
	installVersions(t, s, "0.14.1")
	if err := s.Use(semver.MustParse("0.14.1")); err != nil {
		t.Fatal(err)
	}

	res, err := s.Remove(semver.MustParse("0.14.1"))
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !res.RootRemoved {
		t.Error("RootRemoved = false")
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Error("install root should no longer exist")
	}
	if diff := cmp.Diff([]string{root}, deconf.roots); diff != "" {
		t.Errorf("deconfigure calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveNotFoundDoesNotMutate(t *testing.T) {
	skipOnWindows(t)
	s := New(t.TempDir())
	installVersions(t, s, "0.14.1")
	if err := s.Use(semver.MustParse("0.14.1")); err != nil {
		t.Fatal(err)
	}
	before := snapshotTree(t, s.Root())

	_, err := s.Remove(semver.MustParse("0.9.0"))
	var notFound *VersionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected VersionNotFoundError, got %v", err)
	}

	if diff := cmp.Diff(before, snapshotTree(t, s.Root())); diff != "" {
		t.Errorf("install root changed (-before +after):\n%s", diff)
	}
}

func TestRemoveAll(t *testing.T) {
	t.Run("removes_root_and_deconfigures", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), ".wasmedge")
		deconf := &recordingDeconfigurer{}
		s := New(root, WithDeconfigurer(deconf))
		installVersions(t, s, "0.13.5", "0.14.1")

		if err := s.RemoveAll(); err != nil {
			t.Fatalf("RemoveAll: %v", err)
		}
		if _, err := os.Stat(root); !os.IsNotExist(err) {
			t.Error("root should be removed")
		}
		if len(deconf.roots) != 1 {
			t.Errorf("deconfigure called %d times", len(deconf.roots))
		}
	})

	t.Run("missing_root", func(t *testing.T) {
		s := New(filepath.Join(t.TempDir(), "absent"))
		if err := s.RemoveAll(); !errors.Is(err, ErrNothingToRemove) {
			t.Errorf("expected ErrNothingToRemove, got %v", err)
		}
	})

	t.Run("root_without_versions", func(t *testing.T) {
		s := New(t.TempDir())
		if err := s.RemoveAll(); !errors.Is(err, ErrNothingToRemove) {
			t.Errorf("expected ErrNothingToRemove, got %v", err)
		}
	})
}

func TestListInstalled(t *testing.T) {
	s := New(t.TempDir())
	installVersions(t, s, "0.13.5", "0.15.0-rc.1", "0.14.1", "0.15.0")
	if err := os.MkdirAll(filepath.Join(s.Root(), VersionsDir, "not-a-version"), 0755); err != nil {
		t.Fatal(err)
	}

	versions, err := s.ListInstalled()
	if err != nil {
		t.Fatalf("ListInstalled: %v", err)
	}
	var got []string
	for _, v := range versions {
		got = append(got, v.String())
	}
	want := []string{"0.15.0", "0.15.0-rc.1", "0.14.1", "0.13.5"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}

	latest, ok, err := s.LatestInstalled()
	if err != nil || !ok || latest.String() != "0.15.0" {
		t.Errorf("LatestInstalled() = %v, %v, %v", latest, ok, err)
	}
}

func TestLatestInstalledEmpty(t *testing.T) {
	_, ok, err := New(filepath.Join(t.TempDir(), "none")).LatestInstalled()
	if err != nil || ok {
		t.Errorf("LatestInstalled() = %v, %v", ok, err)
	}
}

func TestCheckWritable(t *testing.T) {
	t.Run("creates_root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "a", "b")
		if err := New(root).CheckWritable(); err != nil {
			t.Fatalf("CheckWritable: %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, writeTestMarker)); !os.IsNotExist(err) {
			t.Error("marker file should be removed")
		}
	})

	t.Run("root_is_a_file", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(root, nil, 0644); err != nil {
			t.Fatal(err)
		}
		err := New(root).CheckWritable()
		var perm *InsufficientPermissionsError
		if !errors.As(err, &perm) {
			t.Fatalf("expected InsufficientPermissionsError, got %v", err)
		}
		if perm.Path != root {
			t.Errorf("Path = %q", perm.Path)
		}
		if !strings.Contains(perm.Remediation, ".wasmedge") {
			t.Errorf("remediation should suggest a user directory: %q", perm.Remediation)
		}
	})
}

func TestConcurrentInstallsDoNotCrossWrite(t *testing.T) {
	s := New(t.TempDir())
	versions := []string{"0.13.5", "0.14.0", "0.14.1", "0.15.0"}
	sources := make(map[string]string)
	for _, v := range versions {
		sources[v] = makeSource(t, v)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(versions))
	for _, v := range versions {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			errs <- s.Install(semver.MustParse(v), sources[v])
		}(v)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Install: %v", err)
		}
	}

	for _, v := range versions {
		got, err := os.ReadFile(filepath.Join(s.VersionDir(semver.MustParse(v)), "bin", "wasmedge"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != v {
			t.Errorf("version %s has content %q", v, got)
		}
	}
}
