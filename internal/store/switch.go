package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/blang/semver"

	"github.com/wasmedge/wasmedgeup/internal/archive"
)

const stagedLinkSuffix = ".wasmedgeup-new"

type linkPair struct {
	name   string
	live   string // <root>/<name>
	target string // relative: versions/<v>/<name>
}

// previous records what occupied a live name before Use, for rollback.
type previous struct {
	existed bool
	link    string // empty if the entry was not a symlink
}

// Use points all four top-level links at versions/<v>. Either every link
// is switched or the root is restored to its prior links.
//
// On Windows, where renaming over an existing link is unreliable, each
// old link is removed just before its replacement is renamed into place.
func (s *Store) Use(v semver.Version) error {
	if !s.HasVersion(v) {
		return &VersionNotFoundError{Version: v.String()}
	}

	pairs := make([]linkPair, 0, len(LinkNames))
	for _, name := range LinkNames {
		if err := os.MkdirAll(filepath.Join(s.VersionDir(v), name), 0755); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		pairs = append(pairs, linkPair{
			name:   name,
			live:   filepath.Join(s.root, name),
			target: filepath.Join(VersionsDir, v.String(), name),
		})
	}

	// Stage every new link before touching a live name.
	for i, p := range pairs {
		if err := stageLink(p.live+stagedLinkSuffix, p.target); err != nil {
			cleanupStaged(pairs[:i+1])
			return err
		}
	}

	prev := make([]previous, len(pairs))
	for i, p := range pairs {
		prev[i] = snapshot(p.live)
	}

	for i, p := range pairs {
		if err := commitLink(p.live+stagedLinkSuffix, p.live); err != nil {
			s.logger.Warn("switching links failed, rolling back", "version", v.String(), "link", p.name, "error", err)
			cleanupStaged(pairs[i:])
			if rbErr := s.rollback(pairs, prev, i); rbErr != nil {
				return fmt.Errorf("switch %s: %w (rollback failed: %v)", p.name, err, rbErr)
			}
			return fmt.Errorf("switch %s: %w", p.name, err)
		}
	}

	s.logger.Info("switched current version", "version", v.String(), "root", s.root)
	return nil
}

// Current returns the version the bin link points at. ok is false when
// there is no bin link or it does not point into versions/.
func (s *Store) Current() (semver.Version, bool, error) {
	bin := filepath.Join(s.root, "bin")
	info, err := os.Lstat(bin)
	if errors.Is(err, os.ErrNotExist) {
		return semver.Version{}, false, nil
	}
	if err != nil {
		return semver.Version{}, false, fmt.Errorf("stat bin link: %w", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return semver.Version{}, false, nil
	}

	target, err := os.Readlink(bin)
	if err != nil {
		return semver.Version{}, false, fmt.Errorf("read bin link: %w", err)
	}
	v, ok := versionFromTarget(target)
	return v, ok, nil
}

// versionFromTarget extracts <x> from a link target containing
// versions/<x>/..., relative or absolute.
func versionFromTarget(target string) (semver.Version, bool) {
	parts := strings.Split(filepath.ToSlash(target), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] != VersionsDir {
			continue
		}
		if v, err := semver.Parse(parts[i+1]); err == nil {
			return v, true
		}
	}
	return semver.Version{}, false
}

func stageLink(path, target string) error {
	if err := removeEntry(path); err != nil {
		return err
	}
	return archive.Symlink(target, path)
}

func cleanupStaged(pairs []linkPair) {
	for _, p := range pairs {
		os.Remove(p.live + stagedLinkSuffix)
	}
}

func snapshot(live string) previous {
	info, err := os.Lstat(live)
	if err != nil {
		return previous{}
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return previous{existed: true}
	}
	link, _ := os.Readlink(live)
	return previous{existed: true, link: link}
}

// commitLink moves the staged link over live. A real directory or file at
// live is deleted first; an existing link is replaced by the rename.
func commitLink(staged, live string) error {
	info, err := os.Lstat(live)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink == 0:
		if err := removeEntry(live); err != nil {
			return err
		}
	case err == nil && runtime.GOOS == "windows":
		if err := os.Remove(live); err != nil {
			return fmt.Errorf("remove old link %s: %w", live, err)
		}
	}
	return os.Rename(staged, live)
}

// rollback undoes a switch that failed after committing the first
// committed names. Those names get their previous links back. If any name
// held a real directory or file before, that content is already gone, so
// every name is removed instead and no version is current.
func (s *Store) rollback(pairs []linkPair, prev []previous, committed int) error {
	var errs []error
	for _, p := range prev {
		if p.existed && p.link == "" {
			for _, pair := range pairs {
				if err := removeEntry(pair.live); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		}
	}

	for i, p := range pairs[:committed] {
		if !prev[i].existed {
			if err := os.Remove(p.live); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if err := stageLink(p.live+stagedLinkSuffix, prev[i].link); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := commitLink(p.live+stagedLinkSuffix, p.live); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// removeEntry deletes path. Real directories are removed recursively; a
// symlink is removed itself and never followed.
func removeEntry(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink == 0 && info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
