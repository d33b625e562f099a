package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/blang/semver"
)

// RemoveResult describes what Remove did.
type RemoveResult struct {
	Removed semver.Version
	// NewCurrent is set when the removed version was current and another
	// version took its place.
	NewCurrent *semver.Version
	// RootRemoved is set when no versions remained and the root was deleted.
	RootRemoved bool
}

// Remove deletes versions/<v>. If v was current, the newest remaining
// version becomes current. If nothing remains, the whole root is removed
// and shell integration is undone.
func (s *Store) Remove(v semver.Version) (RemoveResult, error) {
	result := RemoveResult{Removed: v}

	if !s.HasVersion(v) {
		return result, &VersionNotFoundError{Version: v.String()}
	}

	current, hasCurrent, err := s.Current()
	if err != nil {
		return result, err
	}
	wasCurrent := hasCurrent && current.Equals(v)

	if err := os.RemoveAll(s.VersionDir(v)); err != nil {
		return result, fmt.Errorf("remove %s: %w", v, err)
	}
	s.logger.Info("removed version", "version", v.String(), "was_current", wasCurrent)

	remaining, err := s.ListInstalled()
	if err != nil {
		return result, err
	}

	if len(remaining) == 0 {
		if err := s.removeRoot(); err != nil {
			return result, err
		}
		result.RootRemoved = true
		return result, nil
	}

	if wasCurrent {
		next := remaining[0]
		if err := s.Use(next); err != nil {
			return result, fmt.Errorf("switch to %s after removing %s: %w", next, v, err)
		}
		result.NewCurrent = &next
	}
	return result, nil
}

// RemoveAll deletes the install root regardless of the current version.
func (s *Store) RemoveAll() error {
	if _, err := os.Stat(s.root); errors.Is(err, os.ErrNotExist) {
		return ErrNothingToRemove
	}
	versions, err := s.ListInstalled()
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return ErrNothingToRemove
	}
	return s.removeRoot()
}

func (s *Store) removeRoot() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("remove install root: %w", err)
	}
	s.logger.Info("removed install root", "root", s.root)

	if s.deconfigurer == nil {
		return nil
	}
	if err := s.deconfigurer.Deconfigure(s.root); err != nil {
		return fmt.Errorf("remove shell integration: %w", err)
	}
	return nil
}
