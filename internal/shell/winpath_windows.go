//go:build windows

package shell

import (
	"errors"

	"golang.org/x/sys/windows/registry"
)

// registryPath edits HKCU\Environment\Path.
type registryPath struct{}

func (registryPath) edit(fn func(current string) (string, bool)) (bool, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, "Environment", registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return false, err
	}
	defer key.Close()

	current, _, err := key.GetStringValue("Path")
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return false, err
	}

	updated, changed := fn(current)
	if !changed {
		return false, nil
	}
	if err := key.SetExpandStringValue("Path", updated); err != nil {
		return false, err
	}
	return true, nil
}

func (r registryPath) Add(dir string) (bool, error) {
	return r.edit(func(current string) (string, bool) { return addPathEntry(current, dir) })
}

func (r registryPath) Remove(dir string) (bool, error) {
	return r.edit(func(current string) (string, bool) { return removePathEntry(current, dir) })
}
