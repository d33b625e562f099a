//go:build !windows

package shell

import "errors"

var errNoRegistry = errors.New("the user Path registry value only exists on Windows")

type registryPath struct{}

func (registryPath) Add(string) (bool, error)    { return false, errNoRegistry }
func (registryPath) Remove(string) (bool, error) { return false, errNoRegistry }
