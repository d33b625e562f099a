package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const rootPlaceholder = "{WASMEDGE_DIR}"

const posixScript = `#!/bin/sh
# WasmEdge environment, generated by wasmedgeup.
# Sourced from shell startup files; safe to source more than once.
_wasmedge_dir="{WASMEDGE_DIR}"

_wasmedge_prepend() {
    # $1: variable name, $2: directory
    eval "_wasmedge_cur=\${$1:-}"
    case ":${_wasmedge_cur}:" in
        *:"$2":*) ;;
        *) eval "export $1=\"$2\${_wasmedge_cur:+:\$_wasmedge_cur}\"" ;;
    esac
    unset _wasmedge_cur
}

_wasmedge_prepend PATH "$_wasmedge_dir/bin"
case "$(uname -s)" in
    Darwin) _wasmedge_prepend DYLD_LIBRARY_PATH "$_wasmedge_dir/lib" ;;
    *) _wasmedge_prepend LD_LIBRARY_PATH "$_wasmedge_dir/lib" ;;
esac
_wasmedge_prepend LIBRARY_PATH "$_wasmedge_dir/lib"
_wasmedge_prepend C_INCLUDE_PATH "$_wasmedge_dir/include"
_wasmedge_prepend CPLUS_INCLUDE_PATH "$_wasmedge_dir/include"

unset -f _wasmedge_prepend
unset _wasmedge_dir
`

const fishScript = `# WasmEdge environment, generated by wasmedgeup.
set -l wasmedge_dir "{WASMEDGE_DIR}"

function __wasmedge_prepend --argument-names var dir
    if not contains -- $dir $$var
        set -gx $var $dir $$var
    end
end

__wasmedge_prepend PATH "$wasmedge_dir/bin"
if test (uname -s) = Darwin
    __wasmedge_prepend DYLD_LIBRARY_PATH "$wasmedge_dir/lib"
else
    __wasmedge_prepend LD_LIBRARY_PATH "$wasmedge_dir/lib"
end
__wasmedge_prepend LIBRARY_PATH "$wasmedge_dir/lib"
__wasmedge_prepend C_INCLUDE_PATH "$wasmedge_dir/include"
__wasmedge_prepend CPLUS_INCLUDE_PATH "$wasmedge_dir/include"

functions -e __wasmedge_prepend
`

const nuScript = `# WasmEdge environment, generated by wasmedgeup.
export-env {
    let wasmedge_dir = "{WASMEDGE_DIR}"
    let prepend = {|name, dir|
        let current = ($env | get -i $name | default [])
        let parts = (if ($current | describe | str starts-with "list") { $current } else { $current | split row (char esep) })
        $parts | where {|p| $p != "" and $p != $dir } | prepend $dir
    }

    $env.PATH = (do $prepend "PATH" $"($wasmedge_dir)/bin")
    let lib_var = (if ((sys host | get name) == "Darwin") { "DYLD_LIBRARY_PATH" } else { "LD_LIBRARY_PATH" })
    load-env {
        $lib_var: ((do $prepend $lib_var $"($wasmedge_dir)/lib") | str join (char esep))
        LIBRARY_PATH: ((do $prepend "LIBRARY_PATH" $"($wasmedge_dir)/lib") | str join (char esep))
        C_INCLUDE_PATH: ((do $prepend "C_INCLUDE_PATH" $"($wasmedge_dir)/include") | str join (char esep))
        CPLUS_INCLUDE_PATH: ((do $prepend "CPLUS_INCLUDE_PATH" $"($wasmedge_dir)/include") | str join (char esep))
    }
}
`

// Script renders the environment script for root.
func (s ShellType) Script(root string) string {
	tmpl := posixScript
	switch s {
	case ShellFish:
		tmpl = fishScript
	case ShellNushell:
		tmpl = nuScript
	}
	return strings.ReplaceAll(tmpl, rootPlaceholder, root)
}

// writeScript writes the shell's environment script into root and returns
// its path.
func writeScript(root string, s ShellType) (string, error) {
	path := filepath.Join(root, s.ScriptName())
	if err := writeFileAtomic(path, []byte(s.Script(root)), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", s.ScriptName(), err)
	}
	return path, nil
}

// writeFileAtomic replaces path through a temp file in the same directory.
func writeFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".wasmedgeup-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(content); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
