package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// installDirs are the entries allowed at the root of a bare-layout archive.
var installDirs = map[string]bool{
	"bin":     true,
	"lib64":   true,
	"include": true,
	"lib":     true,
}

// metadataDir is packaging metadata some zip tools add; it is never part
// of the install tree.
const metadataDir = "__MACOSX"

// SourceRoot locates the directory inside an extraction staging dir whose
// contents should be copied into the version directory. A nested archive
// must hold nothing but its one prefixed directory. hint is only used to
// make the error clearer and may be empty.
func SourceRoot(stagingDir, prefix, hint string) (string, error) {
	all, err := sortedNames(stagingDir)
	if err != nil {
		return "", fmt.Errorf("read extracted archive: %w", err)
	}
	names := make([]string, 0, len(all))
	for _, name := range all {
		if name != metadataDir {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", &InvalidStructureError{}
	}

	if len(names) == 1 && strings.HasPrefix(names[0], prefix) {
		info, err := os.Stat(filepath.Join(stagingDir, names[0]))
		if err == nil && info.IsDir() {
			return filepath.Join(stagingDir, names[0]), nil
		}
	}

	for _, name := range names {
		if !installDirs[name] {
			found := name
			if hint != "" {
				found = hint + ": " + name
			}
			return "", &InvalidStructureError{Found: found}
		}
	}
	return stagingDir, nil
}

// RewritePath maps a path relative to the archive source root onto the
// install layout: every lib64 segment becomes lib.
func RewritePath(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, p := range parts {
		if p == "lib64" {
			parts[i] = "lib"
		}
	}
	return filepath.FromSlash(strings.Join(parts, "/"))
}
