package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyTree merges src into dst. Symlinks are recreated with their original
// target rather than followed, existing entries at the destination are
// overwritten, and lib64 path segments are rewritten to lib.
func CopyTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, RewritePath(rel))

		switch {
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("read link %s: %w", path, err)
			}
			return createLink(target, link)

		case d.IsDir():
			// A link at the destination would redirect the copy.
			if info, err := os.Lstat(target); err == nil && !info.IsDir() {
				if err := os.Remove(target); err != nil {
					return fmt.Errorf("remove %s: %w", target, err)
				}
			}
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			return nil

		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return copyFile(path, target, info.Mode().Perm())

		default:
			return nil
		}
	})
}

// CopyFile copies a single regular file, keeping its mode and replacing
// whatever is at dst.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	return copyFile(src, dst, info.Mode().Perm())
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if info, err := os.Lstat(dst); err == nil && info.IsDir() {
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("remove %s: %w", dst, err)
		}
	}
	return writeFile(dst, in, perm)
}
