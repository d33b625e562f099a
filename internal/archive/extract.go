package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

type format int

const (
	formatTarGz format = iota
	formatZip
)

func detectFormat(archivePath string) (format, error) {
	name := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return formatTarGz, nil
	case strings.HasSuffix(name, ".zip"):
		return formatZip, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(archivePath))
	}
}

// Extract unpacks a .tar.gz, .tgz or .zip archive into destDir, creating it
// if needed.
func Extract(archivePath, destDir string) error {
	f, err := detectFormat(archivePath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	if f == formatZip {
		return extractZip(archivePath, destDir)
	}
	return extractTarGz(archivePath, destDir)
}

// ListEntries returns the member names of an archive in archive order.
func ListEntries(archivePath string) ([]string, error) {
	f, err := detectFormat(archivePath)
	if err != nil {
		return nil, err
	}

	var names []string
	if f == formatZip {
		r, err := zip.OpenReader(archivePath)
		if err != nil {
			return nil, fmt.Errorf("open zip: %w", err)
		}
		defer r.Close()
		for _, zf := range r.File {
			names = append(names, zf.Name)
		}
		return names, nil
	}

	err = walkTar(archivePath, func(header *tar.Header, _ io.Reader) error {
		names = append(names, header.Name)
		return nil
	})
	return names, err
}

func walkTar(archivePath string, fn func(*tar.Header, io.Reader) error) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		if err := fn(header, tarReader); err != nil {
			return err
		}
	}
}

func extractTarGz(archivePath, destDir string) error {
	// Links are created after all regular members so that a link can never
	// redirect a later file write.
	var links []*tar.Header

	err := walkTar(archivePath, func(header *tar.Header, r io.Reader) error {
		target, err := memberPath(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			return writeFile(target, r, os.FileMode(header.Mode).Perm())
		case tar.TypeSymlink:
			if err := checkLinkTarget(destDir, header.Name, header.Linkname); err != nil {
				return err
			}
			links = append(links, header)
		default:
			// Skip other types (hard links, devices, fifos)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, header := range links {
		target, _ := memberPath(destDir, header.Name)
		if err := createLink(target, header.Linkname); err != nil {
			return err
		}
	}
	return nil
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, zf := range r.File {
		target, err := memberPath(destDir, zf.Name)
		if err != nil {
			return err
		}

		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
		case mode&os.ModeSymlink != 0:
			linkTarget, err := readZipMember(zf)
			if err != nil {
				return err
			}
			if err := checkLinkTarget(destDir, zf.Name, linkTarget); err != nil {
				return err
			}
			if err := createLink(target, linkTarget); err != nil {
				return err
			}
		default:
			rc, err := zf.Open()
			if err != nil {
				return fmt.Errorf("open zip member %s: %w", zf.Name, err)
			}
			perm := mode.Perm()
			if perm == 0 {
				perm = 0644
			}
			err = writeFile(target, rc, perm)
			rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func readZipMember(zf *zip.File) (string, error) {
	rc, err := zf.Open()
	if err != nil {
		return "", fmt.Errorf("open zip member %s: %w", zf.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read zip member %s: %w", zf.Name, err)
	}
	return string(b), nil
}

// memberPath joins name onto destDir and rejects anything escaping it.
func memberPath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if !within(destDir, target) {
		return "", &IllegalPathError{Name: name}
	}
	return target, nil
}

func checkLinkTarget(destDir, name, linkname string) error {
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return &IllegalPathError{Name: name, Target: linkname}
	}
	resolved := filepath.Join(filepath.Dir(filepath.Join(destDir, name)), linkname)
	if !within(destDir, resolved) {
		return &IllegalPathError{Name: name, Target: linkname}
	}
	return nil
}

func within(root, path string) bool {
	root = filepath.Clean(root)
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}
	// A previous partial extraction may have left a link here.
	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("remove stale link %s: %w", target, err)
		}
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	// OpenFile honours umask; restore the archived mode.
	return os.Chmod(target, perm)
}

// createLink replaces whatever is at path with a symlink to target.
func createLink(path, target string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}
	if info, err := os.Lstat(path); err == nil {
		if info.IsDir() {
			err = os.RemoveAll(path)
		} else {
			err = os.Remove(path)
		}
		if err != nil {
			return fmt.Errorf("remove existing %s: %w", path, err)
		}
	}
	return Symlink(target, path)
}

// Symlink creates path pointing at target. A refusal by the OS is reported
// as SymlinkPermissionError.
func Symlink(target, path string) error {
	if err := os.Symlink(target, path); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return &SymlinkPermissionError{Path: path, Target: target, Err: err}
		}
		return fmt.Errorf("create symlink %s: %w", path, err)
	}
	return nil
}

// sortedNames returns the directory entry names of dir, sorted.
func sortedNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
