package shell

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RCFileExists checks if the RC file exists
func RCFileExists(rcPath string) (bool, error) {
	info, err := os.Stat(rcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &RCFileError{
			Path:    rcPath,
			Message: "failed to stat file",
			Cause:   err,
		}
	}

	if !info.Mode().IsRegular() {
		return false, &RCFileError{
			Path:    rcPath,
			Message: "not a regular file",
		}
	}

	return true, nil
}

// HasLine reports whether rcPath contains line, ignoring surrounding
// whitespace. A missing file has no lines.
func HasLine(rcPath, line string) (bool, error) {
	file, err := os.Open(rcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &RCFileError{
			Path:    rcPath,
			Message: "failed to open file",
			Cause:   err,
		}
	}
	defer file.Close()

	want := strings.TrimSpace(line)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == want {
			return true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return false, &RCFileError{
			Path:    rcPath,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	return false, nil
}

// AppendLine adds line to the end of rcPath unless it is already present,
// creating the file and its parent directory as needed. The rewrite is
// atomic and keeps the file's mode. It reports whether the file changed.
func AppendLine(rcPath, line string) (bool, error) {
	rcPath = followLink(rcPath)
	present, err := HasLine(rcPath, line)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}

	existing, perm, err := readRC(rcPath)
	if err != nil {
		return false, err
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(line)
	buf.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(rcPath), 0755); err != nil {
		return false, &RCFileError{
			Path:    rcPath,
			Message: "failed to create parent directory",
			Cause:   err,
		}
	}
	if err := writeFileAtomic(rcPath, buf.Bytes(), perm); err != nil {
		return false, &RCFileError{
			Path:    rcPath,
			Message: "failed to write file",
			Cause:   err,
		}
	}
	return true, nil
}

// AppendLine and RemoveLine write through symlinked startup files.
func followLink(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

// RemoveLine deletes every line of rcPath equal to line, ignoring
// surrounding whitespace. A missing file is not an error. It reports
// whether the file changed.
func RemoveLine(rcPath, line string) (bool, error) {
	rcPath = followLink(rcPath)
	present, err := HasLine(rcPath, line)
	if err != nil || !present {
		return false, err
	}

	existing, perm, err := readRC(rcPath)
	if err != nil {
		return false, err
	}

	want := strings.TrimSpace(line)
	var buf bytes.Buffer
	for _, l := range strings.SplitAfter(string(existing), "\n") {
		if strings.TrimSpace(l) == want {
			continue
		}
		buf.WriteString(l)
	}

	if err := writeFileAtomic(rcPath, buf.Bytes(), perm); err != nil {
		return false, &RCFileError{
			Path:    rcPath,
			Message: "failed to write file",
			Cause:   err,
		}
	}
	return true, nil
}

func readRC(rcPath string) ([]byte, os.FileMode, error) {
	exists, err := RCFileExists(rcPath)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0644, nil
	}

	info, err := os.Stat(rcPath)
	if err != nil {
		return nil, 0, &RCFileError{Path: rcPath, Message: "failed to stat file", Cause: err}
	}
	content, err := os.ReadFile(rcPath)
	if err != nil {
		return nil, 0, &RCFileError{
			Path:    rcPath,
			Message: "failed to read existing file",
			Cause:   err,
		}
	}
	return content, info.Mode().Perm(), nil
}
