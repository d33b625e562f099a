package binary

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

const hashBufferSize = 8 << 10

// VerifyFile hashes f from the start and compares the digest with expected.
// The read offset is rewound to 0 afterwards, whatever the outcome, so the
// same handle can be passed on to extraction.
func VerifyFile(f *os.File, expected string) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", f.Name(), err)
	}

	actual, hashErr := calculateSHA256(f)

	if _, err := f.Seek(0, io.SeekStart); err != nil && hashErr == nil {
		return fmt.Errorf("rewind %s: %w", f.Name(), err)
	}
	if hashErr != nil {
		return fmt.Errorf("calculate checksum: %w", hashErr)
	}

	expected = strings.ToLower(strings.TrimSpace(expected))
	if actual != expected {
		return &ChecksumMismatchError{Path: f.Name(), Expected: expected, Actual: actual}
	}
	return nil
}

// calculateSHA256 returns the lowercase hex SHA-256 of r, read in fixed
// 8 KiB chunks.
func calculateSHA256(r io.Reader) (string, error) {
	hasher := sha256.New()
	buf := make([]byte, hashBufferSize)
	// Hide WriterTo so the fixed buffer is actually used.
	if _, err := io.CopyBuffer(hasher, struct{ io.Reader }{r}, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ParseManifest finds the checksum for asset in a manifest.
// Format: "abc123def456  filename.tar.gz", one pair per line. Lines that do
// not hold exactly two fields are ignored; the first match wins.
func ParseManifest(r io.Reader, asset string) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) != 2 {
			continue
		}
		if parts[1] == asset {
			return strings.ToLower(parts[0]), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum manifest: %w", err)
	}

	return "", &ChecksumNotFoundError{Asset: asset}
}
