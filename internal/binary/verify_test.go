package binary

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	testDataSum      = "916f0027a575074ce72a331777c3478d6513f786a591bd892da1a577bf2335f9"
	differentDataSum = "608a068b33d18be838bcb07bed01e35521d30840fa24db09192e67bfd186e621"
)

func writeTempFile(t *testing.T, content string) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.tar.gz")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestCalculateSHA256(t *testing.T) {
	got, err := calculateSHA256(strings.NewReader("test data"))
	if err != nil {
		t.Fatalf("calculateSHA256: %v", err)
	}
	if got != testDataSum {
		t.Errorf("got %s, want %s", got, testDataSum)
	}
}

func TestVerifyFile(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		expected     string
		wantMismatch bool
	}{
		{
			name:     "matching_checksum",
			content:  "test data",
			expected: testDataSum,
		},
		{
			name:     "uppercase_expected",
			content:  "test data",
			expected: strings.ToUpper(testDataSum),
		},
		{
			name:         "mismatch",
			content:      "different data",
			expected:     testDataSum,
			wantMismatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := writeTempFile(t, tt.content)

			err := VerifyFile(f, tt.expected)
			if tt.wantMismatch {
				var mismatch *ChecksumMismatchError
				if !errors.As(err, &mismatch) {
					t.Fatalf("expected ChecksumMismatchError, got %v", err)
				}
				if mismatch.Actual != differentDataSum {
					t.Errorf("actual = %s, want %s", mismatch.Actual, differentDataSum)
				}
				if mismatch.Expected != testDataSum {
					t.Errorf("expected = %s", mismatch.Expected)
				}
				if _, statErr := os.Stat(f.Name()); statErr != nil {
					t.Error("mismatching file should be kept")
				}
			} else if err != nil {
				t.Fatalf("VerifyFile: %v", err)
			}

			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				t.Fatal(err)
			}
			if pos != 0 {
				t.Errorf("offset after verify = %d, want 0", pos)
			}
		})
	}
}

func TestVerifyFileIgnoresPriorOffset(t *testing.T) {
	f := writeTempFile(t, "test data")
	if _, err := f.Seek(4, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if err := VerifyFile(f, testDataSum); err != nil {
		t.Fatalf("VerifyFile: %v", err)
	}
}

func TestParseManifest(t *testing.T) {
	manifest := strings.Join([]string{
		"abc123  WasmEdge-0.14.1-darwin_arm64.tar.gz",
		"malformed line with extra fields here",
		"",
		"DEF456  WasmEdge-0.14.1-manylinux2014_x86_64.tar.gz",
		"789aaa  WasmEdge-0.14.1-manylinux2014_x86_64.tar.gz.sig",
	}, "\n")

	tests := []struct {
		name     string
		asset    string
		want     string
		notFound bool
	}{
		{name: "first_entry", asset: "WasmEdge-0.14.1-darwin_arm64.tar.gz", want: "abc123"},
		{name: "lowercases_digest", asset: "WasmEdge-0.14.1-manylinux2014_x86_64.tar.gz", want: "def456"},
		{name: "exact_name_only", asset: "WasmEdge-0.14.1-manylinux2014_x86_64", notFound: true},
		{name: "absent", asset: "WasmEdge-0.14.1-windows.zip", notFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseManifest(strings.NewReader(manifest), tt.asset)
			if tt.notFound {
				var notFound *ChecksumNotFoundError
				if !errors.As(err, &notFound) {
					t.Fatalf("expected ChecksumNotFoundError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseManifest: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
