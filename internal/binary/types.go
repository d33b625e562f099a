package binary

import (
	"fmt"
	"time"

	"github.com/wasmedge/wasmedgeup/internal/logging"
)

const (
	// DefaultConnectTimeout bounds establishing a connection.
	DefaultConnectTimeout = 15 * time.Second
	// DefaultRequestTimeout bounds a whole request, body included.
	DefaultRequestTimeout = 90 * time.Second
	// DefaultRetries is the default number of download retries
	DefaultRetries = 3
	// ProjectURL is advertised in the User-Agent header.
	ProjectURL = "https://github.com/WasmEdge/wasmedgeup"
)

// Version is the tool version reported in the User-Agent; set at build time.
var Version = "0.1.0"

// DefaultUserAgent returns the User-Agent header sent with requests.
func DefaultUserAgent() string {
	return fmt.Sprintf("wasmedgeup/%s (+%s)", Version, ProjectURL)
}

// ProgressFunc receives the number of bytes written so far and the declared
// content length, which is -1 when the server did not send one.
type ProgressFunc func(written, total int64)

// Options configures a Downloader. Zero values select the defaults.
type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// Retries is the number of extra attempts after the first; negative
	// disables retries.
	Retries   int
	UserAgent string
	Logger    logging.Logger
}

// RequestFailedError reports a network failure or a non-success status
// while fetching a named resource.
type RequestFailedError struct {
	Resource   string
	URL        string
	StatusCode int // zero for transport errors
	Err        error
}

func (e *RequestFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request for %s failed: %s returned status %d", e.Resource, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request for %s failed: %v", e.Resource, e.Err)
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

// retryable reports whether another attempt could succeed.
func (e *RequestFailedError) retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == 429
}

// ChecksumNotFoundError means the release has no manifest, or the manifest
// has no entry for the asset.
type ChecksumNotFoundError struct {
	Version string
	Asset   string
}

func (e *ChecksumNotFoundError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("checksum not found for %s", e.Asset)
	}
	return fmt.Sprintf("checksum not found for %s (version %s)", e.Asset, e.Version)
}

// ChecksumMismatchError reports a file whose digest differs from the
// manifest. The file is left in place.
type ChecksumMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s:\nactual:   %s\nexpected: %s", e.Path, e.Actual, e.Expected)
}
