package binary

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/wasmedge/wasmedgeup/internal/logging"
)

const writeBufferSize = 32 << 10

// Downloader handles HTTP downloads with retry logic
type Downloader struct {
	client      *http.Client
	userAgent   string
	retries     int
	baseBackoff time.Duration
	logger      logging.Logger
}

// NewDownloader creates a new downloader
func NewDownloader(opts Options) *Downloader {
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	retries := opts.Retries
	switch {
	case retries == 0:
		retries = DefaultRetries
	case retries < 0:
		retries = 0
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &Downloader{
		client: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Release assets redirect to a CDN; cap the chain.
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent:   userAgent,
		retries:     retries,
		baseBackoff: time.Second,
		logger:      logging.OrNop(opts.Logger),
	}
}

// Client returns the HTTP client, so other components share its timeouts.
func (d *Downloader) Client() *http.Client {
	return d.client
}

// UserAgent returns the User-Agent header value sent with requests.
func (d *Downloader) UserAgent() string {
	return d.userAgent
}

// DownloadToFile downloads a URL to a specific file path
func (d *Downloader) DownloadToFile(ctx context.Context, rawURL, destPath string, progress ProgressFunc) error {
	return d.withRetries(ctx, rawURL, func() error {
		return d.downloadOnce(ctx, rawURL, destPath, progress)
	})
}

// FetchChecksum downloads the manifest at manifestURL and returns the
// digest listed for asset. A missing manifest is a ChecksumNotFoundError.
func (d *Downloader) FetchChecksum(ctx context.Context, manifestURL, version, asset string) (string, error) {
	var sum string
	err := d.withRetries(ctx, manifestURL, func() error {
		resp, err := d.get(ctx, manifestURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		sum, err = ParseManifest(resp.Body, asset)
		return err
	})

	var reqErr *RequestFailedError
	if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
		return "", &ChecksumNotFoundError{Version: version, Asset: asset}
	}
	var notFound *ChecksumNotFoundError
	if errors.As(err, &notFound) {
		notFound.Version = version
		return "", notFound
	}
	if err != nil {
		return "", err
	}
	return sum, nil
}

// withRetries runs attempt until it succeeds, returns a non-retryable
// error, or the retry budget is spent.
func (d *Downloader) withRetries(ctx context.Context, rawURL string, attempt func() error) error {
	var lastErr error

	for i := 0; i <= d.retries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if i > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := d.baseBackoff * time.Duration(1<<uint(i-1))
			d.logger.Debug("retrying download", "url", rawURL, "attempt", i+1, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		var reqErr *RequestFailedError
		if !errors.As(err, &reqErr) || !reqErr.retryable() {
			return err
		}
	}

	return lastErr
}

// get issues a GET and converts transport failures and non-200 statuses
// into RequestFailedError. The caller closes the body.
func (d *Downloader) get(ctx context.Context, rawURL string) (*http.Response, error) {
	resource := resourceName(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &RequestFailedError{Resource: resource, URL: rawURL, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &RequestFailedError{Resource: resource, URL: rawURL, StatusCode: resp.StatusCode}
	}

	return resp, nil
}

// downloadOnce performs a single download attempt
func (d *Downloader) downloadOnce(ctx context.Context, rawURL, destPath string, progress ProgressFunc) error {
	resp, err := d.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	var body io.Reader = resp.Body
	if progress != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, report: progress}
		progress(0, resp.ContentLength)
	}

	w := bufio.NewWriterSize(tmpFile, writeBufferSize)
	if _, err := io.Copy(w, body); err != nil {
		return &RequestFailedError{Resource: resourceName(rawURL), URL: rawURL, Err: fmt.Errorf("copy response body: %w", err)}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false
	return nil
}

type progressReader struct {
	r       io.Reader
	written int64
	total   int64
	report  ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		p.report(p.written, p.total)
	}
	return n, err
}

// resourceName is the last path element of a URL, used in error messages.
func resourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return rawURL
	}
	return path.Base(u.Path)
}
