package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultMaxSize caps a single download.
const DefaultMaxSize = 100 * 1024 * 1024

// Download failure causes, checked with errors.Is on an *Error.
var (
	// ErrUnexpectedStatus is returned for responses outside 2xx.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrTooLarge is returned when the body exceeds the size limit.
	ErrTooLarge = errors.New("asset exceeds size limit")
)

// Error describes a failed download of URL. Op names the step that failed.
type Error struct {
	URL        string
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %v (%d)", e.Op, e.URL, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result describes a localized asset.
type Result struct {
	// Filename is the name inside the target directory.
	Filename string

	// Path is the directory joined with Filename.
	Path string

	// Bytes is the size of the local file.
	Bytes int64

	// Cached reports that the file already existed and no request was made.
	Cached bool
}

// Downloader retrieves a remote asset and saves it into dir. It is a no-op
// when the destination file already exists.
type Downloader interface {
	Download(ctx context.Context, rawURL, dir string) (Result, error)
}

// HTTPDownloader is the Downloader used by the localize pass.
type HTTPDownloader struct {
	client     *http.Client
	defaultExt string
	maxSize    int64
	progress   io.Writer
	logger     *slog.Logger
}

// Option configures an HTTPDownloader.
type Option func(*HTTPDownloader)

// WithDefaultExtension sets the extension used when a URL has none.
func WithDefaultExtension(ext string) Option {
	return func(d *HTTPDownloader) {
		d.defaultExt = ext
	}
}

// WithMaxSize sets the size limit of a single download.
func WithMaxSize(n int64) Option {
	return func(d *HTTPDownloader) {
		d.maxSize = n
	}
}

// WithProgress writes a "Downloading ..." line to w before each request.
func WithProgress(w io.Writer) Option {
	return func(d *HTTPDownloader) {
		d.progress = w
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(d *HTTPDownloader) {
		d.logger = logger
	}
}

// NewHTTPDownloader creates a downloader that fetches with client.
// The client carries the User-Agent, timeout and TLS policy.
func NewHTTPDownloader(client *http.Client, opts ...Option) *HTTPDownloader {
	d := &HTTPDownloader{
		client:     client,
		defaultExt: ".jpg",
		maxSize:    DefaultMaxSize,
		progress:   io.Discard,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download implements Downloader.
//
// The body is written to a temporary file in dir and renamed into place
// once complete, so an interrupted download never leaves a file under the
// final name.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL, dir string) (Result, error) {
	normalized := NormalizeURL(rawURL)
	filename := Filename(normalized, d.defaultExt)
	dest := filepath.Join(dir, filename)

	if info, err := os.Stat(dest); err == nil {
		d.logger.Debug("asset already present", "url", normalized, "path", dest)
		return Result{Filename: filename, Path: dest, Bytes: info.Size(), Cached: true}, nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return Result{}, &Error{URL: normalized, Op: "mkdir", Err: err}
	}

	_, _ = fmt.Fprintf(d.progress, "Downloading %s to %s...\n", normalized, dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		return Result{}, &Error{URL: normalized, Op: "request", Err: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{}, &Error{URL: normalized, Op: "get", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &Error{URL: normalized, Op: "get", StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}

	n, err := d.writeAtomically(dir, dest, filename, resp.Body)
	if err != nil {
		return Result{}, &Error{URL: normalized, Op: "write", Err: err}
	}

	d.logger.Debug("asset downloaded", "url", normalized, "path", dest, "bytes", n)
	return Result{Filename: filename, Path: dest, Bytes: n}, nil
}

func (d *HTTPDownloader) writeAtomically(dir, dest, filename string, body io.Reader) (n int64, err error) {
	tmp, err := os.CreateTemp(dir, filename+".*.part")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err = io.Copy(tmp, io.LimitReader(body, d.maxSize+1))
	if err != nil {
		return 0, err
	}
	if n > d.maxSize {
		return 0, ErrTooLarge
	}
	if err = tmp.Close(); err != nil {
		return 0, err
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return 0, err
	}
	return n, nil
}
