package asset

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://cdn.example/x.jpg", NormalizeURL("//cdn.example/x.jpg"))
	assert.Equal(t, "http://cdn.example/x.jpg", NormalizeURL("http://cdn.example/x.jpg"))
	assert.Equal(t, "/s/file.pdf", NormalizeURL("/s/file.pdf"))
}

func TestExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example/x.png", ".png"},
		{"https://cdn.example/x.jpeg", ".jpeg"},
		{"https://cdn.example/x.PNG", ".PNG"},
		{"https://cdn.example/x", ".jpg"},
		{"https://cdn.example/dir.v2/x", ".jpg"},
		{"https://cdn.example/x.final-edit", ".jpg"},
		{"https://cdn.example/x.webpx", ".jpg"},
		{"https://cdn.example/x.png?format=1500w", ".png"},
		{"https://cdn.example/x?name=a.png", ".jpg"},
		{"https://cdn.example/.hidden", ".jpg"},
		{"https://cdn.example/x.", ".jpg"},
		{"https://cdn.example/", ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Extension(tt.url, ".jpg"))
		})
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example/x.jpg", "4bb4134b84c5fc2351ae947db6098115.jpg"},
		{"//cdn.example/x.jpg", "4bb4134b84c5fc2351ae947db6098115.jpg"},
		{
			"https://images.squarespace-cdn.com/content/v1/abc/photo.png?format=1500w",
			"d4c3822c277c936e8b6d647868ff9323.png",
		},
		{"https://www.thlarsen.com/s/resume.pdf", "be6604238301d48f625058b940f27a20.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Filename(tt.url, ".jpg"))
		})
	}

	t.Run("fallback extension is configurable", func(t *testing.T) {
		t.Parallel()
		assert.True(t, strings.HasSuffix(Filename("https://cdn.example/x", ".bin"), ".bin"))
	})
}

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/photo.png", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("User-Agent") != "Mozilla/5.0" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("PNGDATA"))
	})
	mux.HandleFunc("/large.jpg", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
	})
	mux.HandleFunc("/missing.jpg", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.NotFound(w, nil)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// uaTransport sets the User-Agent the way fetch.NewHTTPClient does.
type uaTransport struct{}

func (uaTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	clone := r.Clone(r.Context())
	clone.Header.Set("User-Agent", "Mozilla/5.0")
	return http.DefaultTransport.RoundTrip(clone)
}

func uaClient() *http.Client {
	return &http.Client{Transport: uaTransport{}, Timeout: 5 * time.Second}
}

func TestHTTPDownloader_Download(t *testing.T) {
	t.Parallel()

	t.Run("downloads then serves from the file system", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := newTestServer(t, &hits)
		dir := filepath.Join(t.TempDir(), "assets", "images")

		var progress bytes.Buffer
		d := NewHTTPDownloader(uaClient(), WithProgress(&progress))

		first, err := d.Download(t.Context(), srv.URL+"/photo.png", dir)
		require.NoError(t, err)
		assert.False(t, first.Cached)
		assert.Equal(t, Filename(srv.URL+"/photo.png", ".jpg"), first.Filename)
		assert.Equal(t, int64(7), first.Bytes)
		assert.Contains(t, progress.String(), "Downloading "+srv.URL+"/photo.png to ")

		data, err := os.ReadFile(filepath.Join(dir, first.Filename))
		require.NoError(t, err)
		assert.Equal(t, "PNGDATA", string(data))

		second, err := d.Download(t.Context(), srv.URL+"/photo.png", dir)
		require.NoError(t, err)
		assert.True(t, second.Cached)
		assert.Equal(t, first.Filename, second.Filename)
		assert.Equal(t, int32(1), hits.Load(), "existing file must not be fetched again")
	})

	t.Run("existing file skips the network entirely", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		url := "https://unreachable.invalid/a.gif"
		name := Filename(url, ".jpg")
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("GIF"), 0o600))

		d := NewHTTPDownloader(&http.Client{Transport: failingTransport{}})
		res, err := d.Download(t.Context(), url, dir)
		require.NoError(t, err)
		assert.True(t, res.Cached)
		assert.Equal(t, name, res.Filename)
	})

	t.Run("non-2xx leaves nothing behind", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := newTestServer(t, &hits)
		dir := t.TempDir()

		d := NewHTTPDownloader(uaClient())
		_, err := d.Download(t.Context(), srv.URL+"/missing.jpg", dir)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrUnexpectedStatus)

		var ae *Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, http.StatusNotFound, ae.StatusCode)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("oversized body is discarded", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := newTestServer(t, &hits)
		dir := t.TempDir()

		d := NewHTTPDownloader(uaClient(), WithMaxSize(16))
		_, err := d.Download(t.Context(), srv.URL+"/large.jpg", dir)
		require.ErrorIs(t, err, ErrTooLarge)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "no partial file may remain")
	})

	t.Run("transport failure is an *Error", func(t *testing.T) {
		t.Parallel()

		d := NewHTTPDownloader(&http.Client{Transport: failingTransport{}})
		_, err := d.Download(t.Context(), "//cdn.example/x.jpg", t.TempDir())
		var ae *Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "https://cdn.example/x.jpg", ae.URL)
		assert.Equal(t, "get", ae.Op)
	})
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, os.ErrDeadlineExceeded
}
