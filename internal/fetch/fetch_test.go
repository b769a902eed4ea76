package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient_InjectsHeaders(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		_, _ = io.WriteString(w, "ok")
	}))
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(Options{
		Timeout:   5 * time.Second,
		UserAgent: "Mozilla/5.0",
		Cookie:    "session=abc",
		Headers:   map[string]string{"Accept-Language": "en"},
	})
	require.NoError(t, err)

	body, err := Page(t.Context(), client, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	got := <-headers
	assert.Equal(t, "Mozilla/5.0", got.Get("User-Agent"))
	assert.Equal(t, "session=abc", got.Get("Cookie"))
	assert.Equal(t, "en", got.Get("Accept-Language"))
}

func TestNewHTTPClient_InsecureHostScope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "legacy")
	}))
	t.Cleanup(srv.Close)

	t.Run("listed host skips verification", func(t *testing.T) {
		t.Parallel()
		client, err := NewHTTPClient(Options{Timeout: 5 * time.Second, InsecureHosts: []string{"127.0.0.1"}})
		require.NoError(t, err)

		body, err := Page(t.Context(), client, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "legacy", string(body))
	})

	t.Run("unlisted host keeps verification", func(t *testing.T) {
		t.Parallel()
		client, err := NewHTTPClient(Options{Timeout: 5 * time.Second, InsecureHosts: []string{"www.thlarsen.com"}})
		require.NoError(t, err)

		_, err = Page(t.Context(), client, srv.URL)
		require.Error(t, err)
		var fe *Error
		require.ErrorAs(t, err, &fe)
		assert.Zero(t, fe.StatusCode)
	})
}

type recordingTransport struct {
	name  string
	calls *[]string
}

func (r recordingTransport) RoundTrip(_ *http.Request) (*http.Response, error) {
	*r.calls = append(*r.calls, r.name)
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestHostRouter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.thlarsen.com/s/cv.pdf", "insecure"},
		{"https://WWW.THLARSEN.COM:443/s/cv.pdf", "insecure"},
		{"https://images.squarespace-cdn.com/a.jpg", "secure"},
		{"https://thlarsen.com/", "secure"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			var calls []string
			router := &hostRouter{
				secure:   recordingTransport{name: "secure", calls: &calls},
				insecure: recordingTransport{name: "insecure", calls: &calls},
				hosts:    map[string]bool{"www.thlarsen.com": true},
			}
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			require.NoError(t, err)

			resp, err := router.RoundTrip(req)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, []string{tt.want}, calls)
		})
	}
}

func TestHeaderInjectingTransport_AppendsCookie(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})
	tr := &headerInjectingTransport{base: base, cookie: "b=2"}

	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)
	req.Header.Set("Cookie", "a=1")

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "a=1; b=2", seen.Header.Get("Cookie"))
	assert.Equal(t, "a=1", req.Header.Get("Cookie"), "original request must not be modified")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestNewHTTPClient_InvalidProxy(t *testing.T) {
	t.Parallel()

	for _, addr := range []string{"127.0.0.1", ":9050", "socks5://127.0.0.1:9050"} {
		_, err := NewHTTPClient(Options{ProxyAddress: addr})
		assert.ErrorIs(t, err, ErrInvalidProxyAddress, addr)
	}

	_, err := NewHTTPClient(Options{ProxyAddress: "127.0.0.1:9050"})
	assert.NoError(t, err)
}

func TestPage_Errors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(Options{Timeout: 5 * time.Second})
	require.NoError(t, err)

	t.Run("non-2xx status", func(t *testing.T) {
		t.Parallel()
		_, err := Page(t.Context(), client, srv.URL+"/missing")
		var fe *Error
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, http.StatusNotFound, fe.StatusCode)
		assert.Contains(t, fe.Error(), "HTTP status 404")
	})

	t.Run("invalid URL", func(t *testing.T) {
		t.Parallel()
		_, err := Page(t.Context(), client, "not-a-url")
		var fe *Error
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "invalid URL", fe.Message)
	})

	t.Run("body over the size limit", func(t *testing.T) {
		t.Parallel()

		big := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			chunk := make([]byte, 64*1024)
			for written := 0; written <= maxPageSize; written += len(chunk) {
				if _, err := w.Write(chunk); err != nil {
					return
				}
			}
		}))
		t.Cleanup(big.Close)

		body, err := Page(t.Context(), client, big.URL)
		var fe *Error
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "page exceeds size limit", fe.Message)
		assert.Nil(t, body)
	})

	t.Run("body at the size limit", func(t *testing.T) {
		t.Parallel()

		exact := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(make([]byte, maxPageSize))
		}))
		t.Cleanup(exact.Close)

		body, err := Page(t.Context(), client, exact.URL)
		require.NoError(t, err)
		assert.Len(t, body, maxPageSize)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := Page(ctx, client, srv.URL)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "page.html")
	require.NoError(t, WriteFile(path, []byte("<html></html>")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

// fakeProxy accepts one connection and answers the greeting with reply.
func fakeProxy(t *testing.T, reply []byte) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 3)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		_, _ = conn.Write(reply)
	}()

	return ln.Addr().String()
}

func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("SOCKS5 without auth", func(t *testing.T) {
		t.Parallel()
		addr := fakeProxy(t, []byte{socks5Version, socks5AuthNone})
		assert.Equal(t, ProxyStatusOK, CheckProxy(t.Context(), addr))
	})

	t.Run("SOCKS5 requiring auth", func(t *testing.T) {
		t.Parallel()
		addr := fakeProxy(t, []byte{socks5Version, socks5AuthNoAccept})
		status := CheckProxy(t.Context(), addr)
		assert.Equal(t, ProxyStatusWrongType, status)
		assert.ErrorIs(t, status.Error(), ErrProxyNotSOCKS5)
	})

	t.Run("HTTP server", func(t *testing.T) {
		t.Parallel()
		addr := fakeProxy(t, []byte("HTTP/1.1 400 Bad Request\r\n"))
		assert.Equal(t, ProxyStatusWrongType, CheckProxy(t.Context(), addr))
	})

	t.Run("nothing listening", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		status := CheckProxy(t.Context(), addr)
		assert.Equal(t, ProxyStatusCannotConnect, status)
		assert.ErrorIs(t, status.Error(), ErrProxyCannotConnect)
	})
}

func TestProxyStatusString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "OK", ProxyStatusOK.String())
	assert.Equal(t, "timeout", ProxyStatusTimeout.String())
	assert.Equal(t, "unknown", ProxyStatus(99).String())
	assert.NoError(t, ProxyStatusOK.Error())
	assert.ErrorIs(t, ProxyStatusTimeout.Error(), ErrProxyTimeout)
}
