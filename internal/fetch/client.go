package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// maxRedirects bounds redirect chains.
const maxRedirects = 10

// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// Options configures the HTTP client returned by NewHTTPClient.
type Options struct {
	// Timeout bounds each request including reading the body.
	Timeout time.Duration

	// UserAgent is set on every request.
	UserAgent string

	// Cookie is a raw cookie string (e.g., "session_id=abc123") sent with every request.
	Cookie string

	// Headers are set on every request.
	Headers map[string]string

	// InsecureHosts lists host names for which certificate verification is
	// disabled. Matching ignores case and port.
	InsecureHosts []string

	// ProxyAddress routes all connections through a SOCKS5 proxy when set.
	ProxyAddress string
}

// NewHTTPClient creates an HTTP client configured from opts.
//
// Two transports are built: one with certificate verification and one
// without. Each request is routed by host, so an insecure host that
// redirects to a CDN still gets a verified connection to the CDN.
func NewHTTPClient(opts Options) (*http.Client, error) {
	dial, err := dialContext(opts.ProxyAddress)
	if err != nil {
		return nil, err
	}

	secure := newTransport(dial, false)
	insecure := newTransport(dial, true)

	hosts := make(map[string]bool, len(opts.InsecureHosts))
	for _, h := range opts.InsecureHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts[h] = true
		}
	}

	var rt http.RoundTripper = &hostRouter{
		secure:   secure,
		insecure: insecure,
		hosts:    hosts,
	}
	rt = &headerInjectingTransport{
		base:      rt,
		userAgent: opts.UserAgent,
		cookie:    opts.Cookie,
		headers:   opts.Headers,
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// dialContext returns the dial function for the transports: a plain dialer,
// or a SOCKS5 dialer when proxyAddress is set.
func dialContext(proxyAddress string) (dialFunc, error) {
	direct := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	if proxyAddress == "" {
		return direct.DialContext, nil
	}

	host, port, err := net.SplitHostPort(proxyAddress)
	if err != nil || host == "" || port == "" {
		return nil, ErrInvalidProxyAddress
	}

	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}

func newTransport(dial dialFunc, skipVerify bool) *http.Transport {
	return &http.Transport{
		Proxy:       nil,
		DialContext: dial,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: skipVerify, //nolint:gosec // only used for hosts listed in Options.InsecureHosts
			MinVersion:         tls.VersionTLS12,
		},
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// hostRouter sends each request through the insecure transport only when
// its host is listed.
type hostRouter struct {
	secure   http.RoundTripper
	insecure http.RoundTripper
	hosts    map[string]bool
}

// RoundTrip implements http.RoundTripper.
func (r *hostRouter) RoundTrip(req *http.Request) (*http.Response, error) {
	if r.hosts[strings.ToLower(req.URL.Hostname())] {
		return r.insecure.RoundTrip(req)
	}
	return r.secure.RoundTrip(req)
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// the User-Agent, custom headers and cookies into every request.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	cookie    string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
