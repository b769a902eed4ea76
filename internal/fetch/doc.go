// Package fetch builds the HTTP clients used to talk to the legacy site and
// its CDN, and retrieves single pages.
//
// Clients created by NewHTTPClient inject a User-Agent, an optional cookie
// and custom headers into every request. Certificate verification can be
// disabled for a short list of hosts only; requests to any other host keep
// full verification. An optional SOCKS5 proxy can carry all traffic.
//
// Page retrieves raw HTML over HTTP. Render loads the page in headless
// Chrome instead, for pages whose markup is assembled by scripts.
package fetch
