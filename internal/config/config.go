package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitemirror"

	// DefaultTimeout bounds each asset download. Hosted CDNs answer quickly;
	// a stalled request is treated as a failed download rather than retried.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is sent with asset downloads. Some CDNs reject
	// requests that carry no browser-like User-Agent at all.
	DefaultUserAgent = "Mozilla/5.0"

	// DefaultFetchUserAgent is sent by the fetch command, which retrieves
	// full pages and is more likely to be served a bot page without a
	// complete desktop browser string.
	DefaultFetchUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36"

	// DefaultFetchTimeout bounds the fetch command, including headless rendering.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMatcher is the tag matcher used by the localize pass.
	DefaultMatcher = MatcherRegex

	// MatcherRegex selects the pattern based tag matcher.
	MatcherRegex = "regex"

	// MatcherTokenizer selects the HTML tokenizer based tag matcher.
	MatcherTokenizer = "tokenizer"

	// DefaultRoot is the site root used when --root is not given.
	DefaultRoot = "."
)

// Environment variables that override configuration file values.
// Command line flags take precedence over all of them.
const (
	EnvUserAgent = "SITEMIRROR_USER_AGENT"
	EnvProxy     = "SITEMIRROR_PROXY"
	EnvCookie    = "SITEMIRROR_COOKIE"
)

// Config holds all configuration options for a sitemirror run.
// It is populated from CLI flags, environment variables and the
// configuration file, then passed down explicitly; there is no global state.
type Config struct {
	// Root is the directory containing the exported site.
	// All page paths are resolved relative to it.
	Root string

	// Timeout bounds each individual asset download.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with asset downloads.
	UserAgent string

	// Matcher selects how tags are located in documents: "regex" or "tokenizer".
	Matcher string

	// InsecureHosts lists hosts whose TLS certificates are not verified.
	// Verification stays enabled for every other host.
	InsecureHosts []string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// Cookie is sent with every request when set. It overrides the cookie
	// from the configuration file.
	Cookie string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual locations.
	ConfigFilePath string

	// Site holds the site layout loaded from the configuration file,
	// or DefaultFile() when no file exists.
	Site *File

	// JSONReport enables JSON report output instead of the plain text format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of the plain text format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the run ledger database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB records every localized or failed asset in the ledger.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Root:      DefaultRoot,
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		Matcher:   DefaultMatcher,
		Site:      DefaultFile(),
		DBDir:     XDGDataDir(),
		SaveToDB:  true,
	}
}

// ApplyEnv overrides values from environment variables.
// lookup is usually os.LookupEnv; tests pass a map based function.
// Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvUserAgent); ok && strings.TrimSpace(v) != "" {
		c.UserAgent = v
	}
	if v, ok := lookup(EnvProxy); ok && strings.TrimSpace(v) != "" {
		c.ProxyAddress = v
	}
	if v, ok := lookup(EnvCookie); ok && strings.TrimSpace(v) != "" {
		c.Cookie = v
	}
}

// EffectiveInsecureHosts returns the hosts exempt from certificate
// verification: those named on the command line plus those from the
// configuration file, without duplicates.
func (c *Config) EffectiveInsecureHosts() []string {
	seen := make(map[string]bool)
	var hosts []string
	add := func(list []string) {
		for _, h := range list {
			h = strings.ToLower(strings.TrimSpace(h))
			if h == "" || seen[h] {
				continue
			}
			seen[h] = true
			hosts = append(hosts, h)
		}
	}
	add(c.InsecureHosts)
	if c.Site != nil {
		add(c.Site.Site.InsecureHosts)
	}
	return hosts
}

// EffectiveCookie returns the cookie to send: the explicit one if set,
// otherwise the one from the configuration file.
func (c *Config) EffectiveCookie() string {
	if c.Cookie != "" {
		return c.Cookie
	}
	if c.Site != nil {
		return c.Site.Site.Cookie
	}
	return ""
}

// XDGDataDir returns the XDG data directory for sitemirror.
// On Linux: ~/.local/share/sitemirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitemirror.
// On Linux: ~/.config/sitemirror
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return ErrNoRoot
	}
	if info, err := os.Stat(c.Root); err == nil && !info.IsDir() {
		return ErrRootNotDirectory
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if strings.TrimSpace(c.UserAgent) == "" {
		return ErrEmptyUserAgent
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	switch c.Matcher {
	case MatcherRegex, MatcherTokenizer:
	default:
		return ErrUnknownMatcher
	}

	if c.ProxyAddress != "" {
		host, port, err := net.SplitHostPort(c.ProxyAddress)
		if err != nil || host == "" || port == "" {
			return ErrInvalidProxyAddress
		}
	}

	if c.Site != nil {
		if err := c.Site.Validate(); err != nil {
			return err
		}
	}

	return nil
}
