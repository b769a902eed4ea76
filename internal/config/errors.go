package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.Validate() so that
// callers can use errors.Is() to tell them apart.
var (
	// ErrNoRoot is returned when no site root directory is specified.
	ErrNoRoot = errors.New("no site root specified: use --root")

	// ErrRootNotDirectory is returned when the site root exists but is not a directory.
	ErrRootNotDirectory = errors.New("site root is not a directory")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrUnknownMatcher is returned when --matcher names an unsupported tag matcher.
	ErrUnknownMatcher = errors.New("unknown matcher: must be \"regex\" or \"tokenizer\"")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy is not in host:port form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

	// ErrEmptyUserAgent is returned when the User-Agent header would be blank.
	ErrEmptyUserAgent = errors.New("user agent must not be empty")

	// ErrInvalidSiteConfig wraps validation failures of the site section
	// of the configuration file.
	ErrInvalidSiteConfig = errors.New("invalid site configuration")
)
