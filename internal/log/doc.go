// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Pages exported from a hosted site builder are sometimes only reachable with
// a session cookie, and asset URLs can carry signed query parameters. The
// SecureHandler keeps those out of log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (tokens, keys)
//   - Credentials embedded in URLs and sensitive query parameters
//
// Even in verbose mode, sensitive values are masked.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Debug("request sent",
//	    "cookie", "session=abc123", // logged as ***REDACTED***
//	    "url", "https://user:pw@cdn.example/x.jpg", // credentials removed
//	)
//
//	slog.SetDefault(logger)
package log
