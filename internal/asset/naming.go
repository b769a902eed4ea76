package asset

import (
	"crypto/md5" //nolint:gosec // names only, not a security boundary
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// maxExtensionLen is the longest accepted extension, dot included.
// Longer suffixes are usually part of a slug such as "photo.final-edit".
const maxExtensionLen = 5

// NormalizeURL turns a protocol-relative reference into an https URL.
// Other values are returned unchanged.
func NormalizeURL(raw string) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// Extension returns the extension of the URL path, dot included.
// The query string and fragment are ignored. When the path has no
// extension, or the extension is longer than four characters after the
// dot, fallback is returned.
func Extension(rawURL, fallback string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.EscapedPath()
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	base := path.Base(p)
	ext := path.Ext(base)
	if len(ext) < 2 || ext == base || len(ext) > maxExtensionLen {
		return fallback
	}
	return ext
}

// Filename returns the local file name for rawURL: the md5 hex digest of
// the normalized URL followed by its extension.
func Filename(rawURL, fallbackExt string) string {
	normalized := NormalizeURL(rawURL)
	sum := md5.Sum([]byte(normalized)) //nolint:gosec // names only
	return hex.EncodeToString(sum[:]) + Extension(normalized, fallbackExt)
}
