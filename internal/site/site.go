// Package site locates the pages of an exported site and computes the
// relative paths between a page and the site root.
package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadPattern is returned for a malformed page pattern.
var ErrBadPattern = errors.New("invalid page pattern")

// Page is an HTML file of the site.
type Page struct {
	// RelPath is slash separated and relative to the root.
	RelPath string

	// Path is the location on disk.
	Path string
}

// Enumerate returns the pages under root selected by patterns.
//
// A pattern without glob characters names a single file, which is
// included only when it exists. Other patterns are expanded with
// doublestar, so "**" matches any number of directories. Pages keep the
// order of the patterns that first matched them and appear once.
func Enumerate(root string, patterns []string) ([]Page, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var pages []Page

	add := func(rel string) {
		if seen[rel] {
			return
		}
		seen[rel] = true
		pages = append(pages, Page{RelPath: rel, Path: filepath.Join(root, filepath.FromSlash(rel))})
	}

	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}

		if !containsGlob(pattern) {
			if isRegularFile(fsys, pattern) {
				add(pattern)
			}
			continue
		}

		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if isRegularFile(fsys, m) {
				add(m)
			}
		}
	}

	return pages, nil
}

func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func isRegularFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && info.Mode().IsRegular()
}

// RelativePrefix returns the "../" segments leading from the directory of
// the page at relPath back to the site root: "" for "index.html", "../"
// for "portfolio/x.html" and "../../" for "portfolio/x/index.html".
func RelativePrefix(relPath string) string {
	rel := strings.Trim(filepath.ToSlash(relPath), "/")
	return strings.Repeat("../", strings.Count(rel, "/"))
}

// AssetPath returns the reference to write into the page at relPath for a
// file stored under assetDir, e.g. "../assets/images/<name>.jpg".
func AssetPath(relPath, assetDir, filename string) string {
	return RelativePrefix(relPath) + path.Join(filepath.ToSlash(assetDir), filename)
}
