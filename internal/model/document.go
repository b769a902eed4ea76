package model

import "strings"

// Document is an HTML page of the exported site held in memory while a
// pass rewrites it.
type Document struct {
	// Path is the location on disk.
	Path string

	// RelPath is the slash separated path relative to the site root,
	// e.g. "portfolio/scorpion.html". It determines how many "../"
	// segments local references need.
	RelPath string

	// Content is the current markup. Steps replace it as they rewrite tags.
	Content string

	original string
}

// NewDocument creates a Document whose original content is content.
func NewDocument(path, relPath, content string) *Document {
	return &Document{
		Path:     path,
		RelPath:  relPath,
		Content:  content,
		original: content,
	}
}

// Changed reports whether any step modified the content.
func (d *Document) Changed() bool {
	return d.Content != d.original
}

// Depth returns the number of directory levels between the site root and
// the document: 0 for "index.html", 1 for "portfolio/x.html".
func (d *Document) Depth() int {
	return strings.Count(strings.Trim(d.RelPath, "/"), "/")
}
