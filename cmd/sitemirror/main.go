// Package main provides the entry point for the sitemirror CLI.
//
// sitemirror migrates a portfolio site exported from a hosted site builder
// into a self-contained static site.
//
// Usage:
//
//	sitemirror localize --root ./site
//	sitemirror restructure --root ./site
//	sitemirror fetch <url> <output>
//
// See --help for all available options.
package main

// main is the entry point for sitemirror.
func main() {
	Execute()
}
