// Package asset mirrors remote images and files into local directories.
//
// Every asset is stored under a name derived from its URL alone: the md5
// digest of the normalized URL followed by the extension of the URL path.
// The same URL therefore always maps to the same file, and a file that
// already exists is never fetched again. The file system is the only cache.
package asset
