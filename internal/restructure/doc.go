// Package restructure converts the flat portfolio layout of an exported
// site into directory style URLs.
//
// Each portfolio/<project>.html becomes portfolio/<project>/index.html.
// Because the page moves one directory deeper, its references to the
// asset directory and to the root pages gain a "../", and its links to
// sibling projects become "../<project>/". The root pages are updated to
// link to the new project directories, and their extensionless navigation
// links ("/portfolio", "/resume", "/") are pointed at the page files.
//
// All rewrites are literal substitutions driven by the configured project
// list; no link discovery takes place.
package restructure
