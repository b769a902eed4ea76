// Package database provides the SQLite run ledger of sitemirror.
//
// The Ledger stores one row per localize run and one row per asset the
// run tried to localize, including failures with their error message.
// The history command reads it to list past runs and the assets that
// still need attention.
//
// SQLite is used through modernc.org/sqlite, which is CGO-free. The
// database lives in the XDG data directory by default.
package database
