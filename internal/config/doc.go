// Package config provides configuration structures and utilities for sitemirror.
// It defines the options shared by the localize, restructure and audit passes,
// the layout of the migrated site, and report generation preferences.
package config
