//go:build !debug

// Package debug provides categorized trace logging for the pane engine.
// This is the no-op version for release builds.
package debug

// Enabled indicates whether debug logging is active
const Enabled = false

// Category represents a debug logging category
type Category string

const (
	SESSION  Category = "SESSION"
	TREE     Category = "TREE"
	LOAD     Category = "LOAD"
	SEARCH   Category = "SEARCH"
	SELECT   Category = "SELECT"
	STORE    Category = "STORE"
	XFER     Category = "XFER"
	FS       Category = "FS"
	FS_ENTRY Category = "FS_ENTRY"
	VOLUME   Category = "VOLUME"
	WATCH    Category = "WATCH"
)

// Log is a no-op in release builds
func Log(cat Category, format string, args ...interface{}) {}

// Enable is a no-op in release builds
func Enable(cat Category) {}

// Disable is a no-op in release builds
func Disable(cat Category) {}

// IsEnabled always returns false in release builds
func IsEnabled(cat Category) bool { return false }
