//go:build debug

// Package debug provides categorized trace logging for the pane engine.
// Build with -tags debug to enable logging.
package debug

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	SESSION Category = "SESSION" // Pane re-roots, navigation, volume events
	TREE    Category = "TREE"    // Tree cache merges and sorting
	LOAD    Category = "LOAD"    // Expand and expansion-restore traversal
	SEARCH  Category = "SEARCH"  // Search overlay debounce and results
	SELECT  Category = "SELECT"  // Selection changes
	STORE   Category = "STORE"   // Navigation state persistence
	XFER    Category = "XFER"    // Bulk transfers
	FS      Category = "FS"      // Local provider calls
	VOLUME  Category = "VOLUME"  // Volume probing
	WATCH   Category = "WATCH"   // Directory change notifications

	FS_ENTRY Category = "FS_ENTRY" // Individual entry processing (very verbose)
)

var (
	enabledCategories = map[Category]bool{
		SESSION:  true,
		TREE:     true,
		LOAD:     true,
		SEARCH:   true,
		SELECT:   true,
		STORE:    true,
		XFER:     true,
		FS:       true,
		VOLUME:   true,
		WATCH:    true,
		FS_ENTRY: false,
	}
	categoryMu sync.RWMutex

	logger *zap.SugaredLogger
)

func init() {
	l, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	logger = l.Sugar()

	// TWINPANE_DEBUG=TREE,LOAD or TWINPANE_DEBUG=all or TWINPANE_DEBUG=none
	env := strings.ToUpper(os.Getenv("TWINPANE_DEBUG"))
	if env == "" {
		return
	}
	categoryMu.Lock()
	defer categoryMu.Unlock()
	switch env {
	case "ALL":
		for cat := range enabledCategories {
			enabledCategories[cat] = true
		}
	case "NONE":
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
	default:
		for cat := range enabledCategories {
			enabledCategories[cat] = false
		}
		for _, cat := range strings.Split(env, ",") {
			enabledCategories[Category(strings.TrimSpace(cat))] = true
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	if !IsEnabled(cat) {
		return
	}
	logger.Debugf("["+string(cat)+"] "+format, args...)
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}
