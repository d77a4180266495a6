package navstate

import (
	"context"
	"path/filepath"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/provider"
)

// ResolvePath returns the directory a pane should open when restoring
// saved. If saved is gone or no longer a directory, each parent is tried in
// turn until one exists; root is the final fallback. Paths outside root
// resolve to root. Stat errors are never returned to the caller.
func ResolvePath(ctx context.Context, p provider.Provider, saved, root string) string {
	root = filepath.Clean(root)
	if saved == "" {
		return root
	}
	candidate := filepath.Clean(saved)
	if !provider.Within(candidate, root) {
		debug.Log(debug.STORE, "ResolvePath: %s outside root %s", candidate, root)
		return root
	}

	for candidate != root {
		if ctx.Err() != nil {
			return root
		}
		st, err := p.GetStats(ctx, candidate)
		if err == nil && st.IsDir {
			debug.Log(debug.STORE, "ResolvePath: %s -> %s", saved, candidate)
			return candidate
		}
		parent := filepath.Dir(candidate)
		if parent == candidate {
			break
		}
		candidate = parent
	}
	debug.Log(debug.STORE, "ResolvePath: %s -> root %s", saved, root)
	return root
}
