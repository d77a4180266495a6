package session

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/tree"
)

// Loader sequences directory loads into one pane's cache.
type Loader struct {
	cache *tree.Cache
	group singleflight.Group
}

// NewLoader returns a Loader feeding c.
func NewLoader(c *tree.Cache) *Loader {
	return &Loader{cache: c}
}

// LoadRoot loads path as the pane's top level.
func (l *Loader) LoadRoot(ctx context.Context, path string) error {
	return l.do(ctx, "root\x00"+path, func() error {
		l.cache.SetLoading(tree.RootID, true)
		return l.cache.Load(ctx, path, tree.RootID)
	})
}

// Expand loads folder id unless it has been fetched already. Concurrent
// calls for the same id share one provider call.
func (l *Loader) Expand(ctx context.Context, id tree.NodeID) error {
	n, ok := l.cache.Node(id)
	if !ok {
		return tree.ErrStale
	}
	if !n.IsFolder() {
		return fmt.Errorf("%s: not a folder", n.Path)
	}
	if n.Loaded {
		return nil
	}
	return l.load(ctx, n)
}

// Reload re-fetches folder id even if it is loaded, merging the result.
func (l *Loader) Reload(ctx context.Context, id tree.NodeID) error {
	n, ok := l.cache.Node(id)
	if !ok {
		return tree.ErrStale
	}
	if id == tree.RootID {
		return l.LoadRoot(ctx, l.cache.RootPath())
	}
	return l.load(ctx, n)
}

func (l *Loader) load(ctx context.Context, n tree.Node) error {
	return l.do(ctx, string(n.ID), func() error {
		l.cache.SetLoading(n.ID, true)
		debug.Log(debug.LOAD, "load: %s (%s)", n.Path, n.ID)
		return l.cache.Load(ctx, n.Path, n.ID)
	})
}

// do runs fn unless a load for key is in flight, in which case it waits for
// that one. A caller whose shared load was cancelled by its initiator, while
// its own ctx is still live, tries once more.
func (l *Loader) do(ctx context.Context, key string, fn func() error) error {
	call := func() (any, error) { return nil, fn() }
	_, err, shared := l.group.Do(key, call)
	if shared {
		debug.Log(debug.LOAD, "load: %q joined an in-flight load", key)
		if isCancel(err) && ctx.Err() == nil {
			_, err, _ = l.group.Do(key, call)
		}
	}
	return err
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Restore re-expands the saved folders after a re-root. It walks the fresh
// top level in display order; every folder whose id is in saved is loaded if
// needed and its children, read from the cache after the load, are queued in
// turn. The walk stops at the first cancellation. It returns the ids that
// were expanded, which may be a partial set.
func (l *Loader) Restore(ctx context.Context, saved []tree.NodeID) ([]tree.NodeID, error) {
	pending := make(map[tree.NodeID]bool, len(saved))
	for _, id := range saved {
		pending[id] = true
	}
	if len(pending) == 0 {
		return nil, nil
	}

	var queue []tree.NodeID
	for _, n := range l.cache.Root() {
		if n.IsFolder() && pending[n.ID] {
			queue = append(queue, n.ID)
		}
	}

	var restored []tree.NodeID
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			debug.Log(debug.LOAD, "Restore: abandoned with %d queued", len(queue))
			return restored, err
		}
		id := queue[0]
		queue = queue[1:]

		if err := l.Expand(ctx, id); err != nil {
			if ctx.Err() != nil {
				return restored, ctx.Err()
			}
			debug.Log(debug.LOAD, "Restore: skipping %s: %v", id, err)
			continue
		}
		restored = append(restored, id)
		delete(pending, id)

		children, _ := l.cache.Children(id)
		for _, c := range children {
			if c.IsFolder() && pending[c.ID] {
				queue = append(queue, c.ID)
			}
		}
	}

	debug.Log(debug.LOAD, "Restore: expanded %d of %d saved folders", len(restored), len(saved))
	return restored, nil
}
