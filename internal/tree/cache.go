package tree

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/provider"
	"go.uber.org/zap"
)

var (
	// ErrPathDoesNotExist is returned when the pane's root directory is gone.
	ErrPathDoesNotExist = errors.New("path does not exist")
	// ErrStale is returned when a load targets a node that left the tree
	// while the fetch was in flight.
	ErrStale = errors.New("node no longer in tree")
)

// Cache is an arena of nodes addressed by id. Loading a directory updates
// only the target node and its direct children; nothing is rebuilt from the
// root. All methods are safe for concurrent use.
type Cache struct {
	prov provider.Provider

	mu       sync.RWMutex
	nodes    map[NodeID]*Node
	rootPath string
	sortKey  SortKey
	missing  bool
}

// NewCache returns an empty cache reading through p.
func NewCache(p provider.Provider, key SortKey) *Cache {
	c := &Cache{prov: p, sortKey: key}
	c.resetLocked("")
	return c
}

func (c *Cache) resetLocked(rootPath string) {
	c.nodes = map[NodeID]*Node{
		RootID: {ID: RootID, Kind: provider.Folder, Path: rootPath},
	}
	c.rootPath = rootPath
	c.missing = false
}

// Reset discards every node. Used when the pane re-roots.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.resetLocked("")
	c.mu.Unlock()
}

// Load fetches one directory level and merges it at id. It is not recursive.
// Loading RootID with a different path than the previous root replaces the
// whole tree; reloading the same root keeps already loaded subtrees.
func (c *Cache) Load(ctx context.Context, path string, id NodeID) error {
	debug.Log(debug.TREE, "Load: path=%q id=%s", path, id)

	entries, err := c.prov.ReadDirectory(ctx, path)

	c.mu.Lock()
	defer c.mu.Unlock()

	// checked under the lock: a re-root cancels before it resets the tree
	if ctxErr := ctx.Err(); ctxErr != nil {
		if n := c.nodes[id]; n != nil {
			n.IsLoading = false
		}
		return ctxErr
	}

	if id == RootID {
		if err != nil {
			if provider.IsNotFound(err) {
				c.resetLocked(path)
				c.missing = true
				return fmt.Errorf("%s: %w", path, ErrPathDoesNotExist)
			}
			if n := c.nodes[RootID]; n != nil {
				n.IsLoading = false
			}
			return err
		}
		if filepath.Clean(path) != filepath.Clean(c.rootPath) || c.missing {
			c.resetLocked(path)
		}
	}

	node, ok := c.nodes[id]
	if !ok {
		debug.Log(debug.TREE, "Load: %s dropped, node left the tree", id)
		return ErrStale
	}

	if err != nil {
		node.IsLoading = false
		logging.L().Warn("directory load failed",
			zap.String("path", path), zap.String("node", string(id)), zap.Error(err))
		return err
	}

	c.mergeLocked(node, entries)
	return nil
}

// Replace re-roots the tree at path using entries the caller already read.
func (c *Cache) Replace(path string, entries []provider.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(path)
	c.mergeLocked(c.nodes[RootID], entries)
	debug.Log(debug.TREE, "Replace: path=%q", path)
}

func (c *Cache) mergeLocked(parent *Node, entries []provider.Entry) {
	keep := make(map[NodeID]bool, len(entries))
	ids := make([]NodeID, 0, len(entries))

	for _, e := range entries {
		if provider.IsHidden(e.Name) {
			continue
		}
		fresh := nodeFromEntry(parent.ID, e)
		if keep[fresh.ID] {
			continue
		}
		if existing, ok := c.nodes[fresh.ID]; ok && existing.Kind == fresh.Kind {
			existing.Name = fresh.Name
			existing.Size = fresh.Size
			existing.CreatedAt = fresh.CreatedAt
			existing.ModifiedAt = fresh.ModifiedAt
			existing.LastOpenedAt = fresh.LastOpenedAt
		} else {
			if ok {
				c.purgeLocked(existing.ID)
			}
			c.nodes[fresh.ID] = fresh
		}
		keep[fresh.ID] = true
		ids = append(ids, fresh.ID)
	}

	for _, old := range parent.Children {
		if !keep[old] {
			c.purgeLocked(old)
		}
	}

	sortIDs(ids, c.nodes, c.sortKey)
	parent.Children = ids
	parent.Loaded = true
	parent.IsLoading = false

	debug.Log(debug.TREE, "merge: %s now has %d children", parent.ID, len(ids))
}

// purgeLocked removes id and its whole subtree from the arena.
func (c *Cache) purgeLocked(id NodeID) {
	n, ok := c.nodes[id]
	if !ok {
		return
	}
	for _, child := range n.Children {
		c.purgeLocked(child)
	}
	delete(c.nodes, id)
}

// SetLoading flips a node's IsLoading flag. It reports false when the node
// is not in the tree.
func (c *Cache) SetLoading(id NodeID, loading bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	if !ok {
		return false
	}
	n.IsLoading = loading
	return true
}

// SetSortKey re-sorts every loaded children list without fetching.
func (c *Cache) SetSortKey(key SortKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == c.sortKey {
		return
	}
	c.sortKey = key
	for _, n := range c.nodes {
		if len(n.Children) > 1 {
			sortIDs(n.Children, c.nodes, key)
		}
	}
	debug.Log(debug.TREE, "SetSortKey: %s", key)
}

// SortKey returns the active sort key.
func (c *Cache) SortKey() SortKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortKey
}

// PathDoesNotExist reports whether the last root load found no directory,
// as opposed to an empty one.
func (c *Cache) PathDoesNotExist() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.missing
}

// RootPath returns the path the top level was loaded from.
func (c *Cache) RootPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rootPath
}

// Node returns a copy of the node with the given id.
func (c *Cache) Node(id NodeID) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id]
	if !ok {
		return Node{}, false
	}
	return copyNode(n), true
}

// Contains reports whether id is currently in the tree.
func (c *Cache) Contains(id NodeID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.nodes[id]
	return ok
}

// Children returns the ordered children of id. The bool is false when the
// node is unknown or has never been fetched.
func (c *Cache) Children(id NodeID) ([]Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id]
	if !ok || n.Children == nil && !n.Loaded {
		return nil, false
	}
	out := make([]Node, 0, len(n.Children))
	for _, cid := range n.Children {
		out = append(out, copyNode(c.nodes[cid]))
	}
	return out, true
}

// Root returns the current top-level nodes.
func (c *Cache) Root() []Node {
	nodes, _ := c.Children(RootID)
	return nodes
}

// FindByPath returns the loaded node at path, if any.
func (c *Cache) FindByPath(path string) (Node, bool) {
	path = filepath.Clean(path)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if path == filepath.Clean(c.rootPath) {
		return copyNode(c.nodes[RootID]), true
	}
	for _, n := range c.nodes {
		if n.ID != RootID && filepath.Clean(n.Path) == path {
			return copyNode(n), true
		}
	}
	return Node{}, false
}

// Len returns the number of materialized nodes, excluding the root.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes) - 1
}

// Flatten returns the visible nodes in display order: top level first, with
// the children of every expanded, fetched folder following their parent.
func (c *Cache) Flatten(expanded ExpansionSet) []Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Node
	c.flattenLocked(RootID, expanded, &out)
	return out
}

func (c *Cache) flattenLocked(id NodeID, expanded ExpansionSet, out *[]Node) {
	n := c.nodes[id]
	if n == nil {
		return
	}
	for _, cid := range n.Children {
		child := c.nodes[cid]
		*out = append(*out, copyNode(child))
		if child.IsFolder() && expanded.Has(cid) {
			c.flattenLocked(cid, expanded, out)
		}
	}
}

func copyNode(n *Node) Node {
	cp := *n
	if n.Children != nil {
		cp.Children = append([]NodeID(nil), n.Children...)
	}
	return cp
}
