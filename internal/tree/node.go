// Package tree holds one pane's lazily materialized directory tree.
package tree

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/justyntemme/twinpane/internal/provider"
)

// NodeID identifies a node. IDs are derived from (parent id, path) so a
// re-fetched directory yields the same ids and never collides with stale ones.
type NodeID string

const (
	// RootID is the pseudo-node whose children are the pane's top level.
	RootID NodeID = "root"
	// ParentLinkID is the synthetic ".." entry.
	ParentLinkID NodeID = "parent-link"
)

var idSpace = uuid.MustParse("5b0c3c8e-6f5e-4d4e-9a57-1d1f0b3f5a10")

// NewID derives the id of the node at path under parent.
func NewID(parent NodeID, path string) NodeID {
	return NodeID(uuid.NewSHA1(idSpace, []byte(string(parent)+"\x00"+filepath.Clean(path))).String())
}

// Node is one file or folder. A folder with Children == nil has never been
// fetched; Loaded is set once it has.
type Node struct {
	ID           NodeID
	ParentID     NodeID
	Name         string
	Kind         provider.Kind
	Path         string
	Size         int64
	Loaded       bool
	IsLoading    bool
	Children     []NodeID
	CreatedAt    time.Time
	ModifiedAt   time.Time
	LastOpenedAt time.Time
}

// IsFolder reports whether n is a folder.
func (n Node) IsFolder() bool { return n.Kind == provider.Folder }

// ParentLink returns the synthetic ".." node for currentPath.
func ParentLink(currentPath string) Node {
	return Node{
		ID:       ParentLinkID,
		ParentID: RootID,
		Name:     "..",
		Kind:     provider.Folder,
		Path:     filepath.Dir(filepath.Clean(currentPath)),
	}
}

func nodeFromEntry(parent NodeID, e provider.Entry) *Node {
	return &Node{
		ID:           NewID(parent, e.Path),
		ParentID:     parent,
		Name:         e.Name,
		Kind:         e.Kind,
		Path:         e.Path,
		Size:         e.Size,
		CreatedAt:    e.CreatedAt,
		ModifiedAt:   e.ModifiedAt,
		LastOpenedAt: e.LastOpenedAt,
	}
}
