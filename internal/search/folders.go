package search

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/justyntemme/twinpane/internal/provider"
	"github.com/justyntemme/twinpane/internal/tree"
)

// searchRoot parents every id in the synthesized forest so search ids never
// collide with ids in the pane's tree.
const searchRoot tree.NodeID = "search"

// Folder is a node of the folder-only tree derived from search hits. It is
// never loaded; activating one leaves search mode and navigates normally.
type Folder struct {
	ID       tree.NodeID
	Name     string
	Path     string
	Loaded   bool
	Children []*Folder
	Hits     int // hits directly inside this folder
}

// BuildFolderTree returns the minimal forest of folders needed to place
// every hit: each hit's parent directory, plus the hit itself when it is a
// folder. A folder whose parent is also present becomes its child; the rest
// are roots. Roots and children are sorted by name.
func BuildFolderTree(hits []provider.Entry) []*Folder {
	byPath := make(map[string]*Folder)
	var order []string

	add := func(path string) *Folder {
		path = filepath.Clean(path)
		if f, ok := byPath[path]; ok {
			return f
		}
		name := filepath.Base(path)
		f := &Folder{
			ID:   tree.NewID(searchRoot, path),
			Name: name,
			Path: path,
		}
		byPath[path] = f
		order = append(order, path)
		return f
	}

	for _, h := range hits {
		if provider.IsHidden(h.Name) {
			continue
		}
		add(filepath.Dir(h.Path)).Hits++
		if h.IsDir() {
			add(h.Path)
		}
	}

	var roots []*Folder
	for _, path := range order {
		f := byPath[path]
		parent := filepath.Dir(path)
		if p, ok := byPath[parent]; ok && parent != path {
			p.Children = append(p.Children, f)
		} else {
			roots = append(roots, f)
		}
	}

	sortFolders(roots)
	return roots
}

func sortFolders(fs []*Folder) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := strings.ToLower(fs[i].Name), strings.ToLower(fs[j].Name)
		if a != b {
			return a < b
		}
		return fs[i].Path < fs[j].Path
	})
	for _, f := range fs {
		sortFolders(f.Children)
	}
}

// Walk visits the forest depth-first in display order.
func Walk(forest []*Folder, fn func(f *Folder, depth int)) {
	var visit func([]*Folder, int)
	visit = func(fs []*Folder, depth int) {
		for _, f := range fs {
			fn(f, depth)
			visit(f.Children, depth+1)
		}
	}
	visit(forest, 0)
}

// Find returns the folder with id, if present.
func Find(forest []*Folder, id tree.NodeID) (*Folder, bool) {
	var found *Folder
	Walk(forest, func(f *Folder, _ int) {
		if found == nil && f.ID == id {
			found = f
		}
	})
	return found, found != nil
}
