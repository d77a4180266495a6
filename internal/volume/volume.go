// Package volume lists mounted volumes and reports attach and detach events.
package volume

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// Volume is one mounted file system.
type Volume struct {
	Name      string
	Path      string
	Identity  string // empty when the OS gives nothing stable to derive it from
	Removable bool
}

// EventKind says whether a volume appeared or went away.
type EventKind int

const (
	Attached EventKind = iota
	Detached
)

func (k EventKind) String() string {
	if k == Detached {
		return "detached"
	}
	return "attached"
}

// Event is emitted by Watcher.
type Event struct {
	Kind   EventKind
	Volume Volume
}

var identitySpace = uuid.MustParse("0f5b7c1e-2a43-4c8e-8d2b-6a4f3e9c1d27")

// Identity derives a volume identity from its device number and mount path.
// It is stable for as long as the volume stays mounted at path.
func Identity(path string) string {
	dev, ok := deviceID(path)
	if !ok {
		return ""
	}
	return uuid.NewSHA1(identitySpace, []byte(fmt.Sprintf("%d:%s", dev, filepath.Clean(path)))).String()
}

// List returns the mounted volumes with identities filled in, root first.
func List() []Volume {
	vols := listMounts()
	for i := range vols {
		if vols[i].Identity == "" {
			vols[i].Identity = Identity(vols[i].Path)
		}
	}
	sortVolumes(vols)
	return vols
}

func sortVolumes(vols []Volume) {
	sort.SliceStable(vols, func(i, j int) bool {
		if (vols[i].Path == "/") != (vols[j].Path == "/") {
			return vols[i].Path == "/"
		}
		return vols[i].Path < vols[j].Path
	})
}

// Find returns the volume whose mount path is the longest prefix of path.
func Find(vols []Volume, path string) (Volume, bool) {
	path = filepath.Clean(path)
	var best Volume
	found := false
	for _, v := range vols {
		if !within(path, v.Path) {
			continue
		}
		if !found || len(v.Path) > len(best.Path) {
			best, found = v, true
		}
	}
	return best, found
}

func within(path, root string) bool {
	root = filepath.Clean(root)
	if path == root || root == string(filepath.Separator) {
		return true
	}
	return len(path) > len(root) && path[:len(root)] == root && path[len(root)] == filepath.Separator
}
