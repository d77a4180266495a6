//go:build darwin

package volume

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// MountRoots are the directories removable media get mounted under.
var MountRoots = []string{"/Volumes"}

// listMounts returns mounted volumes on macOS
func listMounts() []Volume {
	var vols []Volume
	var mu sync.Mutex

	conf := &fastwalk.Config{Follow: true}

	err := fastwalk.Walk(conf, "/Volumes", func(fullPath string, d fs.DirEntry, err error) error {
		if err != nil || fullPath == "/Volumes" {
			return nil
		}
		// only direct children of /Volumes
		if filepath.Dir(fullPath) != "/Volumes" {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		name := d.Name()

		// the boot volume is a symlink to /
		if target, err := os.Readlink(fullPath); err == nil && target == "/" {
			mu.Lock()
			vols = append(vols, Volume{Name: name, Path: "/"})
			mu.Unlock()
			return fastwalk.SkipDir
		}
		if _, err := os.Stat(fullPath); err != nil {
			return fastwalk.SkipDir
		}

		mu.Lock()
		vols = append(vols, Volume{Name: name, Path: fullPath, Removable: true})
		mu.Unlock()
		return fastwalk.SkipDir
	})

	if err != nil || len(vols) == 0 {
		return []Volume{{Name: "Macintosh HD", Path: "/"}}
	}
	return vols
}
