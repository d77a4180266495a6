//go:build linux

package volume

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MountRoots are the directories removable media get mounted under.
var MountRoots = []string{"/media", "/mnt", "/run/media"}

// listMounts returns mounted volumes on Linux
func listMounts() []Volume {
	file, err := os.Open("/proc/mounts")
	if err != nil {
		return []Volume{{Name: "/ (Root)", Path: "/"}}
	}
	defer file.Close()
	return parseMounts(file)
}

// parseMounts reads /proc/mounts, skipping virtual file systems.
func parseMounts(r io.Reader) []Volume {
	vols := []Volume{{Name: "/ (Root)", Path: "/"}}
	seen := map[string]bool{"/": true}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		mountPoint := unescapeMount(fields[1])
		fsType := ""
		if len(fields) >= 3 {
			fsType = fields[2]
		}

		removable := strings.HasPrefix(mountPoint, "/media/") ||
			strings.HasPrefix(mountPoint, "/mnt/") ||
			strings.HasPrefix(mountPoint, "/run/media/")

		// Skip virtual filesystems
		if !removable && (strings.HasPrefix(mountPoint, "/sys") ||
			strings.HasPrefix(mountPoint, "/proc") ||
			strings.HasPrefix(mountPoint, "/dev") ||
			strings.HasPrefix(mountPoint, "/run") ||
			strings.HasPrefix(mountPoint, "/snap")) {
			continue
		}
		switch fsType {
		case "tmpfs", "devtmpfs", "cgroup", "cgroup2", "overlay", "squashfs", "autofs":
			continue
		}
		if seen[mountPoint] {
			continue
		}

		name := mountPoint
		if removable {
			name = filepath.Base(mountPoint)
		} else if mountPoint == "/home" {
			name = "Home"
		}

		seen[mountPoint] = true
		vols = append(vols, Volume{Name: name, Path: mountPoint, Removable: removable})
	}
	return vols
}

// unescapeMount decodes the octal escapes /proc/mounts uses for spaces,
// tabs and backslashes.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}
