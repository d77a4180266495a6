//go:build !linux && !darwin

package volume

// MountRoots is empty where removable media have no common mount directory.
var MountRoots []string

func listMounts() []Volume {
	return []Volume{{Name: "Root", Path: "/"}}
}
