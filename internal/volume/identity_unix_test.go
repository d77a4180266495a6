//go:build linux || darwin

package volume

import (
	"path/filepath"
	"testing"
)

func TestIdentity(t *testing.T) {
	dir := t.TempDir()
	id := Identity(dir)
	if id == "" {
		t.Fatal("expected an identity for an existing directory")
	}
	if Identity(dir) != id {
		t.Error("identity should be stable")
	}
	if Identity(filepath.Join(dir, "sub")) != "" {
		t.Error("missing path should have no identity")
	}
	if Identity("/") == id {
		t.Error("different mount paths should differ")
	}
}
