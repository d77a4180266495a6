package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv writes a config that keeps state and logs inside a temp dir.
func testEnv(t *testing.T) (cfgPath, dir string) {
	t.Helper()
	base := t.TempDir()
	dir = filepath.Join(base, "files")
	if err := os.MkdirAll(filepath.Join(dir, "Drums"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string]string{
		"Drums/kick.wav": "kick",
		"notes.txt":      "notes",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := map[string]any{
		"panes": []map[string]string{{"id": "left", "root": dir}, {"id": "right", "root": dir}},
		"store": map[string]string{"path": filepath.Join(base, "state.db")},
		"log":   map[string]string{"level": "error", "format": "console", "output": "stderr"},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfgPath = filepath.Join(base, "config.json")
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLsExpandsToDepth(t *testing.T) {
	cfg, dir := testEnv(t)

	out, err := run(t, "--config", cfg, "ls", dir, "--depth", "1")
	if err != nil {
		t.Fatalf("ls: %v\n%s", err, out)
	}
	for _, want := range []string{dir, "- Drums", "kick.wav", "notes.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStateShowListsSavedPath(t *testing.T) {
	cfg, dir := testEnv(t)
	drums := filepath.Join(dir, "Drums")

	if out, err := run(t, "--config", cfg, "--pane", "right", "ls", drums); err != nil {
		t.Fatalf("ls: %v\n%s", err, out)
	}
	out, err := run(t, "--config", cfg, "state", "show", "right")
	if err != nil {
		t.Fatalf("state show: %v", err)
	}
	if !strings.Contains(out, drums) {
		t.Errorf("state show missing %s:\n%s", drums, out)
	}

	if _, err := run(t, "--config", cfg, "state", "forget", "right"); err != nil {
		t.Fatalf("state forget: %v", err)
	}
	out, err = run(t, "--config", cfg, "state", "show", "right")
	if err != nil {
		t.Fatalf("state show: %v", err)
	}
	if strings.Contains(out, drums) {
		t.Errorf("state still listed after forget:\n%s", out)
	}
}

func TestCpCopiesIntoDestination(t *testing.T) {
	cfg, dir := testEnv(t)
	dest := filepath.Join(dir, "Mixes")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", cfg, "cp", filepath.Join(dir, "Drums"), filepath.Join(dir, "notes.txt"), dest)
	if err != nil {
		t.Fatalf("cp: %v\n%s", err, out)
	}
	for _, p := range []string{"Drums/kick.wav", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dest, p)); err != nil {
			t.Errorf("%s not copied: %v", p, err)
		}
	}
}

func TestRmPermanent(t *testing.T) {
	cfg, dir := testEnv(t)
	target := filepath.Join(dir, "notes.txt")

	out, err := run(t, "--config", cfg, "rm", "--permanent", target)
	if err != nil {
		t.Fatalf("rm: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("notes.txt still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Drums", "kick.wav")); err != nil {
		t.Errorf("sibling folder touched: %v", err)
	}
}

func TestConfigInitBacksUpExisting(t *testing.T) {
	cfg, _ := testEnv(t)

	out, err := run(t, "--config", cfg, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "backed up") || !strings.Contains(out, "wrote "+cfg) {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := run(t, "--config", cfg, "config", "set-sort", "bogus"); err == nil {
		t.Error("set-sort accepted an unknown key")
	}
}
