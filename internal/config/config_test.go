package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twinpane", "config.json")
	m := NewManager(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	cfg := m.Get()
	if cfg.FileList.DefaultSort != "name" || cfg.SearchDebounce() != 300*time.Millisecond {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if _, ok := cfg.Pane("left"); !ok {
		t.Error("default left pane missing")
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"json", "config.json", `{"search": {"debounceMs": 50}, "panes": [{"id": "a", "root": "/media"}]}`},
		{"yaml", "config.yaml", "search:\n  debounceMs: 50\npanes:\n  - id: a\n    root: /media\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			m := NewManager(path)
			if err := m.Load(); err != nil {
				t.Fatalf("Load: %v", err)
			}
			if m.ParseError() != nil {
				t.Fatalf("ParseError: %v", m.ParseError())
			}
			cfg := m.Get()
			if cfg.SearchDebounce() != 50*time.Millisecond {
				t.Errorf("SearchDebounce = %v, want 50ms", cfg.SearchDebounce())
			}
			if cfg.InitTimeout() != 10*time.Second {
				t.Errorf("InitTimeout = %v, want the 10s default", cfg.InitTimeout())
			}
			p, ok := cfg.Pane("a")
			if !ok || p.Root != "/media" || len(cfg.Panes) != 1 {
				t.Errorf("Panes = %+v", cfg.Panes)
			}
		})
	}
}

func TestLoadParseErrorFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewManager(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.ParseError() == nil {
		t.Error("ParseError() = nil, want the syntax error")
	}
	if got := m.Get().Session.InitTimeoutMs; got != 10000 {
		t.Errorf("InitTimeoutMs = %d, want default", got)
	}
}

func TestSettersPersist(t *testing.T) {
	for _, file := range []string{"config.json", "config.yml"} {
		t.Run(file, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), file)
			m := NewManager(path)
			if err := m.Load(); err != nil {
				t.Fatal(err)
			}
			if err := m.SetPaneRoot("left", "/Volumes/SD"); err != nil {
				t.Fatal(err)
			}
			if err := m.SetPaneRoot("aux", "/tmp"); err != nil {
				t.Fatal(err)
			}
			if err := m.SetDefaultSort("modified"); err != nil {
				t.Fatal(err)
			}

			reloaded := NewManager(path)
			if err := reloaded.Load(); err != nil {
				t.Fatal(err)
			}
			cfg := reloaded.Get()
			if p, _ := cfg.Pane("left"); p.Root != "/Volumes/SD" {
				t.Errorf("left root = %q", p.Root)
			}
			if _, ok := cfg.Pane("aux"); !ok {
				t.Error("aux pane not added")
			}
			if cfg.FileList.DefaultSort != "modified" {
				t.Errorf("DefaultSort = %q", cfg.FileList.DefaultSort)
			}
		})
	}
}

func TestGenerateConfigBacksUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	backup, err := GenerateConfig(path)
	if err != nil || backup != "" {
		t.Fatalf("first GenerateConfig = %q, %v; want no backup", backup, err)
	}
	if err := os.WriteFile(path, []byte(`{"log": {"level": "debug"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	backup, err = GenerateConfig(path)
	if err != nil || backup == "" {
		t.Fatalf("second GenerateConfig = %q, %v; want a backup", backup, err)
	}
	data, err := os.ReadFile(backup)
	if err != nil || string(data) != `{"log": {"level": "debug"}}` {
		t.Errorf("backup content = %q, %v", data, err)
	}
}
