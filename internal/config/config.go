package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/provider"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Panes    []PaneConfig   `json:"panes" yaml:"panes"`
	FileList FileListConfig `json:"fileList" yaml:"fileList"`
	Search   SearchConfig   `json:"search" yaml:"search"`
	Session  SessionConfig  `json:"session" yaml:"session"`
	Transfer TransferConfig `json:"transfer" yaml:"transfer"`
	Volumes  VolumesConfig  `json:"volumes" yaml:"volumes"`
	Watch    WatchConfig    `json:"watch" yaml:"watch"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// PaneConfig binds a pane id to its configured root
type PaneConfig struct {
	ID   string `json:"id" yaml:"id"`
	Root string `json:"root" yaml:"root"`
}

// FileListConfig holds tree display settings
type FileListConfig struct {
	DefaultSort string `json:"defaultSort" yaml:"defaultSort"` // "name" | "created" | "modified" | "lastOpened"
}

// SearchConfig holds search-related settings
type SearchConfig struct {
	DebounceMs int `json:"debounceMs" yaml:"debounceMs"`
}

// SessionConfig holds pane lifecycle settings
type SessionConfig struct {
	InitTimeoutMs int `json:"initTimeoutMs" yaml:"initTimeoutMs"`
}

// TransferConfig holds bulk copy settings
type TransferConfig struct {
	Conversion      provider.ConversionParams `json:"conversion" yaml:"conversion"`
	AudioExtensions []string                  `json:"audioExtensions" yaml:"audioExtensions"`
	FallbackToCopy  bool                      `json:"fallbackToCopy" yaml:"fallbackToCopy"`
	CountWorkers    int                       `json:"countWorkers" yaml:"countWorkers"`
}

// VolumesConfig holds volume probing settings
type VolumesConfig struct {
	PollIntervalMs int      `json:"pollIntervalMs" yaml:"pollIntervalMs"`
	MountRoots     []string `json:"mountRoots,omitempty" yaml:"mountRoots,omitempty"` // empty = platform default
}

// WatchConfig holds directory watching settings
type WatchConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	DebounceMs int  `json:"debounceMs" yaml:"debounceMs"`
}

// StoreConfig holds navigation state storage settings
type StoreConfig struct {
	Path string `json:"path" yaml:"path"` // sqlite file, ":memory:" for none
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug | info | warn | error
	Format string `json:"format" yaml:"format"` // console | json
	Output string `json:"output" yaml:"output"` // stderr | stdout | file path
}

// SearchDebounce returns the search debounce delay.
func (c Config) SearchDebounce() time.Duration { return ms(c.Search.DebounceMs) }

// InitTimeout returns the pane initialization bound.
func (c Config) InitTimeout() time.Duration { return ms(c.Session.InitTimeoutMs) }

// PollInterval returns the volume probe period.
func (c Config) PollInterval() time.Duration { return ms(c.Volumes.PollIntervalMs) }

// WatchDebounce returns the directory watch debounce delay.
func (c Config) WatchDebounce() time.Duration { return ms(c.Watch.DebounceMs) }

// Pane returns the configuration of pane id.
func (c Config) Pane(id string) (PaneConfig, bool) {
	for _, p := range c.Panes {
		if p.ID == id {
			return p, true
		}
	}
	return PaneConfig{}, false
}

// Logging converts the log section for logging.Init.
func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format, OutputPath: c.Log.Output}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a configuration manager for path. An empty path means
// ConfigPath().
func NewManager(path string) *Manager {
	if path == "" {
		path = ConfigPath()
	}
	return &Manager{
		config: DefaultConfig(),
		path:   path,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Panes: []PaneConfig{
			{ID: "left", Root: home},
			{ID: "right", Root: home},
		},
		FileList: FileListConfig{
			DefaultSort: "name",
		},
		Search: SearchConfig{
			DebounceMs: 300,
		},
		Session: SessionConfig{
			InitTimeoutMs: 10000,
		},
		Transfer: TransferConfig{
			Conversion:      provider.ConversionParams{Format: "wav"},
			AudioExtensions: []string{".wav", ".aif", ".aiff", ".flac", ".mp3", ".m4a", ".ogg", ".opus"},
			FallbackToCopy:  false,
			CountWorkers:    4,
		},
		Volumes: VolumesConfig{
			PollIntervalMs: 2000,
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMs: 200,
		},
		Store: StoreConfig{
			Path: filepath.Join(home, ".config", "twinpane", "state.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// ConfigPath returns the config file path: ~/.config/twinpane/config.json
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "twinpane", "config.json")
}

// Path returns the file the manager reads and writes.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func marshal(path string, cfg *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// Load reads the configuration from the config file
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parseErr = nil
	log := logging.L().With(zap.String("path", m.path))

	// Ensure config directory exists
	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		log.Error("config: failed to create directory", zap.Error(err))
		return err
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		log.Info("config: creating default config")
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			log.Error("config: failed to save default config", zap.Error(saveErr))
			return saveErr
		}
		return nil
	}
	if err != nil {
		log.Error("config: failed to read", zap.Error(err))
		return err
	}

	// missing keys keep their defaults
	cfg := DefaultConfig()
	if err := unmarshal(m.path, data, cfg); err != nil {
		// Store error for display, use defaults
		log.Warn("config: parse error, using defaults", zap.Error(err))
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}

	log.Debug("config: loaded")
	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := marshal(m.path, m.config)
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetPaneRoot updates (or adds) the configured root of a pane
func (m *Manager) SetPaneRoot(id, root string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.config.Panes {
		if m.config.Panes[i].ID == id {
			m.config.Panes[i].Root = root
			return m.saveUnlocked()
		}
	}
	m.config.Panes = append(m.config.Panes, PaneConfig{ID: id, Root: root})
	return m.saveUnlocked()
}

// SetDefaultSort updates the default sort key
func (m *Manager) SetDefaultSort(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.FileList.DefaultSort = key
	return m.saveUnlocked()
}

// SetConversion updates the default conversion parameters
func (m *Manager) SetConversion(params provider.ConversionParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Transfer.Conversion = params
	return m.saveUnlocked()
}

// GenerateConfig backs up an existing config at path and writes a fresh
// default one. Returns the backup path if a backup was created, or empty
// string if no existing config
func GenerateConfig(path string) (backupPath string, err error) {
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		ext := filepath.Ext(path)
		backupPath = filepath.Join(filepath.Dir(path), "config.backup."+timestamp+ext)

		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := marshal(path, DefaultConfig())
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}
	return backupPath, nil
}
