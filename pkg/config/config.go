// Package config loads the project configuration (.vtree/config.yaml) and
// locates vtree projects on disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-project directory holding config and state.
const DirName = ".vtree"

// FileName is the config file inside DirName.
const FileName = "config.yaml"

// Config represents a project configuration file (.vtree/config.yaml)
type Config struct {
	// PoolSize is the number of row widgets (default: 20). The TUI resizes
	// the pool to the terminal height when this is 0.
	PoolSize int `yaml:"pool_size,omitempty" json:"pool_size,omitempty"`

	// HideRoot hides the root row and shows its children at depth 0
	HideRoot bool `yaml:"hide_root,omitempty" json:"hide_root,omitempty"`

	// ShowHidden includes dot files in filesystem trees
	ShowHidden bool `yaml:"show_hidden,omitempty" json:"show_hidden,omitempty"`

	// State configures open-state persistence
	State StateConfig `yaml:"state,omitempty" json:"state,omitempty"`

	// Watch refreshes open directories when they change on disk
	Watch WatchConfig `yaml:"watch,omitempty" json:"watch,omitempty"`

	// Log configures diagnostics
	Log LogConfig `yaml:"log,omitempty" json:"log,omitempty"`

	// Discovery configures project scanning
	Discovery DiscoveryConfig `yaml:"discovery,omitempty" json:"discovery,omitempty"`
}

// StateConfig selects where the open set is stored.
type StateConfig struct {
	// Backend is "json" (default), "bolt" or "none"
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// Path overrides the state file (default: .vtree/tree-state.json or
	// .vtree/state.db)
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// WatchConfig controls filesystem watching.
type WatchConfig struct {
	// Enabled turns on fsnotify watching of open directories (default: true)
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Debounce coalesces bursts of events (default: 200ms)
	Debounce Duration `yaml:"debounce,omitempty" json:"debounce,omitempty"`
}

// LogConfig controls the diagnostics logger.
type LogConfig struct {
	// Level is a zerolog level name (default: info)
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// File receives JSON logs in addition to the console
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// DiscoveryConfig controls scanning for other vtree projects.
type DiscoveryConfig struct {
	// ScanPaths are directories searched for projects
	ScanPaths []string `yaml:"scan_paths,omitempty" json:"scan_paths,omitempty"`

	// MaxDepth limits directory traversal depth (default: 3)
	MaxDepth int `yaml:"max_depth,omitempty" json:"max_depth,omitempty"`
}

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// UnmarshalYAML accepts "250ms"-style strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the time.Duration value.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Backend names.
const (
	BackendJSON = "json"
	BackendBolt = "bolt"
	BackendNone = "none"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	enabled := true
	return Config{
		PoolSize: 20,
		State:    StateConfig{Backend: BackendJSON},
		Watch:    WatchConfig{Enabled: &enabled, Debounce: Duration(200 * time.Millisecond)},
		Log:      LogConfig{Level: "info"},
		Discovery: DiscoveryConfig{
			MaxDepth: 3,
		},
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.PoolSize < 0 {
		return fmt.Errorf("pool_size must not be negative, got %d", c.PoolSize)
	}
	switch c.State.Backend {
	case "", BackendJSON, BackendBolt, BackendNone:
	default:
		return fmt.Errorf("state.backend: unknown backend %q", c.State.Backend)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// WatchEnabled returns whether filesystem watching is on.
func (c *Config) WatchEnabled() bool {
	if c.Watch.Enabled == nil {
		return true
	}
	return *c.Watch.Enabled
}

// StatePath returns the state file path for a project rooted at root.
func (c *Config) StatePath(root string) string {
	if c.State.Path != "" {
		if filepath.IsAbs(c.State.Path) {
			return c.State.Path
		}
		return filepath.Join(root, c.State.Path)
	}
	name := "tree-state.json"
	if c.State.Backend == BackendBolt {
		name = "state.db"
	}
	return filepath.Join(root, DirName, name)
}

// LoadConfig loads a configuration file, filling unset fields from
// DefaultConfig. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Apply defaults
	if cfg.State.Backend == "" {
		cfg.State.Backend = BackendJSON
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Discovery.MaxDepth == 0 {
		cfg.Discovery.MaxDepth = 3
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path, creating the directory.
func SaveConfig(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ConfigPath returns the config file path of a project rooted at root.
func ConfigPath(root string) string {
	return filepath.Join(root, DirName, FileName)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
