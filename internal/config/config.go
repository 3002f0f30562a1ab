package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"vantage/internal/errors"
)

// Config represents the application configuration structure. Command-line
// flags override anything loaded from disk; both layer over defaults.
type Config struct {
	// Workers is the number of analyzer child processes.
	Workers int `yaml:"workers"`
	Editor  struct {
		Command string `yaml:"command"` // Editor invocation; falls back to $VISUAL then $EDITOR
	} `yaml:"editor"`
	Theme struct {
		Name     string `yaml:"name"`      // Syntax highlighting theme for file contents
		LSColors bool   `yaml:"ls_colors"` // Color file names from $LS_COLORS when set
	} `yaml:"theme"`
	Cache struct {
		Compression int `yaml:"compression"` // DEFLATE level 0-9 for stored report bodies
	} `yaml:"cache"`
	Watch struct {
		RescanInterval int `yaml:"rescan_interval"` // Seconds between safety-net rescans
	} `yaml:"watch"`
	Log struct {
		File  string `yaml:"file"` // Log destination; empty discards
		Debug bool   `yaml:"debug"`
	} `yaml:"log"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Workers = runtime.NumCPU()
	if cfg.Workers > 8 {
		cfg.Workers = 8
	}
	cfg.Theme.Name = "monokai"
	cfg.Theme.LSColors = true
	cfg.Cache.Compression = 6
	cfg.Watch.RescanInterval = 10
	return cfg
}

// LoadConfig loads configuration from the default location
// (~/.config/vantage/config.yaml).
func LoadConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(filepath.Join(home, ".config", "vantage", "config.yaml"))
}

// LoadConfigFile loads configuration from a specific file path. A missing
// file yields the defaults; a malformed one is an error.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Unmarshal into a temporary config to preserve defaults for unset fields
	var tempCfg Config
	if err := yaml.Unmarshal(data, &tempCfg); err != nil {
		return nil, errors.NewApplicationError(
			fmt.Sprintf("error parsing config file %s", path), errors.InvalidConfig, err)
	}

	if tempCfg.Workers > 0 {
		cfg.Workers = tempCfg.Workers
	}
	if tempCfg.Editor.Command != "" {
		cfg.Editor.Command = tempCfg.Editor.Command
	}
	if tempCfg.Theme.Name != "" {
		cfg.Theme.Name = tempCfg.Theme.Name
	}
	if hasKey(data, "theme") {
		cfg.Theme.LSColors = tempCfg.Theme.LSColors
	}
	if hasKey(data, "cache") {
		cfg.Cache.Compression = tempCfg.Cache.Compression
	}
	if tempCfg.Watch.RescanInterval > 0 {
		cfg.Watch.RescanInterval = tempCfg.Watch.RescanInterval
	}
	if tempCfg.Log.File != "" {
		cfg.Log.File = tempCfg.Log.File
	}
	cfg.Log.Debug = tempCfg.Log.Debug

	return cfg, cfg.Validate()
}

// hasKey reports whether the YAML document sets a top-level key, which
// distinguishes an explicit zero from an absent section.
func hasKey(data []byte, key string) bool {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok := doc[key]
	return ok
}

// Validate rejects values outside their supported range.
func (c *Config) Validate() error {
	if c.Workers < 1 || c.Workers > 64 {
		return errors.NewApplicationError(
			fmt.Sprintf("workers must be between 1 and 64, got %d", c.Workers),
			errors.InvalidConfig, nil)
	}
	if c.Cache.Compression < 0 || c.Cache.Compression > 9 {
		return errors.NewApplicationError(
			fmt.Sprintf("cache compression must be between 0 and 9, got %d", c.Cache.Compression),
			errors.InvalidConfig, nil)
	}
	if c.Watch.RescanInterval < 1 {
		return errors.NewApplicationError(
			fmt.Sprintf("watch rescan_interval must be positive, got %d", c.Watch.RescanInterval),
			errors.InvalidConfig, nil)
	}
	return nil
}

// RescanInterval returns the rescan setting as a duration.
func (c *Config) RescanInterval() time.Duration {
	return time.Duration(c.Watch.RescanInterval) * time.Second
}

// EditorCommand resolves the editor to launch for the current file: the
// configured command first, then $VISUAL, then $EDITOR.
func (c *Config) EditorCommand() string {
	if c.Editor.Command != "" {
		return c.Editor.Command
	}
	if v := os.Getenv("VISUAL"); v != "" {
		return v
	}
	return os.Getenv("EDITOR")
}
