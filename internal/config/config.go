// Package config loads and validates fidx configuration. Config lives in
// .fidx/config.json under the project root; a missing file yields the
// defaults.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the complete fidx configuration.
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Engine  EngineConfig  `json:"engine" mapstructure:"engine"`
	Cache   CacheConfig   `json:"cache" mapstructure:"cache"`
	Lexer   LexerConfig   `json:"lexer" mapstructure:"lexer"`
	Watcher WatcherConfig `json:"watcher" mapstructure:"watcher"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// SnapshotPath is where the sqlite snapshot database lives, relative
	// to the project root.
	SnapshotPath string `json:"snapshotPath" mapstructure:"snapshotPath"`
}

// EngineConfig controls extraction concurrency and edit handling.
type EngineConfig struct {
	// Workers bounds concurrent extraction jobs; 0 means one per CPU.
	Workers int `json:"workers" mapstructure:"workers"`
	// IncrementalThresholdBytes is the edit size above which a whole-file
	// reindex replaces region re-extraction.
	IncrementalThresholdBytes int `json:"incrementalThresholdBytes" mapstructure:"incrementalThresholdBytes"`
}

// CacheConfig controls the per-document query cache.
type CacheConfig struct {
	// Capacity is the entry count per document; 0 disables caching.
	Capacity int `json:"capacity" mapstructure:"capacity"`
}

// LexerConfig controls tokenization limits.
type LexerConfig struct {
	// WindowBytes is the bounded lookahead available to lexers.
	WindowBytes int `json:"windowBytes" mapstructure:"windowBytes"`
}

// WatcherConfig controls the filesystem watcher.
type WatcherConfig struct {
	Enabled        bool     `json:"enabled" mapstructure:"enabled"`
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	Path  string `json:"path" mapstructure:"path"` // empty means stderr
}

const currentVersion = 1

// configDir is the dot-directory fidx keeps under a project root.
const configDir = ".fidx"

// DefaultConfig returns the defaults used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Engine: EngineConfig{
			Workers:                   0,
			IncrementalThresholdBytes: 4096,
		},
		Cache: CacheConfig{
			Capacity: 256,
		},
		Lexer: LexerConfig{
			WindowBytes: 64 * 1024,
		},
		Watcher: WatcherConfig{
			Enabled:    true,
			DebounceMs: 500,
			IgnorePatterns: []string{
				"*.log",
				"*.tmp",
				".git/**",
				".fidx/**",
			},
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		SnapshotPath: filepath.Join(configDir, "index.db"),
	}
}

// Load reads the config for a project root, applying defaults for missing
// keys. A missing file is not an error.
func Load(root string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("engine.workers", def.Engine.Workers)
	v.SetDefault("engine.incrementalThresholdBytes", def.Engine.IncrementalThresholdBytes)
	v.SetDefault("cache.capacity", def.Cache.Capacity)
	v.SetDefault("lexer.windowBytes", def.Lexer.WindowBytes)
	v.SetDefault("watcher.enabled", def.Watcher.Enabled)
	v.SetDefault("watcher.debounceMs", def.Watcher.DebounceMs)
	v.SetDefault("watcher.ignorePatterns", def.Watcher.IgnorePatterns)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.path", def.Logging.Path)
	v.SetDefault("snapshotPath", def.SnapshotPath)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, configDir))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to <root>/.fidx/config.json.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, configDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return &Error{Field: "version", Message: "unsupported config version"}
	}
	if c.Engine.Workers < 0 {
		return &Error{Field: "engine.workers", Message: "must be non-negative"}
	}
	if c.Cache.Capacity < 0 {
		return &Error{Field: "cache.capacity", Message: "must be non-negative"}
	}
	if c.Lexer.WindowBytes <= 0 {
		return &Error{Field: "lexer.windowBytes", Message: "must be positive"}
	}
	if c.Watcher.DebounceMs < 0 {
		return &Error{Field: "watcher.debounceMs", Message: "must be non-negative"}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &Error{Field: "logging.level", Message: "unknown level " + c.Logging.Level}
	}
	return nil
}

// Error reports an invalid configuration field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
