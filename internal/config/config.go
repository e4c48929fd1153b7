// Package config handles inapp configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Fetch settings for the message source
	Fetch FetchConfig `yaml:"fetch" mapstructure:"fetch"`

	// Sync loop settings
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// Display gate settings
	Display DisplayConfig `yaml:"display" mapstructure:"display"`

	// Tracking settings for analytics events
	Tracking TrackingConfig `yaml:"tracking" mapstructure:"tracking"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where inapp stores its data (default: ~/.local/share/inapp).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/inapp).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// MaxConnections is the maximum number of database connections.
	MaxConnections int `yaml:"max_connections" mapstructure:"max_connections"`

	// BusyTimeout is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// FetchConfig configures where message payloads come from.
type FetchConfig struct {
	// PayloadPath is a local JSON payload file. Used when Endpoint is empty.
	PayloadPath string `yaml:"payload_path" mapstructure:"payload_path"`

	// Endpoint is the HTTP URL returning the message payload.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`

	// APIKey is sent with HTTP fetches.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// MaxMessages caps how many messages one fetch returns.
	MaxMessages int `yaml:"max_messages" mapstructure:"max_messages"`

	// Timeout bounds a single HTTP fetch.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SyncConfig configures the periodic sync loop.
type SyncConfig struct {
	// Interval is how often to fetch and merge.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// ProcessAfterSync runs selection after a sync that changed the store.
	ProcessAfterSync bool `yaml:"process_after_sync" mapstructure:"process_after_sync"`
}

// DisplayConfig configures the display-eligibility gate.
type DisplayConfig struct {
	// MinInterval is the minimum time between two shown messages.
	MinInterval time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
}

// TrackingConfig configures analytics event persistence.
type TrackingConfig struct {
	// PersistEvents stores analytics events in the database.
	PersistEvents bool `yaml:"persist_events" mapstructure:"persist_events"`

	// MaxAge prunes events older than this (0 disables).
	MaxAge time.Duration `yaml:"max_age" mapstructure:"max_age"`

	// MaxCount keeps at most this many events (0 disables).
	MaxCount int `yaml:"max_count" mapstructure:"max_count"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "inapp"),
			ConfigDir: filepath.Join(homeDir, ".config", "inapp"),
		},
		Database: DatabaseConfig{
			Path:           "", // Will be set to DataDir/inapp.db
			MaxConnections: 1,
			BusyTimeoutMs:  5000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		Fetch: FetchConfig{
			MaxMessages: 10,
			Timeout:     30 * time.Second,
		},
		Sync: SyncConfig{
			Interval:         60 * time.Second,
			ProcessAfterSync: true,
		},
		Display: DisplayConfig{
			MinInterval: 30 * time.Second,
		},
		Tracking: TrackingConfig{
			PersistEvents: true,
			MaxAge:        30 * 24 * time.Hour,
			MaxCount:      10000,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.max_connections must be at least 1")
	}

	if c.Fetch.MaxMessages < 1 {
		return fmt.Errorf("fetch.max_messages must be at least 1")
	}

	if c.Fetch.Timeout < 100*time.Millisecond {
		return fmt.Errorf("fetch.timeout must be at least 100ms")
	}

	if c.Sync.Interval < time.Second {
		return fmt.Errorf("sync.interval must be at least 1s")
	}

	if c.Display.MinInterval < 0 {
		return fmt.Errorf("display.min_interval must not be negative")
	}

	if c.Tracking.MaxAge < 0 || c.Tracking.MaxCount < 0 {
		return fmt.Errorf("tracking retention limits must not be negative")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be one of console, json")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "inapp.db")
}

// ContextPath returns the path of the persisted CLI user context.
func (c *Config) ContextPath() string {
	return filepath.Join(c.Global.ConfigDir, "context.yaml")
}
