// Package config handles loading and parsing the application's configuration.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
)

// Backend names accepted in the "backend" key.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBolt   = "bolt"
)

// Config holds all configuration for the application.
// We use struct tags to explicitly map TOML keys to struct fields.
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	DataDir         string `toml:"data_dir"`   // Directory holding snapshot and bolt files
	Backend         string `toml:"backend"`    // memory | file | bolt
	Serializer      string `toml:"serializer"` // json | yaml
	SnapshotSeconds int    `toml:"snapshot_interval_seconds"`
	LogLevel        string `toml:"log_level"`
	LogJSON         bool   `toml:"log_json"`
	MaxBodySize     string `toml:"max_body_size"` // e.g. "1MiB", "512KB"
}

// New returns a new Config with default values.
func New() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		DataDir:         ".",
		Backend:         BackendMemory,
		Serializer:      "json",
		SnapshotSeconds: 60,
		LogLevel:        "info",
		MaxBodySize:     "1MiB",
	}
}

// Load reads a configuration file from the given path and populates the Config struct.
// Keys missing from the file keep their current values.
func (c *Config) Load(path string) error {
	_, err := toml.DecodeFile(path, c)
	return err
}

// Validate checks the values that cannot be fixed up by defaults.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendFile, BackendBolt:
	default:
		return fmt.Errorf("unknown backend %q; valid values are: %q, %q, %q", c.Backend, BackendMemory, BackendFile, BackendBolt)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.SnapshotSeconds < 0 {
		return fmt.Errorf("snapshot_interval_seconds must be >= 0, got %d", c.SnapshotSeconds)
	}
	if _, err := c.MaxBodyBytes(); err != nil {
		return err
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	return nil
}

// SnapshotInterval returns the snapshot period; zero disables snapshots.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotSeconds) * time.Second
}

// MaxBodyBytes parses MaxBodySize into a byte count.
func (c *Config) MaxBodyBytes() (int64, error) {
	size, err := humanize.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 0, fmt.Errorf("invalid max_body_size %q: %w", c.MaxBodySize, err)
	}
	if size == 0 {
		return 0, fmt.Errorf("max_body_size must be positive")
	}
	return int64(size), nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DataPath returns the backend file inside DataDir, or "" for memory.
func (c *Config) DataPath() string {
	switch c.Backend {
	case BackendFile:
		return filepath.Join(c.DataDir, "kvstore."+c.Serializer)
	case BackendBolt:
		return filepath.Join(c.DataDir, "kvstore.db")
	default:
		return ""
	}
}
