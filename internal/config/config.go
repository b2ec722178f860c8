// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Storage   StorageConfig   `toml:"storage"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Probe     ProbeConfig     `toml:"probe"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Download  DownloadConfig  `toml:"download"`
	Queue     QueueConfig     `toml:"queue"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path           string        `toml:"path"`
	EventRetention time.Duration `toml:"event_retention"` // 0 keeps the event log forever
}

// StorageConfig controls the local asset cache.
type StorageConfig struct {
	Dir     string `toml:"dir"`
	MaxSize string `toml:"max_size"` // human readable, e.g. "64MB"

	MaxSizeBytes int64 `toml:"-"`
}

// CatalogConfig points at the backend that lists candidate assets.
type CatalogConfig struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
}

// ProbeConfig controls the network admission probe. An empty URL probes
// the catalog endpoint.
type ProbeConfig struct {
	Enabled   bool          `toml:"enabled"`
	URL       string        `toml:"url"`
	Threshold float64       `toml:"threshold"`
	Timeout   time.Duration `toml:"timeout"`
}

type DiscoveryConfig struct {
	Interval   time.Duration `toml:"interval"`
	BatchSize  int           `toml:"batch_size"`
	RunOnStart bool          `toml:"run_on_start"`
}

type DownloadConfig struct {
	Timeout time.Duration `toml:"timeout"` // 0 disables
}

type QueueConfig struct {
	Retention time.Duration `toml:"retention"` // 0 keeps terminal tasks forever
}

// Load reads, substitutes, and validates the configuration file.
// Unresolved variables and validation failures are returned together as a *ConfigError.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Errors: errs}
	}
	return cfg, nil
}

// LoadWithoutValidation reads and substitutes the configuration file but
// skips Validate. Unresolved variables are still an error.
func LoadWithoutValidation(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	var cfg Config
	// probe is on unless the file says otherwise
	cfg.Probe.Enabled = true
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.applyDefaults(md); err != nil {
		return nil, &ConfigError{Path: path, Errors: []string{err.Error()}}
	}
	return &cfg, nil
}

// applyDefaults fills unset fields. Keys that may legitimately be zero are
// only defaulted when absent from the file.
func (c *Config) applyDefaults(md toml.MetaData) error {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8585
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/prefetch.db"
	}
	if !md.IsDefined("database", "event_retention") {
		c.Database.EventRetention = 7 * 24 * time.Hour
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "./data/assets"
	}
	if c.Storage.MaxSize == "" {
		c.Storage.MaxSize = "64MB"
	}
	n, err := humanize.ParseBytes(c.Storage.MaxSize)
	if err != nil {
		return fmt.Errorf("storage.max_size: %w", err)
	}
	if n == 0 {
		return errors.New("storage.max_size: must be greater than zero")
	}
	c.Storage.MaxSizeBytes = int64(n)

	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = 30 * time.Second
	}
	if c.Probe.URL == "" {
		c.Probe.URL = c.Catalog.URL
	}
	if c.Probe.Threshold == 0 {
		c.Probe.Threshold = 0.5
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = 10 * time.Second
	}
	if c.Discovery.Interval == 0 {
		c.Discovery.Interval = 60 * time.Second
	}
	if c.Discovery.BatchSize == 0 {
		c.Discovery.BatchSize = 10
	}
	if !md.IsDefined("download", "timeout") {
		c.Download.Timeout = 5 * time.Minute
	}
	if !md.IsDefined("queue", "retention") {
		c.Queue.Retention = time.Hour
	}
	return nil
}
