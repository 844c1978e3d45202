// Package config provides configuration management for snappy.
//
// The daemon configuration (this package) is deliberately separate from the
// topology document: the config says where things live and how to reach the
// snapserver, the document says what the audio setup is.
//
// Config file locations (priority order):
//  1. $SNAPPY_CONFIG
//  2. ./snappy.yaml
//  3. ~/.config/snappy/config.yaml
//  4. /etc/snappy/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tobsch/snappy/internal/snapcast"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Document.Path == "" {
		c.Document.Path = "./speaker_config.json"
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = ":8095"
	}
	if c.Snapcast.Host == "" && !c.Snapcast.Discover {
		c.Snapcast.Host = "localhost"
	}
	if c.Snapcast.Port == 0 {
		c.Snapcast.Port = snapcast.DefaultPort
	}
	if c.Snapcast.Timeout == nil {
		d := Duration(snapcast.DefaultTimeout)
		c.Snapcast.Timeout = &d
	}
	if c.Reconcile.PollInterval == nil {
		d := Duration(time.Second)
		c.Reconcile.PollInterval = &d
	}
	if c.Reconcile.PollDeadline == nil {
		d := Duration(30 * time.Second)
		c.Reconcile.PollDeadline = &d
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	return fmt.Sprintf("document: %s, listen: %s, snapcast: %s:%d",
		c.Document.Path, c.HTTP.Listen, c.Snapcast.Host, c.Snapcast.Port)
}
