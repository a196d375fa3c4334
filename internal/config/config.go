// Package config loads the persistence bridge configuration from YAML or
// JSON, in the same unified-document style as the rest of the project's
// tooling configs.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `json:"database" yaml:"database"`
	Load     LoadConfig     `json:"load" yaml:"load"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

type DatabaseConfig struct {
	// Path to the SQLite file; empty means in-memory.
	Path string `json:"path" yaml:"path"`
	// BusyTimeout in milliseconds to wait on a locked database.
	BusyTimeout int `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"`
	// WAL enables write-ahead logging.
	WAL bool `json:"wal,omitempty" yaml:"wal,omitempty"`
	// MaxOpenConns caps the connection pool; 0 keeps the driver default.
	MaxOpenConns int `json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
}

type LoadConfig struct {
	// Mode is "strict" (abort on unknown component types) or "lenient"
	// (skip and continue).
	Mode string `json:"mode" yaml:"mode"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

func Default() Config {
	return Config{
		Database: DatabaseConfig{BusyTimeout: 5000, WAL: true},
		Load:     LoadConfig{Mode: "strict"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// LoadYAML reads a config document from r.
func LoadYAML(r io.Reader) (Config, error) {
	c := Default()
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// LoadJSON reads a config document from r.
func LoadJSON(r io.Reader) (Config, error) {
	c := Default()
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// FromFile loads a config file, picking the decoder by extension.
func FromFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	if strings.HasSuffix(path, ".json") {
		return LoadJSON(f)
	}
	return LoadYAML(f)
}

func (c Config) Validate() error {
	switch c.Load.Mode {
	case "", "strict", "lenient":
	default:
		return fmt.Errorf("load.mode must be strict or lenient, got %q", c.Load.Mode)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout must not be negative")
	}
	return nil
}

// Strict reports whether unknown component types abort loads.
func (c Config) Strict() bool {
	return c.Load.Mode != "lenient"
}
