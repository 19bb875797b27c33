// Package config loads cellcore settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vogtb/cellcore"
)

// Config is the on-disk configuration
type Config struct {
	Sheet   SheetConfig   `yaml:"sheet"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Journal JournalConfig `yaml:"journal"`
}

type SheetConfig struct {
	Buckets  int `yaml:"buckets"`
	MaxDepth int `yaml:"max_depth"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// JournalConfig points at the bbolt file recording rendered cells. an empty
// path disables the journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Sheet: SheetConfig{
			Buckets:  cellcore.DefaultBuckets,
			MaxDepth: cellcore.DefaultMaxDepth,
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads the file at path over the defaults. an empty path, or a path
// that does not exist, yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the sheet cannot run with
func (c Config) Validate() error {
	if c.Sheet.Buckets <= 0 {
		return fmt.Errorf("sheet.buckets must be positive, got %d", c.Sheet.Buckets)
	}
	if c.Sheet.MaxDepth <= 0 {
		return fmt.Errorf("sheet.max_depth must be positive, got %d", c.Sheet.MaxDepth)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	return nil
}

// SheetOptions converts the sheet section into construction options
func (c Config) SheetOptions() []cellcore.Option {
	return []cellcore.Option{
		cellcore.WithBuckets(c.Sheet.Buckets),
		cellcore.WithMaxDepth(c.Sheet.MaxDepth),
	}
}

// Write saves the configuration as YAML
func (c Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
