// Package config loads engine configuration from TOML and supports live
// reload of the settings that are safe to change at runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine      EngineConfig      `toml:"engine"`
	Logging     LoggingConfig     `toml:"logging"`
	Persistence PersistenceConfig `toml:"persistence"`
	Systems     SystemsConfig     `toml:"systems"`
}

type EngineConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type PersistenceConfig struct {
	ScenePath        string        `toml:"scene_path"`
	Background       bool          `toml:"background"`
	AutosaveInterval time.Duration `toml:"autosave_interval"`
}

type SystemsConfig struct {
	// Enabled lists system factory names to instantiate at startup, in
	// registration order (the scheduler still reorders by dependencies).
	Enabled []string `toml:"enabled"`
}

// Load reads and parses the TOML file at path, layered over defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration, used standalone when no
// config file exists.
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			TickRate: 16 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Persistence: PersistenceConfig{
			ScenePath:        "scenes/main.scene",
			Background:       true,
			AutosaveInterval: 5 * time.Minute,
		},
		Systems: SystemsConfig{
			Enabled: []string{"transform", "movement", "autosave"},
		},
	}
}
