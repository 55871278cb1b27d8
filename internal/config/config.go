// Package config loads the optional YAML configuration file. Configuration
// is read once at startup and treated as immutable for the process lifetime.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is searched when no --config flag is given.
const DefaultPath = ".regcritic.yaml"

// Config holds the file-configurable settings. Flags and environment
// variables override anything set here.
type Config struct {
	// Model is a provider:model string, e.g. "gemini:gemini-2.0-flash".
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// ExtraTriggers extends the built-in severity trigger list.
	ExtraTriggers []string `yaml:"extra_triggers"`

	// SessionDB enables interaction-history persistence when non-empty.
	SessionDB string `yaml:"session_db"`
}

// Load reads a config file. When path is empty, DefaultPath is tried; a
// missing default file yields a zero Config, but a missing explicit path is
// an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("config temperature must be between 0.0 and 2.0, got %g", cfg.Temperature)
	}
	if cfg.MaxTokens < 0 {
		return nil, fmt.Errorf("config max_tokens must be >= 0, got %d", cfg.MaxTokens)
	}
	return &cfg, nil
}
