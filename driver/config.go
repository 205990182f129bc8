package driver

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// DefaultModel is loaded when no model is named on the command line or in
// the config file.
const DefaultModel = "Qwen/Qwen3-0.6B"

// Config holds driver process configuration, loadable from a TOML file.
type Config struct {
	// Runtime names the registered inference runtime backend.
	Runtime string `toml:"runtime"`

	// Model is the model identifier passed to the runtime's loader.
	Model string `toml:"model"`

	// LogLevel sets diagnostic verbosity: debug, info, warn, or error.
	// Diagnostics go to stderr; the protocol stream is never affected.
	LogLevel string `toml:"log_level"`

	// Transcript, when set, is the path of a JSONL file recording request
	// outcomes.
	Transcript string `toml:"transcript"`

	// ProbePatterns, when set, is the path of a YAML file replacing the
	// built-in chat-restriction probe catalog.
	ProbePatterns string `toml:"probe_patterns"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Runtime:  "mock",
		Model:    DefaultModel,
		LogLevel: "info",
	}
}

// LoadConfig reads a TOML config file and applies defaults for unset fields.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg.WithDefaults(), nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Runtime == "" {
		return fmt.Errorf("runtime is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q, expected one of: debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// WithDefaults returns a copy of the config with defaults applied for unset
// fields.
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()

	if c.Runtime == "" {
		c.Runtime = defaults.Runtime
	}
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}

	return c
}
