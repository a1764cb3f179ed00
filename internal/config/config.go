// Package config loads the engine configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Provider   ProviderConfig   `yaml:"provider"`
	Viewer     ViewerConfig     `yaml:"viewer"`
	OutcomeLog OutcomeLogConfig `yaml:"outcome_log"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Duration is a time.Duration that yaml can decode: either a Go
// duration string ("500ms", "1s") or a bare number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type EngineConfig struct {
	// PollingRate is the default interval between samples when a call
	// omits its polling-rate argument.
	PollingRate Duration `yaml:"polling_rate"`
	// MaxSampleRate caps provider samples per second; zero disables the
	// guard.
	MaxSampleRate float64 `yaml:"max_sample_rate"`
	SampleBurst   int     `yaml:"sample_burst"`
}

type ProviderConfig struct {
	// URL of the telemetry websocket stream.
	URL string `yaml:"url"`
}

type ViewerConfig struct {
	Address      string   `yaml:"address"`
	MaxRetries   int      `yaml:"max_retries"`
	RetryBackoff Duration `yaml:"retry_backoff"`
}

type OutcomeLogConfig struct {
	// Path of the sqlite outcome log; empty disables recording.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Engine.PollingRate <= 0 {
		c.Engine.PollingRate = Duration(250 * time.Millisecond)
	}
	if c.Engine.SampleBurst <= 0 {
		c.Engine.SampleBurst = 1
	}
	if c.Viewer.Address == "" {
		c.Viewer.Address = "ws://localhost:7778"
	}
	if c.Viewer.MaxRetries <= 0 {
		c.Viewer.MaxRetries = 60
	}
	if c.Viewer.RetryBackoff <= 0 {
		c.Viewer.RetryBackoff = Duration(time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	if c.Engine.MaxSampleRate < 0 {
		return fmt.Errorf("max_sample_rate must not be negative")
	}
	return nil
}
