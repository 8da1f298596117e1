package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level emitted: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the encoder: "json" or "console".
	Format string `koanf:"format"`

	// Caller enables caller annotation on entries.
	Caller bool `koanf:"caller"`

	// Fields are constant fields attached to every entry.
	Fields map[string]string `koanf:"fields"`
}

// NewDefaultConfig returns production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Caller: true,
		Fields: map[string]string{
			"service": "covenantrix",
		},
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	for k := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
	}
	return nil
}

// parseLevel parses a level string.
func parseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}
