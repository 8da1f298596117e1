package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// maxConfigFileSize bounds config reads.
const maxConfigFileSize = 1024 * 1024

// envPrefix namespaces the subsystem's environment variables.
const envPrefix = "COVENANTRIX_"

// Load loads configuration from an optional YAML file plus environment
// variables, over the defaults. An empty configPath uses the default location
// and tolerates a missing file.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		configPath = filepath.Join(home, ".covenantrix", "config.yaml")
	}

	if info, err := os.Stat(configPath); err == nil {
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
		}
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	// COVENANTRIX_REGISTRY_PATH -> registry.path
	// COVENANTRIX_ENGINE_PROVIDER -> engine.provider
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	return unmarshal(k)
}

// LoadBytes loads configuration from raw YAML over the defaults. Used by
// tests and embedded callers.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return unmarshal(k)
}

// unmarshal overlays loaded keys onto the defaults and validates.
func unmarshal(k *koanf.Koanf) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandPaths expands a leading ~ in configured paths.
func expandPaths(cfg *Config) {
	cfg.Registry.Path = expandHome(cfg.Registry.Path)
	cfg.ChunkIndex.Path = expandHome(cfg.ChunkIndex.Path)
	cfg.Engine.Chromem.Path = expandHome(cfg.Engine.Chromem.Path)
	cfg.Embeddings.CacheDir = expandHome(cfg.Embeddings.CacheDir)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
