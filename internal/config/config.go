// Package config loads configuration for the scoped-retrieval subsystem.
//
// Precedence, highest first: environment variables, YAML config file,
// hardcoded defaults. Environment variables map section_field to section.field
// (REGISTRY_PATH -> registry.path, ENGINE_PROVIDER -> engine.provider).
package config

import (
	"fmt"

	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/embeddings"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/engine"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/logging"
)

// Engine provider names.
const (
	ProviderChromem = "chromem"
	ProviderQdrant  = "qdrant"
)

// Config is the complete subsystem configuration.
type Config struct {
	Logging    logging.Config   `koanf:"logging"`
	Registry   RegistryConfig   `koanf:"registry"`
	ChunkIndex ChunkIndexConfig `koanf:"chunkindex"`
	Engine     EngineConfig     `koanf:"engine"`
	Embeddings embeddings.Config `koanf:"embeddings"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
}

// RegistryConfig locates the document registry.
type RegistryConfig struct {
	// Path is the base directory for the registry file.
	Path string `koanf:"path"`
}

// ChunkIndexConfig locates the engine-owned chunk index.
type ChunkIndexConfig struct {
	// Path is the engine's index file.
	Path string `koanf:"path"`

	// Watch enables fsnotify-based cache invalidation on index rewrites.
	Watch bool `koanf:"watch"`
}

// EngineConfig selects and configures the retrieval engine.
type EngineConfig struct {
	// Provider is "chromem" (embedded) or "qdrant" (external).
	Provider string `koanf:"provider"`

	Chromem engine.ChromemConfig `koanf:"chromem"`
	Qdrant  engine.QdrantConfig  `koanf:"qdrant"`
}

// RetrievalConfig tunes per-mode retrieval breadth.
type RetrievalConfig struct {
	TopKIsolated     int  `koanf:"top_k_isolated"`
	TopKRelational   int  `koanf:"top_k_relational"`
	RerankRelational bool `koanf:"rerank_relational"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Logging: *logging.NewDefaultConfig(),
		Registry: RegistryConfig{
			Path: "~/.covenantrix/registry",
		},
		ChunkIndex: ChunkIndexConfig{
			Path:  "~/.covenantrix/engine/doc_chunks.json",
			Watch: true,
		},
		Engine: EngineConfig{
			Provider: ProviderChromem,
			Chromem: engine.ChromemConfig{
				Path: "~/.covenantrix/engine/vectors",
			},
		},
		Embeddings: embeddings.Config{
			CacheDir: "~/.covenantrix/models",
		},
		Retrieval: RetrievalConfig{
			TopKIsolated:     10,
			TopKRelational:   40,
			RerankRelational: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Registry.Path == "" {
		return fmt.Errorf("registry: path is required")
	}
	if c.ChunkIndex.Path == "" {
		return fmt.Errorf("chunkindex: path is required")
	}

	switch c.Engine.Provider {
	case ProviderChromem:
		if err := c.Engine.Chromem.Validate(); err != nil {
			return err
		}
	case ProviderQdrant:
		cfg := c.Engine.Qdrant
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("engine: unknown provider %q", c.Engine.Provider)
	}

	if c.Retrieval.TopKIsolated < 0 || c.Retrieval.TopKRelational < 0 {
		return fmt.Errorf("retrieval: top_k values must be non-negative")
	}
	return nil
}
