// Package embeddings generates query embeddings for the retrieval engines.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// Errors for embedding operations.
var (
	// ErrEmptyInput indicates empty input text.
	ErrEmptyInput = errors.New("input text cannot be empty")

	// ErrEmbeddingFailed indicates the model failed to produce an embedding.
	ErrEmbeddingFailed = errors.New("failed to generate embedding")
)

// Config holds configuration for the FastEmbed provider.
type Config struct {
	// Model is the embedding model name. Default: BAAI/bge-small-en-v1.5.
	Model string `koanf:"model"`

	// CacheDir is the directory for cached ONNX model files.
	CacheDir string `koanf:"cache_dir"`

	// MaxLength is the maximum input sequence length. Default: 512.
	MaxLength int `koanf:"max_length"`
}

// modelMapping maps friendly model names to fastembed constants.
var modelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// modelDimensions maps fastembed models to their output dimensions.
var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGEBaseENV15:  768,
	fastembed.AllMiniLML6V2: 384,
}

// FastEmbed generates embeddings with a local ONNX model. Safe for concurrent
// use.
type FastEmbed struct {
	model     *fastembed.FlagEmbedding
	dimension int
	mu        sync.RWMutex
}

// NewFastEmbed creates a FastEmbed provider, downloading the model on first
// use.
func NewFastEmbed(cfg Config) (*FastEmbed, error) {
	name := cfg.Model
	if name == "" {
		name = "BAAI/bge-small-en-v1.5"
	}
	model, ok := modelMapping[name]
	if !ok {
		return nil, fmt.Errorf("unsupported embedding model %q", name)
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "model_cache")
	}
	maxLength := cfg.MaxLength
	if maxLength == 0 {
		maxLength = 512
	}

	showProgress := false
	flagEmbed, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cacheDir,
		MaxLength:            maxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}

	return &FastEmbed{
		model:     flagEmbed,
		dimension: modelDimensions[model],
	}, nil
}

// EmbedQuery generates an embedding for a query. FastEmbed applies the
// model's query prefix itself.
func (f *FastEmbed) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	embedding, err := f.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return embedding, nil
}

// Dimension returns the model's output dimension.
func (f *FastEmbed) Dimension() int {
	return f.dimension
}

// Close releases the underlying ONNX session.
func (f *FastEmbed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.model != nil {
		return f.model.Destroy()
	}
	return nil
}
