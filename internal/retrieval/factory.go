package retrieval

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/chunkindex"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/config"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/docregistry"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/embeddings"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/engine"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/guard"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/scope"
)

// System bundles the service with the store handles the consuming layer and
// the ingestion collaborator also need.
type System struct {
	Service    *Service
	Registry   docregistry.Store
	ChunkIndex *chunkindex.FileIndex
	Embedder   *embeddings.FastEmbed

	closers []func() error
}

// Close releases engine connections, watchers, and the embedding session.
func (s *System) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// New builds the full scoped-retrieval system from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*System, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sys := &System{}

	registry, err := docregistry.NewFileStore(cfg.Registry.Path, logger.Named("docregistry"))
	if err != nil {
		return nil, fmt.Errorf("opening document registry: %w", err)
	}
	sys.Registry = registry

	index, err := chunkindex.NewFileIndex(cfg.ChunkIndex.Path, logger.Named("chunkindex"))
	if err != nil {
		return nil, fmt.Errorf("opening chunk index: %w", err)
	}
	if cfg.ChunkIndex.Watch {
		if err := index.Watch(); err != nil {
			// The index file may not exist until the first ingestion; fall
			// back to unwatched reads rather than failing startup.
			logger.Warn("chunk index watch unavailable", zap.Error(err))
		}
	}
	sys.ChunkIndex = index
	sys.closers = append(sys.closers, index.Close)

	embedder, err := embeddings.NewFastEmbed(cfg.Embeddings)
	if err != nil {
		sys.Close()
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}
	sys.Embedder = embedder
	sys.closers = append(sys.closers, embedder.Close)

	var eng engine.Engine
	switch cfg.Engine.Provider {
	case config.ProviderChromem:
		eng, err = engine.NewChromemEngine(cfg.Engine.Chromem, embedder, logger.Named("chromem"))
	case config.ProviderQdrant:
		var qe *engine.QdrantEngine
		qe, err = engine.NewQdrantEngine(cfg.Engine.Qdrant, embedder, logger.Named("qdrant"))
		if err == nil {
			eng = qe
			sys.closers = append(sys.closers, qe.Close)
		}
	default:
		err = fmt.Errorf("unknown engine provider %q", cfg.Engine.Provider)
	}
	if err != nil {
		sys.Close()
		return nil, fmt.Errorf("initializing engine: %w", err)
	}

	resolver, err := scope.NewResolver(registry, index, logger.Named("scope"))
	if err != nil {
		sys.Close()
		return nil, err
	}

	adapter, err := engine.NewAdapter(eng, engine.Params{
		TopKIsolated:     cfg.Retrieval.TopKIsolated,
		TopKRelational:   cfg.Retrieval.TopKRelational,
		RerankRelational: cfg.Retrieval.RerankRelational,
	}, logger.Named("engine"))
	if err != nil {
		sys.Close()
		return nil, err
	}

	service, err := NewService(resolver, adapter, guard.New(logger.Named("guard")), logger.Named("retrieval"))
	if err != nil {
		sys.Close()
		return nil, err
	}
	sys.Service = service

	return sys, nil
}
