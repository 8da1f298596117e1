package engine

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ChromemConfig holds configuration for the embedded chromem-go engine.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	Path string `koanf:"path"`

	// Collection is the chunk collection name. Default: "covenantrix_chunks".
	Collection string `koanf:"collection"`

	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "covenantrix_chunks"
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("chromem: path is required")
	}
	return nil
}

// ChromemEngine is an embedded Engine backed by chromem-go.
//
// chromem-go has no way to express an id-set restriction (its where filters
// are exact-match metadata only), so queries carrying CandidateIDs are
// rejected with ErrFilterUnsupported. The adapter then retries unfiltered and
// the isolation guard trims the result. chromem-go likewise has no relational
// traversal, so Mode only influences the requested breadth.
type ChromemEngine struct {
	db         *chromem.DB
	embedder   Embedder
	collection string
	logger     *zap.Logger
}

// NewChromemEngine creates a ChromemEngine with persistent storage.
func NewChromemEngine(cfg ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemEngine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("chromem: embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("chromem: creating directory %s: %w", cfg.Path, err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("chromem: opening database: %w", err)
	}

	return &ChromemEngine{
		db:         db,
		embedder:   embedder,
		collection: cfg.Collection,
		logger:     logger,
	}, nil
}

// embeddingFunc bridges the Embedder interface to chromem.
func (e *ChromemEngine) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return e.embedder.EmbedQuery(ctx, text)
	}
}

// Query executes a flat similarity query.
func (e *ChromemEngine) Query(ctx context.Context, req Request) (*Response, error) {
	if req.Text == "" {
		return nil, ErrEmptyQuery
	}
	if req.CandidateIDs != nil {
		return nil, fmt.Errorf("%w: chromem has no id-set filter", ErrFilterUnsupported)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collection := e.db.GetCollection(e.collection, e.embeddingFunc())
	if collection == nil {
		// Nothing ingested yet: empty result, not an error.
		return &Response{}, nil
	}

	k := req.TopK
	if k <= 0 {
		k = 10
	}
	// chromem requires nResults <= document count.
	if count := collection.Count(); count == 0 {
		return &Response{}, nil
	} else if k > count {
		k = count
	}

	results, err := collection.Query(ctx, req.Text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: querying collection %s: %w", e.collection, err)
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			ChunkID:    r.ID,
			DocumentID: r.Metadata["doc_id"],
			Text:       r.Content,
			Score:      r.Similarity,
		}
	}

	e.logger.Debug("chromem query executed",
		zap.String("collection", e.collection),
		zap.Int("results", len(sources)),
	)

	return &Response{
		Content: RenderContent(sources),
		Sources: sources,
	}, nil
}

var _ Engine = (*ChromemEngine)(nil)
